package common

import "time"

const (
	DefaultOracleTimeout  = 1 * time.Second
	DefaultBreakerTimeout = 30 * time.Second

	TraceIDHeader = "X-Trace-Id"

	DenyCacheKeyPattern = "decision:deny:%s"
)
