package common

type contextKey string

const (
	TraceIdKey              contextKey = "trace_id"
	FingerprintContextKey   contextKey = "fingerprint"
	FingerprintIdContextKey contextKey = "fingerprint_id"
)
