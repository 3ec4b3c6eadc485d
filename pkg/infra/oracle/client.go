package oracle

import (
	"context"

	"github.com/NeuralTrust/ShieldGate/pkg/domain/decision"
	"github.com/NeuralTrust/ShieldGate/pkg/domain/rule"
)

type Client interface {
	Protect(ctx context.Context, req ProtectRequest, rules []rule.Rule) (*decision.Decision, error)
}

// ProtectRequest is what the oracle needs to know about one inbound request.
type ProtectRequest struct {
	Fingerprint string
	Requested   int
	Details     RequestDetails
}

type RequestDetails struct {
	IP       string            `json:"ip"`
	Method   string            `json:"method"`
	Protocol string            `json:"protocol"`
	Host     string            `json:"host"`
	Path     string            `json:"path"`
	Query    string            `json:"query,omitempty"`
	Headers  map[string]string `json:"headers"`
	Extra    map[string]string `json:"extra,omitempty"`
}
