package decision

import (
	"net/http"

	"github.com/NeuralTrust/ShieldGate/pkg/config"
	domainDecision "github.com/NeuralTrust/ShieldGate/pkg/domain/decision"
)

const (
	ForceRate = "rate"
	ForceBot  = "bot"

	MsgForcedRateLimit = "Too many requests (forced)"
	MsgForcedBot       = "No bots allowed (forced)"
	MsgRateLimited     = "Too many requests"
	MsgNoBots          = "No bots allowed"
	MsgForbidden       = "Forbidden"
)

type Options struct {
	ForcedOutcomes     bool
	DebugSnapshot      bool
	DistinctBotMessage bool
	AllowedMessage     string
}

func OptionsFromConfig(cfg config.DecisionConfig) Options {
	return Options{
		ForcedOutcomes:     cfg.ForcedOutcomes,
		DebugSnapshot:      cfg.DebugSnapshot,
		DistinctBotMessage: cfg.DistinctBotMessage,
		AllowedMessage:     cfg.AllowedMessage,
	}
}

// Response is the JSON body and status sent back to the caller.
// Exactly one of Message, Error or Debug is set.
type Response struct {
	Status     int            `json:"-"`
	RetryAfter int            `json:"-"`
	Message    string         `json:"message,omitempty"`
	Error      string         `json:"error,omitempty"`
	Debug      *DebugSnapshot `json:"debug,omitempty"`
}

type DebugSnapshot struct {
	IsDenied          bool `json:"isDenied"`
	ReasonIsRateLimit bool `json:"reasonIsRateLimit"`
	ReasonIsBot       bool `json:"reasonIsBot"`
	IPIsHosting       bool `json:"ipIsHosting"`
	ResultsCount      int  `json:"resultsCount"`
}

func errorResponse(status int, msg string) Response {
	return Response{Status: status, Error: msg}
}

// Forced returns the canned response for a force query value, if forcing is enabled.
func Forced(force string, opts Options) (Response, bool) {
	if !opts.ForcedOutcomes {
		return Response{}, false
	}
	switch force {
	case ForceRate:
		return errorResponse(http.StatusTooManyRequests, MsgForcedRateLimit), true
	case ForceBot:
		return errorResponse(http.StatusForbidden, MsgForcedBot), true
	default:
		return Response{}, false
	}
}

// Respond maps an oracle decision to the caller facing response. The checks run in
// order and the first match wins.
func Respond(d *domainDecision.Decision, debugRequested bool, opts Options) Response {
	if d.IsDenied() {
		switch {
		case d.Reason.IsRateLimit():
			resp := errorResponse(http.StatusTooManyRequests, MsgRateLimited)
			resp.RetryAfter = d.Reason.RetryAfter()
			return resp
		case d.Reason.IsBot() && opts.DistinctBotMessage:
			return errorResponse(http.StatusForbidden, MsgNoBots)
		default:
			return errorResponse(http.StatusForbidden, MsgForbidden)
		}
	}

	if d.IsHosting() || d.HasSpoofedBot() {
		return errorResponse(http.StatusForbidden, MsgForbidden)
	}

	if debugRequested && opts.DebugSnapshot {
		return Response{Status: http.StatusOK, Debug: Snapshot(d)}
	}

	return Response{Status: http.StatusOK, Message: opts.AllowedMessage}
}

func Snapshot(d *domainDecision.Decision) *DebugSnapshot {
	if d == nil {
		return &DebugSnapshot{}
	}
	return &DebugSnapshot{
		IsDenied:          d.IsDenied(),
		ReasonIsRateLimit: d.Reason.IsRateLimit(),
		ReasonIsBot:       d.Reason.IsBot(),
		IPIsHosting:       d.IsHosting(),
		ResultsCount:      len(d.Results),
	}
}
