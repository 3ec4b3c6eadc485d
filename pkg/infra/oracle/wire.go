package oracle

import (
	"fmt"

	"github.com/NeuralTrust/ShieldGate/pkg/domain/decision"
	"github.com/NeuralTrust/ShieldGate/pkg/domain/rule"
	"github.com/NeuralTrust/ShieldGate/pkg/version"
	"github.com/valyala/fastjson"
)

type decideRequest struct {
	SDKStack    string                   `json:"sdkStack"`
	SDKVersion  string                   `json:"sdkVersion"`
	Fingerprint string                   `json:"fingerprint"`
	Details     RequestDetails           `json:"details"`
	Rules       []map[string]interface{} `json:"rules"`
	Requested   int                      `json:"requested"`
}

func newDecideRequest(req ProtectRequest, rules []rule.Rule) decideRequest {
	wire := make([]map[string]interface{}, 0, len(rules))
	for _, r := range rules {
		wire = append(wire, r.Wire())
	}
	return decideRequest{
		SDKStack:    "GO",
		SDKVersion:  version.Version,
		Fingerprint: req.Fingerprint,
		Details:     req.Details,
		Rules:       wire,
		Requested:   req.Requested,
	}
}

func parseDecision(v *fastjson.Value) (*decision.Decision, error) {
	if v == nil || v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("%w: missing decision", ErrInvalidResponse)
	}
	conclusion, err := decision.ParseConclusion(string(v.GetStringBytes("conclusion")))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	d := &decision.Decision{
		ID:         string(v.GetStringBytes("id")),
		Conclusion: conclusion,
		Reason:     parseReason(v.Get("reason")),
		TTL:        v.GetInt("ttl"),
		IP:         parseIPDetails(v.Get("ipDetails")),
	}

	results := v.GetArray("ruleResults")
	d.Results = make([]decision.RuleResult, 0, len(results))
	for i, rv := range results {
		rc, err := decision.ParseConclusion(string(rv.GetStringBytes("conclusion")))
		if err != nil {
			return nil, fmt.Errorf("%w: rule result %d: %v", ErrInvalidResponse, i, err)
		}
		d.Results = append(d.Results, decision.RuleResult{
			RuleID:     string(rv.GetStringBytes("ruleId")),
			State:      parseState(string(rv.GetStringBytes("state"))),
			Conclusion: rc,
			Reason:     parseReason(rv.Get("reason")),
			TTL:        rv.GetInt("ttl"),
		})
	}
	return d, nil
}

func parseState(s string) decision.RuleState {
	switch st := decision.RuleState(s); st {
	case decision.StateRun, decision.StateDryRun, decision.StateCached:
		return st
	default:
		return decision.StateNotRun
	}
}

func parseReason(v *fastjson.Value) decision.Reason {
	if v == nil {
		return decision.Reason{Kind: decision.KindUnknown}
	}
	if rl := v.Get("rateLimit"); rl != nil {
		return decision.Reason{
			Kind: decision.KindRateLimit,
			RateLimit: &decision.RateLimitReason{
				Max:             rl.GetInt("max"),
				Remaining:       rl.GetInt("remaining"),
				ResetInSeconds:  rl.GetInt("resetInSeconds"),
				WindowInSeconds: rl.GetInt("windowInSeconds"),
			},
		}
	}
	if b := v.Get("botV2"); b != nil {
		return decision.Reason{
			Kind: decision.KindBot,
			Bot: &decision.BotReason{
				Allowed:  stringSlice(b.GetArray("allowed")),
				Denied:   stringSlice(b.GetArray("denied")),
				Verified: b.GetBool("verified"),
				Spoofed:  b.GetBool("spoofed"),
			},
		}
	}
	if s := v.Get("shield"); s != nil {
		return decision.Reason{
			Kind:   decision.KindShield,
			Shield: &decision.ShieldReason{Triggered: s.GetBool("shieldTriggered")},
		}
	}
	if e := v.Get("error"); e != nil {
		return decision.Reason{
			Kind:  decision.KindError,
			Error: &decision.ErrorReason{Message: string(e.GetStringBytes("message"))},
		}
	}
	return decision.Reason{Kind: decision.KindUnknown}
}

func parseIPDetails(v *fastjson.Value) *decision.IPDetails {
	if v == nil || v.Type() != fastjson.TypeObject {
		return nil
	}
	return &decision.IPDetails{
		Hosting: v.GetBool("isHosting"),
		VPN:     v.GetBool("isVpn"),
		Proxy:   v.GetBool("isProxy"),
		Tor:     v.GetBool("isTor"),
		Relay:   v.GetBool("isRelay"),
		Country: string(v.GetStringBytes("country")),
		ASN:     string(v.GetStringBytes("asn")),
		ASNName: string(v.GetStringBytes("asnName")),
	}
}

func stringSlice(values []*fastjson.Value) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if b, err := v.StringBytes(); err == nil {
			out = append(out, string(b))
		}
	}
	return out
}
