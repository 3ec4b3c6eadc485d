package decision

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

type Conclusion string

const (
	Allow     Conclusion = "ALLOW"
	Deny      Conclusion = "DENY"
	Challenge Conclusion = "CHALLENGE"
	Error     Conclusion = "ERROR"
)

// Decision is the verdict returned by the oracle for a single request.
type Decision struct {
	ID         string       `json:"id"`
	Conclusion Conclusion   `json:"conclusion"`
	Reason     Reason       `json:"reason"`
	Results    []RuleResult `json:"results"`
	TTL        int          `json:"ttl"`
	IP         *IPDetails   `json:"ip,omitempty"`
	// ExpiresAt is set on copies stored in the deny cache.
	ExpiresAt  *time.Time   `json:"expires_at,omitempty"`
}

func (d *Decision) IsDenied() bool {
	return d != nil && d.Conclusion == Deny
}

func (d *Decision) IsAllowed() bool {
	return d != nil && (d.Conclusion == Allow || d.Conclusion == Error)
}

func (d *Decision) IsErrored() bool {
	return d != nil && d.Conclusion == Error
}

// IsHosting reports whether the client IP belongs to a hosting provider.
// Absent IP details count as not hosting.
func (d *Decision) IsHosting() bool {
	if d == nil {
		return false
	}
	return d.IP.IsHosting()
}

func (d *Decision) HasSpoofedBot() bool {
	if d == nil {
		return false
	}
	for _, r := range d.Results {
		if r.IsSpoofedBot() {
			return true
		}
	}
	return false
}

// ForCache returns a copy stamped with the time the cache entry expires.
func (d *Decision) ForCache(expiresAt time.Time) *Decision {
	cp := *d
	cp.ExpiresAt = &expiresAt
	return &cp
}

// Expired reports whether a cached copy is past its expiry. Decisions that were
// never cached do not expire.
func (d *Decision) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && !now.Before(*d.ExpiresAt)
}

// Cached returns a copy of the decision whose results are marked as served from cache.
// A rate limit reason reports the seconds left on the cache entry, since that is
// how long the deny keeps being replayed.
func (d *Decision) Cached(now time.Time) *Decision {
	cp := *d
	cp.Results = make([]RuleResult, len(d.Results))
	for i, r := range d.Results {
		r.State = StateCached
		cp.Results[i] = r
	}
	if d.ExpiresAt != nil && d.Reason.RateLimit != nil {
		rl := *d.Reason.RateLimit
		rl.ResetInSeconds = secondsUntil(now, *d.ExpiresAt)
		cp.Reason.RateLimit = &rl
	}
	return &cp
}

func secondsUntil(now, t time.Time) int {
	left := t.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// NewErrorDecision builds the decision used when the oracle could not be reached
// and the gateway is configured to fail open.
func NewErrorDecision(err error) *Decision {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Decision{
		ID:         "lreq_" + uuid.NewString(),
		Conclusion: Error,
		Reason: Reason{
			Kind:  KindError,
			Error: &ErrorReason{Message: msg},
		},
	}
}

var ErrInvalidConclusion = errors.New("invalid decision conclusion")

func ParseConclusion(s string) (Conclusion, error) {
	switch c := Conclusion(s); c {
	case Allow, Deny, Challenge, Error:
		return c, nil
	default:
		return "", ErrInvalidConclusion
	}
}

// IPDetails carries the IP intelligence the oracle attaches to a decision.
type IPDetails struct {
	Hosting bool   `json:"is_hosting"`
	VPN     bool   `json:"is_vpn"`
	Proxy   bool   `json:"is_proxy"`
	Tor     bool   `json:"is_tor"`
	Relay   bool   `json:"is_relay"`
	Country string `json:"country,omitempty"`
	ASN     string `json:"asn,omitempty"`
	ASNName string `json:"asn_name,omitempty"`
}

func (ip *IPDetails) IsHosting() bool {
	return ip != nil && ip.Hosting
}
