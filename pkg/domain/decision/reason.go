package decision

type Kind string

const (
	KindRateLimit Kind = "rate_limit"
	KindBot       Kind = "bot"
	KindShield    Kind = "shield"
	KindError     Kind = "error"
	KindUnknown   Kind = "unknown"
)

// Reason explains a conclusion. Exactly one of the detail pointers matches Kind.
type Reason struct {
	Kind      Kind             `json:"kind"`
	RateLimit *RateLimitReason `json:"rate_limit,omitempty"`
	Bot       *BotReason       `json:"bot,omitempty"`
	Shield    *ShieldReason    `json:"shield,omitempty"`
	Error     *ErrorReason     `json:"error,omitempty"`
}

type RateLimitReason struct {
	Max             int `json:"max"`
	Remaining       int `json:"remaining"`
	ResetInSeconds  int `json:"reset_in_seconds"`
	WindowInSeconds int `json:"window_in_seconds"`
}

type BotReason struct {
	Allowed  []string `json:"allowed"`
	Denied   []string `json:"denied"`
	Verified bool     `json:"verified"`
	Spoofed  bool     `json:"spoofed"`
}

type ShieldReason struct {
	Triggered bool `json:"triggered"`
}

type ErrorReason struct {
	Message string `json:"message"`
}

func (r Reason) IsRateLimit() bool {
	return r.Kind == KindRateLimit
}

func (r Reason) IsBot() bool {
	return r.Kind == KindBot
}

func (r Reason) IsError() bool {
	return r.Kind == KindError
}

func (r Reason) IsSpoofed() bool {
	return r.IsBot() && r.Bot != nil && r.Bot.Spoofed
}

// RetryAfter returns the seconds until a rate limit resets, or 0 when unknown.
func (r Reason) RetryAfter() int {
	if !r.IsRateLimit() || r.RateLimit == nil {
		return 0
	}
	return r.RateLimit.ResetInSeconds
}
