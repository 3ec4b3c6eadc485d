package rule

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRule = errors.New("invalid rule")

type Mode string

const (
	Live   Mode = "LIVE"
	DryRun Mode = "DRY_RUN"
)

type Type string

const (
	ShieldType      Type = "shield"
	DetectBotType   Type = "detect_bot"
	TokenBucketType Type = "token_bucket"
)

const SearchEngineCategory = "CATEGORY:SEARCH_ENGINE"

type Rule interface {
	Type() Type
	Mode() Mode
	Validate() error
	// Wire returns the rule as it is sent to the oracle.
	Wire() map[string]interface{}
}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case "":
		return Live, nil
	case Live, DryRun:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q, must be one of: LIVE, DRY_RUN", ErrInvalidRule, s)
	}
}

type Shield struct {
	mode Mode
}

func NewShield(mode Mode) *Shield {
	return &Shield{mode: mode}
}

func (s *Shield) Type() Type      { return ShieldType }
func (s *Shield) Mode() Mode      { return s.mode }
func (s *Shield) Validate() error { return nil }

func (s *Shield) Wire() map[string]interface{} {
	return map[string]interface{}{
		"shield": map[string]interface{}{
			"mode": string(s.mode),
		},
	}
}

type DetectBotConfig struct {
	Allow []string `mapstructure:"allow"`
	Deny  []string `mapstructure:"deny"`
}

type DetectBot struct {
	mode   Mode
	config DetectBotConfig
}

func NewDetectBot(mode Mode, cfg DetectBotConfig) *DetectBot {
	return &DetectBot{mode: mode, config: cfg}
}

func (b *DetectBot) Type() Type { return DetectBotType }
func (b *DetectBot) Mode() Mode { return b.mode }

func (b *DetectBot) Validate() error {
	if len(b.config.Allow) > 0 && len(b.config.Deny) > 0 {
		return fmt.Errorf("%w: detect_bot accepts either allow or deny, not both", ErrInvalidRule)
	}
	for _, entry := range append(append([]string{}, b.config.Allow...), b.config.Deny...) {
		if strings.TrimSpace(entry) == "" {
			return fmt.Errorf("%w: detect_bot entries must not be empty", ErrInvalidRule)
		}
	}
	return nil
}

func (b *DetectBot) Wire() map[string]interface{} {
	body := map[string]interface{}{
		"mode": string(b.mode),
	}
	if len(b.config.Deny) > 0 {
		body["deny"] = b.config.Deny
	} else {
		allow := b.config.Allow
		if allow == nil {
			allow = []string{}
		}
		body["allow"] = allow
	}
	return map[string]interface{}{"botV2": body}
}

type TokenBucketConfig struct {
	RefillRate      int      `mapstructure:"refill_rate"`
	Interval        int      `mapstructure:"interval"`
	Capacity        int      `mapstructure:"capacity"`
	Characteristics []string `mapstructure:"characteristics"`
}

type TokenBucket struct {
	mode   Mode
	config TokenBucketConfig
}

func NewTokenBucket(mode Mode, cfg TokenBucketConfig) *TokenBucket {
	return &TokenBucket{mode: mode, config: cfg}
}

func (t *TokenBucket) Type() Type { return TokenBucketType }
func (t *TokenBucket) Mode() Mode { return t.mode }

func (t *TokenBucket) Config() TokenBucketConfig { return t.config }

func (t *TokenBucket) Validate() error {
	if t.config.RefillRate <= 0 {
		return fmt.Errorf("%w: token_bucket requires a positive refill_rate", ErrInvalidRule)
	}
	if t.config.Interval <= 0 {
		return fmt.Errorf("%w: token_bucket requires a positive interval", ErrInvalidRule)
	}
	if t.config.Capacity <= 0 {
		return fmt.Errorf("%w: token_bucket requires a positive capacity", ErrInvalidRule)
	}
	return nil
}

func (t *TokenBucket) Wire() map[string]interface{} {
	body := map[string]interface{}{
		"mode":       string(t.mode),
		"algorithm":  "TOKEN_BUCKET",
		"refillRate": t.config.RefillRate,
		"interval":   t.config.Interval,
		"capacity":   t.config.Capacity,
	}
	if len(t.config.Characteristics) > 0 {
		body["characteristics"] = t.config.Characteristics
	}
	return map[string]interface{}{"rateLimit": body}
}
