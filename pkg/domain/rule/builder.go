package rule

import (
	"fmt"
	"strings"

	"github.com/NeuralTrust/ShieldGate/pkg/config"
	"github.com/mitchellh/mapstructure"
)

// Defaults is the rule set used when the configuration does not declare any.
func Defaults() []Rule {
	return []Rule{
		NewShield(Live),
		NewDetectBot(Live, DetectBotConfig{Allow: []string{SearchEngineCategory}}),
		NewTokenBucket(Live, TokenBucketConfig{RefillRate: 5, Interval: 10, Capacity: 10}),
	}
}

// Build decodes and validates the configured rules.
func Build(cfgs []config.RuleConfig) ([]Rule, error) {
	if len(cfgs) == 0 {
		return Defaults(), nil
	}
	rules := make([]Rule, 0, len(cfgs))
	for i, c := range cfgs {
		r, err := build(c)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func build(c config.RuleConfig) (Rule, error) {
	mode, err := ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	switch Type(strings.ToLower(strings.TrimSpace(c.Type))) {
	case ShieldType:
		return NewShield(mode), nil
	case DetectBotType:
		var cfg DetectBotConfig
		if err := decode(c.Settings, &cfg); err != nil {
			return nil, err
		}
		return NewDetectBot(mode, cfg), nil
	case TokenBucketType:
		var cfg TokenBucketConfig
		if err := decode(c.Settings, &cfg); err != nil {
			return nil, err
		}
		return NewTokenBucket(mode, cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q, must be one of: shield, detect_bot, token_bucket", ErrInvalidRule, c.Type)
	}
}

func decode(settings map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create settings decoder: %w", err)
	}
	if err := decoder.Decode(settings); err != nil {
		return fmt.Errorf("%w: failed to decode settings: %v", ErrInvalidRule, err)
	}
	return nil
}
