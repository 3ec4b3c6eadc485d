package rule_test

import (
	"testing"

	"github.com/NeuralTrust/ShieldGate/pkg/config"
	"github.com/NeuralTrust/ShieldGate/pkg/domain/rule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Defaults(t *testing.T) {
	rules, err := rule.Build(nil)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, rule.ShieldType, rules[0].Type())
	assert.Equal(t, rule.DetectBotType, rules[1].Type())
	assert.Equal(t, rule.TokenBucketType, rules[2].Type())
	for _, r := range rules {
		assert.Equal(t, rule.Live, r.Mode())
		assert.NoError(t, r.Validate())
	}

	bucket, ok := rules[2].(*rule.TokenBucket)
	require.True(t, ok)
	assert.Equal(t, rule.TokenBucketConfig{RefillRate: 5, Interval: 10, Capacity: 10}, bucket.Config())

	bot := rules[1].Wire()["botV2"].(map[string]interface{})
	assert.Equal(t, []string{rule.SearchEngineCategory}, bot["allow"])
}

func TestBuild_FromConfig(t *testing.T) {
	rules, err := rule.Build([]config.RuleConfig{
		{Type: "shield", Mode: "dry_run"},
		{Type: "detect_bot", Settings: map[string]interface{}{
			"deny": []interface{}{"CURL"},
		}},
		{Type: "token_bucket", Mode: "LIVE", Settings: map[string]interface{}{
			"refill_rate": 1,
			"interval":    "60",
			"capacity":    3,
		}},
	})
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, rule.DryRun, rules[0].Mode())

	bot := rules[1].Wire()["botV2"].(map[string]interface{})
	assert.Equal(t, []string{"CURL"}, bot["deny"])
	assert.NotContains(t, bot, "allow")

	bucket := rules[2].Wire()["rateLimit"].(map[string]interface{})
	assert.Equal(t, "TOKEN_BUCKET", bucket["algorithm"])
	assert.Equal(t, 1, bucket["refillRate"])
	assert.Equal(t, 60, bucket["interval"])
	assert.Equal(t, 3, bucket["capacity"])
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.RuleConfig
		wantMsg string
	}{
		{
			name:    "Unknown type",
			cfg:     config.RuleConfig{Type: "captcha"},
			wantMsg: "unknown type",
		},
		{
			name:    "Unknown mode",
			cfg:     config.RuleConfig{Type: "shield", Mode: "maybe"},
			wantMsg: "unknown mode",
		},
		{
			name: "Allow and deny",
			cfg: config.RuleConfig{Type: "detect_bot", Settings: map[string]interface{}{
				"allow": []string{"CATEGORY:SEARCH_ENGINE"},
				"deny":  []string{"CURL"},
			}},
			wantMsg: "either allow or deny",
		},
		{
			name: "Zero capacity",
			cfg: config.RuleConfig{Type: "token_bucket", Settings: map[string]interface{}{
				"refill_rate": 5,
				"interval":    10,
			}},
			wantMsg: "positive capacity",
		},
		{
			name: "Unknown setting",
			cfg: config.RuleConfig{Type: "token_bucket", Settings: map[string]interface{}{
				"refill_rate": 5,
				"interval":    10,
				"capacity":    10,
				"burst":       20,
			}},
			wantMsg: "failed to decode settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rule.Build([]config.RuleConfig{tt.cfg})
			require.Error(t, err)
			assert.ErrorIs(t, err, rule.ErrInvalidRule)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestShield_Wire(t *testing.T) {
	wire := rule.NewShield(rule.Live).Wire()
	assert.Equal(t, map[string]interface{}{"shield": map[string]interface{}{"mode": "LIVE"}}, wire)
}
