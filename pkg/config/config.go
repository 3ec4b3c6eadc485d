package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingOracleKey = errors.New("ARCJET_KEY is required")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Decision DecisionConfig `mapstructure:"decision"`
	Rules    []RuleConfig   `mapstructure:"rules"`
}

type ServerConfig struct {
	Host                  string   `mapstructure:"host"`
	Port                  int      `mapstructure:"port"`
	MetricsPort           int      `mapstructure:"metrics_port"`
	TrustForwardedHeaders bool     `mapstructure:"trust_forwarded_headers"`
	// TrustedProxies limits forwarded header trust to peers in these CIDRs. Empty trusts any peer.
	TrustedProxies        []string `mapstructure:"trusted_proxies"`
}

type MetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	EnableLatency bool `mapstructure:"enable_latency"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

// Enabled reports whether a redis server is configured for the deny cache.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Host) != ""
}

type OracleConfig struct {
	Key             string        `mapstructure:"key"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	FailOpen        bool          `mapstructure:"fail_open"`
	MaxConnsPerHost int           `mapstructure:"max_conns_per_host"`
	Breaker         BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFailures uint32        `mapstructure:"max_failures"`
}

type DecisionConfig struct {
	Route              string   `mapstructure:"route"`
	Requested          int      `mapstructure:"requested"`
	ForcedOutcomes     bool     `mapstructure:"forced_outcomes"`
	DebugSnapshot      bool     `mapstructure:"debug_snapshot"`
	DistinctBotMessage bool     `mapstructure:"distinct_bot_message"`
	AllowedMessage     string   `mapstructure:"allowed_message"`
	Characteristics    []string `mapstructure:"characteristics"`
}

// RuleConfig declares one oracle rule. Settings are decoded by the rule package.
type RuleConfig struct {
	Type     string                 `mapstructure:"type"`
	Mode     string                 `mapstructure:"mode"`
	Settings map[string]interface{} `mapstructure:"settings"`
}

// Load reads config.yaml from configPath (when present), applies environment
// overrides and returns a validated configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaultValues(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("oracle.key", "ARCJET_KEY", "ORACLE_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind oracle key: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file config.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaultValues(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.trust_forwarded_headers", false)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.enable_latency", true)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.tls", false)

	v.SetDefault("oracle.key", "")
	v.SetDefault("oracle.base_url", "https://decide.arcjet.com")
	v.SetDefault("oracle.timeout", time.Second)
	v.SetDefault("oracle.fail_open", false)
	v.SetDefault("oracle.max_conns_per_host", 512)
	v.SetDefault("oracle.breaker.timeout", 30*time.Second)
	v.SetDefault("oracle.breaker.max_failures", 5)

	v.SetDefault("decision.route", "/api/arcjet")
	v.SetDefault("decision.requested", 5)
	v.SetDefault("decision.forced_outcomes", true)
	v.SetDefault("decision.debug_snapshot", true)
	v.SetDefault("decision.distinct_bot_message", true)
	v.SetDefault("decision.allowed_message", "Bot not detected")
	v.SetDefault("decision.characteristics", []string{"ip.src"})
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Oracle.Key) == "" {
		return ErrMissingOracleKey
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be between 1 and 65535", ErrInvalidConfig)
	}
	if c.Metrics.Enabled {
		if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
			return fmt.Errorf("%w: server.metrics_port must be between 1 and 65535", ErrInvalidConfig)
		}
		if c.Server.MetricsPort == c.Server.Port {
			return fmt.Errorf("%w: server.metrics_port must differ from server.port", ErrInvalidConfig)
		}
	}
	u, err := url.Parse(c.Oracle.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: oracle.base_url must be an http(s) URL", ErrInvalidConfig)
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("%w: oracle.timeout must be positive", ErrInvalidConfig)
	}
	if c.Oracle.Breaker.MaxFailures == 0 {
		return fmt.Errorf("%w: oracle.breaker.max_failures must be positive", ErrInvalidConfig)
	}
	if c.Decision.Requested <= 0 {
		return fmt.Errorf("%w: decision.requested must be positive", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.Decision.Route, "/") {
		return fmt.Errorf("%w: decision.route must start with /", ErrInvalidConfig)
	}
	return nil
}
