package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/ShieldGate/pkg/common"
	"github.com/NeuralTrust/ShieldGate/pkg/config"
	"github.com/NeuralTrust/ShieldGate/pkg/domain/decision"
	"github.com/go-redis/redis/v8"
)

const (
	writeTimeout   = 2 * time.Second
	purgeThreshold = 10000
)

// DecisionCache remembers DENY decisions per fingerprint. Get returns nil, nil on a miss.
type DecisionCache interface {
	Get(ctx context.Context, fingerprint string) (*decision.Decision, error)
	Set(ctx context.Context, fingerprint string, d *decision.Decision, ttl time.Duration) error
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		options.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	return redis.NewClient(options)
}

func key(fingerprint string) string {
	return fmt.Sprintf(common.DenyCacheKeyPattern, fingerprint)
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, fingerprint string) (*decision.Decision, error) {
	raw, err := c.client.Get(ctx, key(fingerprint)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached decision: %w", err)
	}
	var d decision.Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("failed to decode cached decision: %w", err)
	}
	return &d, nil
}

func (c *RedisCache) Set(ctx context.Context, fingerprint string, d *decision.Decision, ttl time.Duration) error {
	if d == nil || ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := c.client.Set(ctx, key(fingerprint), string(b), ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache decision: %w", err)
	}
	return nil
}

type MemoryCache struct {
	entries *TTLMap
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: NewTTLMap()}
}

func (c *MemoryCache) Get(_ context.Context, fingerprint string) (*decision.Decision, error) {
	v, ok := c.entries.Get(key(fingerprint))
	if !ok {
		return nil, nil
	}
	d, ok := v.(decision.Decision)
	if !ok {
		return nil, fmt.Errorf("unexpected cached value type %T", v)
	}
	return &d, nil
}

func (c *MemoryCache) Set(_ context.Context, fingerprint string, d *decision.Decision, ttl time.Duration) error {
	if d == nil || ttl <= 0 {
		return nil
	}
	if c.entries.Len() >= purgeThreshold {
		c.entries.Purge()
	}
	c.entries.SetWithTTL(key(fingerprint), *d, ttl)
	return nil
}
