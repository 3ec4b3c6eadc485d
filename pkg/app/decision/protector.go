package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/NeuralTrust/ShieldGate/pkg/cache"
	domainDecision "github.com/NeuralTrust/ShieldGate/pkg/domain/decision"
	"github.com/NeuralTrust/ShieldGate/pkg/domain/rule"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/oracle"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	sourceOracle   = "oracle"
	sourceCache    = "cache"
	sourceFailOpen = "fail_open"
)

type Protector interface {
	Protect(ctx context.Context, req oracle.ProtectRequest) (*domainDecision.Decision, error)
}

type protector struct {
	logger   *logrus.Logger
	client   oracle.Client
	cache    cache.DecisionCache
	rules    []rule.Rule
	failOpen bool
	now      func() time.Time
}

func NewProtector(
	logger *logrus.Logger,
	client oracle.Client,
	decisionCache cache.DecisionCache,
	rules []rule.Rule,
	failOpen bool,
) Protector {
	return &protector{
		logger:   logger,
		client:   client,
		cache:    decisionCache,
		rules:    rules,
		failOpen: failOpen,
		now:      time.Now,
	}
}

func (p *protector) Protect(ctx context.Context, req oracle.ProtectRequest) (*domainDecision.Decision, error) {
	if cached := p.lookup(ctx, req.Fingerprint); cached != nil {
		record(cached, sourceCache)
		return cached, nil
	}

	start := time.Now()
	d, err := p.client.Protect(ctx, req, p.rules)
	if prometheus.Config.EnableLatency {
		prometheus.RequestLatency.WithLabelValues("oracle").Observe(float64(time.Since(start).Milliseconds()))
	}
	if err != nil {
		prometheus.OracleErrors.Inc()
		if p.failOpen && !oracle.IsCanceled(err) {
			p.logger.WithError(err).WithField("fingerprint", req.Fingerprint).Warn("oracle unavailable, failing open")
			d = domainDecision.NewErrorDecision(err)
			record(d, sourceFailOpen)
			return d, nil
		}
		return nil, fmt.Errorf("failed to protect request: %w", err)
	}

	if d.IsDenied() && d.TTL > 0 {
		ttl := time.Duration(d.TTL) * time.Second
		if err := p.cache.Set(ctx, req.Fingerprint, d.ForCache(p.now().Add(ttl)), ttl); err != nil {
			p.logger.WithError(err).WithField("fingerprint", req.Fingerprint).Warn("failed to cache deny decision")
		}
	}
	record(d, sourceOracle)
	return d, nil
}

func (p *protector) lookup(ctx context.Context, fingerprint string) *domainDecision.Decision {
	d, err := p.cache.Get(ctx, fingerprint)
	if err != nil {
		p.logger.WithError(err).WithField("fingerprint", fingerprint).Warn("deny cache lookup failed")
		return nil
	}
	now := p.now()
	if d == nil || d.Expired(now) {
		return nil
	}
	return d.Cached(now)
}

func record(d *domainDecision.Decision, source string) {
	prometheus.DecisionTotal.WithLabelValues(string(d.Conclusion), string(d.Reason.Kind), source).Inc()
}
