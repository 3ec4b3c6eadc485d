package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NeuralTrust/ShieldGate/pkg/common"
	"github.com/NeuralTrust/ShieldGate/pkg/config"
	"github.com/NeuralTrust/ShieldGate/pkg/domain/decision"
	"github.com/NeuralTrust/ShieldGate/pkg/domain/rule"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/httpx"
	"github.com/NeuralTrust/ShieldGate/pkg/version"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

const (
	decidePath   = "/proto.decide.v1alpha1.DecideService/Decide"
	maxErrorBody = 512
)

var (
	ErrFailedOracleCall = errors.New("oracle call failed")
	ErrMissingKey       = errors.New("oracle key is not configured")
	ErrInvalidResponse  = errors.New("invalid oracle response")
)

type ArcjetClient struct {
	client         httpx.Client
	circuitBreaker httpx.CircuitBreaker
	logger         *logrus.Logger
	baseURL        string
	key            string
	timeout        time.Duration
	parsers        fastjson.ParserPool
}

func NewArcjetClient(cfg config.OracleConfig, logger *logrus.Logger, opts ...ArcjetClientOption) *ArcjetClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = common.DefaultOracleTimeout
	}
	breakerTimeout := cfg.Breaker.Timeout
	if breakerTimeout <= 0 {
		breakerTimeout = common.DefaultBreakerTimeout
	}

	c := &ArcjetClient{
		client: httpx.NewFastHTTPClient(
			httpx.WithTimeout(timeout),
			httpx.WithMaxConnsPerHost(cfg.MaxConnsPerHost),
			httpx.WithUserAgent(version.UserAgent()),
		),
		circuitBreaker: httpx.NewCircuitBreaker("oracle", breakerTimeout, cfg.Breaker.MaxFailures,
			httpx.WithIgnoredErrors(IsCanceled),
		),
		logger:  logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		key:     cfg.Key,
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsCanceled reports errors caused by the caller going away rather than the oracle failing.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

func (c *ArcjetClient) Protect(ctx context.Context, req ProtectRequest, rules []rule.Rule) (*decision.Decision, error) {
	if c.key == "" {
		return nil, ErrMissingKey
	}

	body, err := json.Marshal(newDecideRequest(req, rules))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal decide request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result *decision.Decision
	err = c.circuitBreaker.Execute(func() error {
		var callErr error
		result, callErr = c.decide(ctx, body)
		return callErr
	})
	if err != nil {
		if !IsCanceled(err) {
			c.logger.WithError(err).WithField("fingerprint", req.Fingerprint).Error("oracle decide failed")
		}
		return nil, err
	}
	return result, nil
}

func (c *ArcjetClient) decide(ctx context.Context, body []byte) (*decision.Decision, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+decidePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create decide request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.key)
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedOracleCall, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read decide response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := respBody
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"body":        string(snippet),
		}).Error("oracle returned non-200 status")
		return nil, fmt.Errorf("%w: status %d", ErrFailedOracleCall, resp.StatusCode)
	}

	p := c.parsers.Get()
	defer c.parsers.Put(p)
	v, err := p.ParseBytes(respBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return parseDecision(v.Get("decision"))
}
