package http

import (
	"strconv"
	"strings"

	appDecision "github.com/NeuralTrust/ShieldGate/pkg/app/decision"
	"github.com/NeuralTrust/ShieldGate/pkg/common"
	"github.com/NeuralTrust/ShieldGate/pkg/config"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/fingerprint"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/oracle"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/prometheus"
	"github.com/NeuralTrust/ShieldGate/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// headers that never leave the gateway
var redactedHeaders = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"x-api-key":     {},
}

type decisionHandler struct {
	logger    *logrus.Logger
	protector appDecision.Protector
	tracker   fingerprint.Tracker
	opts      appDecision.Options
	requested int
}

func NewDecisionHandler(
	logger *logrus.Logger,
	protector appDecision.Protector,
	tracker fingerprint.Tracker,
	cfg config.DecisionConfig,
) Handler {
	return &decisionHandler{
		logger:    logger,
		protector: protector,
		tracker:   tracker,
		opts:      appDecision.OptionsFromConfig(cfg),
		requested: cfg.Requested,
	}
}

// Handle serves GET and POST alike. The request body is never read.
func (h *decisionHandler) Handle(c *fiber.Ctx) error {
	force := c.Query("force")
	if resp, ok := appDecision.Forced(force, h.opts); ok {
		prometheus.ForcedTotal.WithLabelValues(force).Inc()
		return h.write(c, resp)
	}

	fp := h.fingerprint(c)
	req := oracle.ProtectRequest{
		Fingerprint: fp.ID(),
		Requested:   h.requested,
		Details:     requestDetails(c, fp),
	}

	d, err := h.protector.Protect(c.UserContext(), req)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"trace_id":    c.Locals(common.TraceIdKey),
			"fingerprint": req.Fingerprint,
		}).Error("failed to obtain decision")
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"trace_id":    c.Locals(common.TraceIdKey),
		"fingerprint": req.Fingerprint,
		"conclusion":  d.Conclusion,
		"decision":    d,
	}).Info("decision")

	debug := c.Request().URI().QueryArgs().Has("debug")
	return h.write(c, appDecision.Respond(d, debug, h.opts))
}

func (h *decisionHandler) fingerprint(c *fiber.Ctx) fingerprint.Fingerprint {
	if fp, ok := c.Locals(common.FingerprintContextKey).(fingerprint.Fingerprint); ok {
		return fp
	}
	return h.tracker.MakeFingerprint(c)
}

func (h *decisionHandler) write(c *fiber.Ctx, resp appDecision.Response) error {
	if resp.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(resp.RetryAfter))
	}
	return c.Status(resp.Status).JSON(resp)
}

func requestDetails(c *fiber.Ctx, fp fingerprint.Fingerprint) oracle.RequestDetails {
	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := strings.ToLower(string(key))
		if _, skip := redactedHeaders[k]; skip {
			return
		}
		headers[k] = string(value)
	})

	return oracle.RequestDetails{
		IP:       fp.IP,
		Method:   c.Method(),
		Protocol: c.Protocol(),
		Host:     fp.Host,
		Path:     c.Path(),
		Query:    string(c.Request().URI().QueryString()),
		Headers:  headers,
		Extra:    utils.ParseUserAgent(fp.UserAgent, c.Get(fiber.HeaderAcceptLanguage)).Map(),
	}
}
