package middleware

import (
	"context"

	"github.com/NeuralTrust/ShieldGate/pkg/common"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/fingerprint"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type fingerPrintMiddleware struct {
	logger  *logrus.Logger
	tracker fingerprint.Tracker
}

func NewFingerPrintMiddleware(
	logger *logrus.Logger,
	tracker fingerprint.Tracker,
) Middleware {
	return &fingerPrintMiddleware{
		logger:  logger,
		tracker: tracker,
	}
}

func (m *fingerPrintMiddleware) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		fp := m.tracker.MakeFingerprint(ctx)
		fpID := fp.ID()
		ctx.Locals(common.FingerprintContextKey, fp)

		traceID := ctx.Get(common.TraceIDHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.New().String()
		}
		ctx.Locals(common.TraceIdKey, traceID)
		ctx.Set(common.TraceIDHeader, traceID)

		c := context.WithValue(ctx.UserContext(), common.FingerprintIdContextKey, fpID)
		c = context.WithValue(c, common.TraceIdKey, traceID)
		ctx.SetUserContext(c)
		return ctx.Next()
	}
}
