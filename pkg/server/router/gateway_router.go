package router

import (
	"net/http"

	handlers "github.com/NeuralTrust/ShieldGate/pkg/handlers/http"
	"github.com/NeuralTrust/ShieldGate/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

const (
	HealthPath  = "/health"
	PingPath    = "/__/ping"
	VersionPath = "/version"
)

type gatewayRouter struct {
	middlewareTransport middleware.Transport
	handlerTransport    handlers.HandlerTransport
	decisionRoute       string
}

func NewGatewayRouter(
	middlewareTransport middleware.Transport,
	handlerTransport handlers.HandlerTransport,
	decisionRoute string,
) ServerRouter {
	return &gatewayRouter{
		middlewareTransport: middlewareTransport,
		handlerTransport:    handlerTransport,
		decisionRoute:       decisionRoute,
	}
}

func (r *gatewayRouter) BuildRoutes(router *fiber.App) error {
	h := r.handlerTransport
	if h.DecisionHandler == nil || h.HealthHandler == nil || h.GetVersionHandler == nil {
		return ErrMissingHandler
	}

	if m := r.middlewareTransport.PanicRecoverMiddleware; m != nil {
		router.Use(m.Middleware())
	}

	router.Get(HealthPath, h.HealthHandler.Handle)
	router.Get(VersionPath, h.GetVersionHandler.Handle)

	pong := func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"message": "pong",
		})
	}
	router.Get(PingPath, pong)
	router.Post(PingPath, pong)

	chain := make([]fiber.Handler, 0, 3)
	for _, m := range []middleware.Middleware{
		r.middlewareTransport.MetricsMiddleware,
		r.middlewareTransport.FingerprintMiddleware,
	} {
		if m != nil {
			chain = append(chain, m.Middleware())
		}
	}
	chain = append(chain, h.DecisionHandler.Handle)

	router.Get(r.decisionRoute, chain...)
	router.Post(r.decisionRoute, chain...)
	return nil
}
