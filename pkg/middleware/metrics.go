package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/ShieldGate/pkg/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	metricsWorkers   = 2
	metricsQueueSize = 1000
)

type metricsMiddleware struct {
	logger   *logrus.Logger
	taskChan chan func()
}

func NewMetricsMiddleware(logger *logrus.Logger) Middleware {
	m := &metricsMiddleware{
		logger:   logger,
		taskChan: make(chan func(), metricsQueueSize),
	}
	m.startWorkers(metricsWorkers)
	return m
}

func (m *metricsMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()

		err := c.Next()

		elapsed := time.Since(startTime)
		method := c.Method()
		status := statusOf(c, err)

		m.enqueueTask(func() {
			prometheus.RequestTotal.WithLabelValues(method, statusClass(status)).Inc()
			if prometheus.Config.EnableLatency {
				prometheus.RequestLatency.WithLabelValues("total").Observe(float64(elapsed.Milliseconds()))
			}
		})
		return err
	}
}

// statusOf resolves the final status. Errors are rendered by the app error handler
// after the middleware chain unwinds, so the response code is not set yet.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

func (m *metricsMiddleware) startWorkers(n int) {
	for i := 0; i < n; i++ {
		go func() {
			for task := range m.taskChan {
				task()
			}
		}()
	}
}

func (m *metricsMiddleware) enqueueTask(task func()) {
	select {
	case m.taskChan <- task:
	default:
		m.logger.Warn("metrics queue full, dropping sample")
	}
}
