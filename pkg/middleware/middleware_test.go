package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/NeuralTrust/ShieldGate/pkg/common"
	"github.com/NeuralTrust/ShieldGate/pkg/infra/fingerprint"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestFingerPrintMiddleware(t *testing.T) {
	tracker, err := fingerprint.NewTracker(true, nil)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(NewFingerPrintMiddleware(testLogger(), tracker).Middleware())
	app.Get("/", func(c *fiber.Ctx) error {
		fp, ok := c.Locals(common.FingerprintContextKey).(fingerprint.Fingerprint)
		require.True(t, ok)
		assert.Equal(t, fp.ID(), c.UserContext().Value(common.FingerprintIdContextKey))
		assert.Equal(t, c.Locals(common.TraceIdKey), c.UserContext().Value(common.TraceIdKey))
		return c.SendString(fp.IP)
	})

	t.Run("generates trace id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Real-IP", "203.0.113.9")
		resp, err := app.Test(req)
		require.NoError(t, err)

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "203.0.113.9", string(body))
		_, err = uuid.Parse(resp.Header.Get(common.TraceIDHeader))
		assert.NoError(t, err)
	})

	t.Run("reuses valid incoming trace id", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(common.TraceIDHeader, id)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, id, resp.Header.Get(common.TraceIDHeader))
	})

	t.Run("replaces malformed trace id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(common.TraceIDHeader, "not-a-uuid")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.NotEqual(t, "not-a-uuid", resp.Header.Get(common.TraceIDHeader))
	})
}

func TestPanicRecoverMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(NewPanicRecoverMiddleware(testLogger()).Middleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Internal server error", body["error"])
}

func TestMetricsMiddleware_PassesThrough(t *testing.T) {
	app := fiber.New()
	app.Use(NewMetricsMiddleware(testLogger()).Middleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusTeapot)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
}

func TestStatusOf(t *testing.T) {
	app := fiber.New()
	var got []int
	app.Get("/", func(c *fiber.Ctx) error {
		c.Status(fiber.StatusAccepted)
		got = append(got,
			statusOf(c, nil),
			statusOf(c, fiber.NewError(fiber.StatusBadGateway, "bad")),
			statusOf(c, errors.New("plain")),
		)
		return nil
	})
	_, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	assert.Equal(t, []int{202, 502, 500}, got)
	assert.Equal(t, "4xx", statusClass(429))
}
