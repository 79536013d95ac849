package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registration-api/internal/observability"
)

func TestObservabilityRecordsAPIRequests(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	app := fiber.New()
	Register(app, Config{Logger: &logger})
	app.Get("/api/widgets/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})
	app.Get("/metrics-free", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	before := testutil.ToFloat64(observability.HTTPErrors().WithLabelValues(http.MethodGet, "/api/widgets/:id", "404"))

	req := httptest.NewRequest(http.MethodGet, "/api/widgets/3", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, "corr-123", resp.Header.Get("X-Correlation-ID"))

	after := testutil.ToFloat64(observability.HTTPErrors().WithLabelValues(http.MethodGet, "/api/widgets/:id", "404"))
	require.Equal(t, before+1, after)
	require.Contains(t, logs.String(), `"correlation_id":"corr-123"`)
	require.Contains(t, logs.String(), `"route":"/api/widgets/:id"`)

	logs.Reset()
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics-free", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
	require.Empty(t, logs.String())
}
