package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newPromApp(t *testing.T) (*fiber.App, *PrometheusMiddleware, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	pm, err := NewPrometheusMiddleware(reg)
	if err != nil {
		t.Fatalf("failed to create middleware: %v", err)
	}
	app := fiber.New()
	app.Use(pm.Handler())
	return app, pm, reg
}

func TestPrometheusMiddleware(t *testing.T) {
	app, pm, _ := newPromApp(t)

	app.Get("/images", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Delete("/images/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Post("/images/upload", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded")
	})

	resp, _ := app.Test(httptest.NewRequest("GET", "/images", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if count := testutil.ToFloat64(pm.requestCount.WithLabelValues("GET", "/images", "200")); count != 1 {
		t.Errorf("expected count 1 for list, got %f", count)
	}

	app.Test(httptest.NewRequest("DELETE", "/images/6650c0ffee0000000000abcd", nil))
	if count := testutil.ToFloat64(pm.requestCount.WithLabelValues("DELETE", "/images/:id", "200")); count != 1 {
		t.Errorf("expected count 1 for delete pattern, got %f", count)
	}

	app.Test(httptest.NewRequest("POST", "/images/upload", nil))
	if count := testutil.ToFloat64(pm.requestCount.WithLabelValues("POST", "/images/upload", "400")); count != 1 {
		t.Errorf("expected count 1 for rejected upload, got %f", count)
	}

	app.Test(httptest.NewRequest("GET", "/wp-admin/setup.php", nil))
	if count := testutil.ToFloat64(pm.requestCount.WithLabelValues("GET", unmatchedRoute, "404")); count != 1 {
		t.Errorf("expected unknown path under %q label, got %f", unmatchedRoute, count)
	}

	if n := testutil.CollectAndCount(pm.requestDuration); n == 0 {
		t.Error("expected histogram metrics to be collected, got 0")
	}
	if v := testutil.ToFloat64(pm.inFlight); v != 0 {
		t.Errorf("expected no requests in flight, got %f", v)
	}
}

func TestPrometheusMiddleware_ExcludeMetrics(t *testing.T) {
	app, _, reg := newPromApp(t)

	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Test(httptest.NewRequest("GET", "/metrics", nil))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "http_requests_total" && len(mf.GetMetric()) > 0 {
			t.Errorf("expected 0 metrics for http_requests_total, got %d", len(mf.GetMetric()))
		}
	}
}

func TestPrometheusMiddleware_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMiddleware(reg); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := NewPrometheusMiddleware(reg); err == nil {
		t.Error("expected error on duplicate registration")
	}
}
