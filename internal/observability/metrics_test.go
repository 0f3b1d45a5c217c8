package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/projects", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/projects", "GET", 200, 30*time.Millisecond)
	m.RecordError("/projects/:id", "GET", "NOT_FOUND")

	snap := m.Snapshot()
	if got := snap.Requests["/projects|GET|200"]; got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
	if got := snap.AverageLatencyMS["/projects|GET|200"]; got != 20 {
		t.Fatalf("expected 20ms average, got %v", got)
	}
	if got := snap.Errors["/projects/:id|GET|NOT_FOUND"]; got != 1 {
		t.Fatalf("expected 1 error, got %d", got)
	}

	snap.Requests["/projects|GET|200"] = 99
	if m.Snapshot().Requests["/projects|GET|200"] != 2 {
		t.Fatal("snapshot must not alias internal state")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	if len(m.Snapshot().Requests) != 0 {
		t.Fatal("expected empty snapshot")
	}
}

func TestRequestLoggerRecordsRoutePattern(t *testing.T) {
	metrics := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), metrics))
	app.Get("/projects/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/projects/abc", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if got := metrics.Snapshot().Requests["/projects/:id|GET|204"]; got != 1 {
		t.Fatalf("expected route pattern counter, got %v", metrics.Snapshot().Requests)
	}
}
