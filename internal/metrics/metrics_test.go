package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg, reg)

	m.ObserveOperation("create_request", "ok")
	m.ObserveOperation("create_request", "ok")
	m.ObserveOperation("create_request", "duplicate")

	if got := testutil.ToFloat64(m.operations.WithLabelValues("create_request", "ok")); got != 2 {
		t.Fatalf("expected 2 ok operations got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("create_request", "duplicate")); got != 1 {
		t.Fatalf("expected 1 duplicate operation got %v", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("accept", "ok")
	m.ObservePublishFailure("friendship.accepted")
	m.ObserveRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObservePublishFailure("friendship.blocked")
	m.ObserveRequest(http.MethodPost, "/api/v1/friends/requests", http.StatusCreated, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"communiconnect_friendships_event_publish_failures_total",
		"communiconnect_http_request_duration_seconds",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}
