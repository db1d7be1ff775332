package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveHTTP(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET /service/{service_id}", "GET", "200"))
	ObserveHTTP("GET /service/{service_id}", "GET", 200, 3*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequests.WithLabelValues("GET /service/{service_id}", "GET", "200"))
	if after-before != 1 {
		t.Fatalf("counter moved by %v, want 1", after-before)
	}

	ObserveHTTP("", "GET", 404, time.Millisecond)
	if v := testutil.ToFloat64(HTTPRequests.WithLabelValues("unmatched", "GET", "404")); v < 1 {
		t.Fatalf("unmatched counter = %v", v)
	}
}

func TestResult(t *testing.T) {
	if Result(nil) != "ok" || Result(errors.New("x")) != "error" {
		t.Fatal("unexpected result labels")
	}
}

func TestExposer(t *testing.T) {
	RateLimited.Inc()

	rec := httptest.NewRecorder()
	Exposer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ledger_rate_limited_total") {
		t.Fatal("exposition is missing ledger_rate_limited_total")
	}
}
