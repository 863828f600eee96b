package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetrics_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()
		if err := m.Register(reg); err != nil {
			t.Fatalf("Register() returned error: %v", err)
		}

		m.IncRatingsSubmitted()
		m.IncRatingsDeleted()
		m.IncRateLimitBlocked()
		m.IncRateLimitErrors()
		m.ObserveHTTPRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
		m.ObserveLeaderboardBuild("trusted", time.Millisecond)

		families, err := reg.Gather()
		if err != nil {
			t.Fatalf("Gather() returned error: %v", err)
		}
		expected := map[string]bool{
			MetricHTTPRequestsTotal:        false,
			MetricHTTPRequestDuration:      false,
			MetricRatingsSubmitted:         false,
			MetricRatingsDeleted:           false,
			MetricLeaderboardBuildDuration: false,
			MetricRateLimitBlocked:         false,
			MetricRateLimitErrors:          false,
		}
		for _, family := range families {
			if _, ok := expected[family.GetName()]; ok {
				expected[family.GetName()] = true
			}
		}
		for name, found := range expected {
			if !found {
				t.Errorf("metric %s not found in gathered metrics", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		if err := NewMetrics().Register(reg); err != nil {
			t.Fatalf("first Register() returned error: %v", err)
		}
		if err := NewMetrics().Register(reg); err == nil {
			t.Fatalf("expected duplicate registration to fail")
		}
	})
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.IncRatingsSubmitted()
	m.IncRatingsSubmitted()
	m.IncRatingsDeleted()

	if got := counterValue(t, m.ratingsSubmitted); got != 2 {
		t.Fatalf("ratings submitted = %v, want 2", got)
	}
	if got := counterValue(t, m.ratingsDeleted); got != 1 {
		t.Fatalf("ratings deleted = %v, want 1", got)
	}
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := NewMetrics()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{itemID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		req := httptest.NewRequest(http.MethodGet, "/items/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	counter, err := m.httpRequestsTotal.GetMetricWithLabelValues(http.MethodGet, "/items/{itemID}", "404")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues: %v", err)
	}
	if got := counterValue(t, counter); got != 3 {
		t.Fatalf("requests for route pattern = %v, want 3", got)
	}
}

type fakePool struct{}

func (fakePool) Stats() *pgxpool.Stat { return nil }

func TestRegisterPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := RegisterPool(reg, fakePool{}); err != nil {
		t.Fatalf("RegisterPool() returned error: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() returned error: %v", err)
	}
	if len(families) != 3 {
		t.Fatalf("gathered %d families, want 3", len(families))
	}
	for _, family := range families {
		if v := family.GetMetric()[0].GetGauge().GetValue(); v != 0 {
			t.Fatalf("%s = %v, want 0 without a pool", family.GetName(), v)
		}
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}
