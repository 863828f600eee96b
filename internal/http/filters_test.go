package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Clark-Hu/dishrank/internal/config"
	"github.com/Clark-Hu/dishrank/internal/logging"
	"github.com/Clark-Hu/dishrank/internal/repository"
)

func TestBuildItemFilters(t *testing.T) {
	values, _ := url.ParseQuery("q= ramen &groupId= g1 &limit=150")

	filters, err := buildItemFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Query == nil || *filters.Query != "ramen" {
		t.Fatalf("query not trimmed: %+v", filters.Query)
	}
	if filters.GroupID == nil || *filters.GroupID != "g1" {
		t.Fatalf("groupId parse failed: %+v", filters.GroupID)
	}
	if filters.Limit != 100 {
		t.Fatalf("limit not clamped: %d", filters.Limit)
	}
}

func TestBuildItemFilters_Invalid(t *testing.T) {
	for _, raw := range []string{"limit=abc", "limit=-3", "cursor=not-base64!"} {
		values, _ := url.ParseQuery(raw)
		if _, err := buildItemFilters(values); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestBuildItemFilters_Cursor(t *testing.T) {
	values := url.Values{"cursor": {"eyJjcmVhdGVkQXQiOiIyMDI0LTAxLTAxVDAwOjAwOjAwWiIsImlkIjoiYWJjIn0="}}
	filters, err := buildItemFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Cursor == nil || filters.Cursor.ID != "abc" {
		t.Fatalf("cursor = %+v", filters.Cursor)
	}
}

func TestVerifyBearer(t *testing.T) {
	srv := &Server{cfg: config.Config{AuthToken: "secret"}}
	cases := []struct {
		header  string
		allowed bool
	}{
		{"Bearer secret", true},
		{"Bearer secret ", true},
		{"Bearer other", false},
		{"secret", false},
		{"", false},
	}
	for _, c := range cases {
		if srv.verifyBearer(c.header) != c.allowed {
			t.Fatalf("verifyBearer(%q) expected %v", c.header, c.allowed)
		}
	}
}

func TestStarValue(t *testing.T) {
	tests := []struct {
		pct  int
		want float64
	}{
		{0, 0},
		{50, 2.5},
		{70, 3.5},
		{81, 4},
		{100, 5},
	}
	for _, tt := range tests {
		if got := starValue(tt.pct); got != tt.want {
			t.Fatalf("starValue(%d) = %v, want %v", tt.pct, got, tt.want)
		}
	}
}

func TestRateLimitKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ratings", nil)
	req.RemoteAddr = "203.0.113.9:4242"
	if got := rateLimitKey(req); got != "ip:203.0.113.9" {
		t.Fatalf("anonymous key = %s", got)
	}
	req.Header.Set("X-Rater-Id", " alice ")
	if got := rateLimitKey(req); got != "rater:alice" {
		t.Fatalf("rater key = %s", got)
	}
}

type stubLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
}

func (s stubLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return s.allowed, s.retryAfter, s.err
}

func TestRateLimitMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		limiter    stubLimiter
		wantStatus int
		wantRetry  string
	}{
		{name: "allowed", limiter: stubLimiter{allowed: true}, wantStatus: http.StatusNoContent},
		{name: "blocked", limiter: stubLimiter{retryAfter: 1500 * time.Millisecond}, wantStatus: http.StatusTooManyRequests, wantRetry: "2"},
		{name: "store error fails open", limiter: stubLimiter{err: errors.New("redis down")}, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(config.Config{RateLimitPerMinute: 1}, nil, repository.NewWithPool(nil), Options{
				Limiter:  tt.limiter,
				Gatherer: prometheus.NewRegistry(),
				Logger:   logging.Discard(),
			})
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})

			rec := httptest.NewRecorder()
			srv.rateLimit(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ratings", nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Retry-After"); got != tt.wantRetry {
				t.Fatalf("Retry-After = %q, want %q", got, tt.wantRetry)
			}
		})
	}
}
