package httpserver

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("http: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// rateLimit throttles rating submissions per rater, falling back to the
// client address for anonymous callers. Limiter failures let the request
// through.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter, err := s.limiter.Allow(r.Context(), rateLimitKey(r))
		if err != nil {
			s.metrics.IncRateLimitErrors()
			s.logger.Warn("ratelimit: store error, allowing request", "err", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			s.metrics.IncRateLimitBlocked()
			seconds := int(retryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			s.respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many ratings, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimitKey(r *http.Request) string {
	if rater := strings.TrimSpace(r.Header.Get("X-Rater-Id")); rater != "" {
		return "rater:" + rater
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
