package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Clark-Hu/dishrank/internal/config"
	"github.com/Clark-Hu/dishrank/internal/metrics"
	"github.com/Clark-Hu/dishrank/internal/ratelimit"
	"github.com/Clark-Hu/dishrank/internal/repository"
	"github.com/Clark-Hu/dishrank/internal/store"
)

// Options carries the optional collaborators of the server.
type Options struct {
	Limiter  ratelimit.Store
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *log.Logger
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	store    *store.Store
	repo     *repository.Repository
	limiter  ratelimit.Store
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *log.Logger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes. A nil
// limiter falls back to an in-memory one sized by cfg.
func New(cfg config.Config, st *store.Store, repo *repository.Repository, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewMemory(cfg.RateLimitPerMinute)
	}

	s := &Server{
		cfg:      cfg,
		store:    st,
		repo:     repo,
		limiter:  opts.Limiter,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		logger:   opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recoverer)
	s.router = r
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.router.Get("/leaderboard", s.handleLeaderboard)

	s.router.Route("/items", func(r chi.Router) {
		r.Get("/", s.handleListItems)
		r.Post("/", s.handleCreateItem)
		r.Route("/{itemID}", func(r chi.Router) {
			r.Get("/", s.handleGetItem)
			r.Patch("/", s.handleUpdateItem)
			r.Delete("/", s.handleDeleteItem)
			r.Get("/ratings", s.handleListItemRatings)
			r.With(s.rateLimit).Post("/ratings", s.handleRateItem)
		})
	})

	s.router.Route("/groups", func(r chi.Router) {
		r.Get("/", s.handleListGroups)
		r.Post("/", s.handleCreateGroup)
		r.Get("/{groupID}", s.handleGetGroup)
		r.Patch("/{groupID}", s.handleUpdateGroup)
	})

	s.router.Route("/ratings", func(r chi.Router) {
		r.With(s.rateLimit).Post("/", s.handleSubmitRating)
		r.Delete("/{ratingID}", s.handleDeleteRating)
	})
	s.router.Get("/raters/{raterID}/ratings", s.handleListRaterRatings)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http: listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.Warn("healthz: database unreachable", "err", err)
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unreachable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
