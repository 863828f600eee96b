package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/Clark-Hu/dishrank/internal/config"
	httpserver "github.com/Clark-Hu/dishrank/internal/http"
	"github.com/Clark-Hu/dishrank/internal/logging"
	"github.com/Clark-Hu/dishrank/internal/metrics"
	"github.com/Clark-Hu/dishrank/internal/ratelimit"
	"github.com/Clark-Hu/dishrank/internal/repository"
	"github.com/Clark-Hu/dishrank/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config error", "err", err)
	}

	logger, err := logging.New(os.Stdout, logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Prefix: "dishrank"})
	if err != nil {
		log.Fatal("logger error", "err", err)
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Fatal("connect database", "err", err)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics()
	if err := m.Register(reg); err != nil {
		logger.Fatal("register metrics", "err", err)
	}
	if err := metrics.RegisterPool(reg, st); err != nil {
		logger.Fatal("register pool metrics", "err", err)
	}

	limiter, closeLimiter := newLimiter(ctx, cfg, logger)
	defer closeLimiter()

	repo := repository.New(st)
	server := httpserver.New(cfg, st, repo, httpserver.Options{
		Limiter:  limiter,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", "err", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown error", "err", err)
	}
	logger.Info("shutdown complete")
}

// newLimiter picks the Redis store when REDIS_URL is set and reachable,
// otherwise an in-memory one.
func newLimiter(ctx context.Context, cfg config.Config, logger *log.Logger) (ratelimit.Store, func()) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("parse REDIS_URL", "err", err)
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err = client.Ping(pingCtx).Err()
		if err == nil {
			logger.Info("ratelimit: using redis", "addr", opts.Addr, "per_minute", cfg.RateLimitPerMinute)
			return ratelimit.NewRedis(client, cfg.RateLimitPerMinute), func() { _ = client.Close() }
		}
		logger.Warn("ratelimit: redis unreachable, falling back to memory", "err", err)
		_ = client.Close()
	}

	mem := ratelimit.NewMemory(cfg.RateLimitPerMinute)
	go mem.RunCleanup(ctx, time.Minute, 10*time.Minute)
	logger.Info("ratelimit: using in-memory store", "per_minute", cfg.RateLimitPerMinute)
	return mem, func() {}
}
