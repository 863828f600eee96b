// Package store owns the Postgres connection pool behind the ranking
// service. Repositories borrow the pool; the metrics collector reads its stats.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotInitialized is returned by HealthCheck on a nil or closed store.
var ErrNotInitialized = errors.New("store: not initialized")

// Options tunes the pool. Zero values keep the pgxpool defaults, except
// StatementCacheCapacity where a negative value disables statement caching.
type Options struct {
	MaxConns               int32
	MinConns               int32
	MaxConnIdleTime        time.Duration
	MaxConnLifetime        time.Duration
	ConnTimeout            time.Duration
	StatementCacheCapacity int
	Logger                 *log.Logger
}

func (o Options) apply(cfg *pgxpool.Config) {
	if o.MaxConns > 0 {
		cfg.MaxConns = o.MaxConns
	}
	if o.MinConns > 0 {
		cfg.MinConns = o.MinConns
	}
	if o.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = o.MaxConnIdleTime
	}
	if o.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = o.MaxConnLifetime
	}
	if o.StatementCacheCapacity >= 0 {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
		cfg.ConnConfig.StatementCacheCapacity = o.StatementCacheCapacity
	}
}

// bounded derives a context limited by ConnTimeout, when one is set.
func (o Options) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.ConnTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.ConnTimeout)
}

// Store holds the pool shared by groups, items and ratings repositories.
type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	opts   Options
}

// New dials dbURL and pings it before returning.
func New(ctx context.Context, dbURL string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	opts.apply(cfg)
	logger.Info("store: opening pool",
		"max", cfg.MaxConns, "min", cfg.MinConns,
		"idle", cfg.MaxConnIdleTime, "life", cfg.MaxConnLifetime,
		"stmt_cache", opts.StatementCacheCapacity)

	dialCtx, cancel := opts.bounded(ctx)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(dialCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("store: pool ready", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return &Store{pool: pool, logger: logger, opts: opts}, nil
}

// WithPool adopts a pool opened elsewhere, such as a test database.
func WithPool(pool *pgxpool.Pool, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{pool: pool, logger: logger}
}

func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.logger.Info("store: closing pool")
	s.pool.Close()
}

// HealthCheck pings the database within ConnTimeout.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return ErrNotInitialized
	}
	pingCtx, cancel := s.opts.bounded(ctx)
	defer cancel()
	return s.pool.Ping(pingCtx)
}

func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Stats feeds the db_pool_* gauges. A nil store reports nil.
func (s *Store) Stats() *pgxpool.Stat {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Stat()
}
