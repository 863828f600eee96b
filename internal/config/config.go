package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config captures all runtime configuration. Values come from environment
// variables, falling back to the optional YAML file named by CONFIG_FILE and
// then to defaults.
type Config struct {
	Port               string
	AuthToken          string
	DBURL              string
	ReadTimeoutSecs    int
	WriteTimeoutSecs   int
	IdleTimeoutSecs    int
	DBMaxConns         int
	DBMinConns         int
	DBMaxIdleSecs      int
	DBMaxLifeSecs      int
	DBConnTimeoutSecs  int
	DBStatementCache   int
	RedisURL           string
	RateLimitPerMinute int
	LogLevel           string
	LogFormat          string
}

// Load reads configuration, applying defaults and validation.
func Load() (Config, error) {
	k := koanf.New(".")
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	src := source{k: k}
	cfg := Config{
		Port:               src.str("PORT", "port", "8080"),
		AuthToken:          src.str("AUTH_TOKEN", "auth_token", ""),
		DBURL:              src.str("DB_URL", "db_url", ""),
		ReadTimeoutSecs:    src.int("SERVER_READ_TIMEOUT", "server.read_timeout", 15),
		WriteTimeoutSecs:   src.int("SERVER_WRITE_TIMEOUT", "server.write_timeout", 15),
		IdleTimeoutSecs:    src.int("SERVER_IDLE_TIMEOUT", "server.idle_timeout", 60),
		DBMaxConns:         src.int("DB_MAX_CONNS", "db.max_conns", 20),
		DBMinConns:         src.int("DB_MIN_CONNS", "db.min_conns", 2),
		DBMaxIdleSecs:      src.int("DB_MAX_CONN_IDLE_SECS", "db.max_conn_idle_secs", 300),
		DBMaxLifeSecs:      src.int("DB_MAX_CONN_LIFETIME_SECS", "db.max_conn_lifetime_secs", 3600),
		DBConnTimeoutSecs:  src.int("DB_CONN_TIMEOUT_SECS", "db.conn_timeout_secs", 10),
		DBStatementCache:   src.int("DB_STATEMENT_CACHE_CAPACITY", "db.statement_cache_capacity", 256),
		RedisURL:           src.str("REDIS_URL", "redis_url", ""),
		RateLimitPerMinute: src.int("RATE_LIMIT_PER_MINUTE", "rate_limit_per_minute", 30),
		LogLevel:           src.str("LOG_LEVEL", "log.level", "info"),
		LogFormat:          src.str("LOG_FORMAT", "log.format", "text"),
	}

	if cfg.AuthToken == "" {
		return Config{}, fmt.Errorf("AUTH_TOKEN is required")
	}
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if cfg.RateLimitPerMinute <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}

	return cfg, nil
}

type source struct {
	k *koanf.Koanf
}

func (s source) str(env, key, fallback string) string {
	if val := os.Getenv(env); val != "" {
		return val
	}
	if val := s.k.String(key); val != "" {
		return val
	}
	return fallback
}

func (s source) int(env, key string, fallback int) int {
	if val := os.Getenv(env); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	if s.k.Exists(key) {
		return s.k.Int(key)
	}
	return fallback
}
