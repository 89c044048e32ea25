package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for missing or out-of-range settings and
// reports every problem found, not just the first.
func Validate(cfg *Config) error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch cfg.Environment {
	case EnvDevelopment, EnvProduction, "test":
	default:
		add("environment: unknown value %q", cfg.Environment)
	}

	if cfg.Server.Addr == "" {
		add("server.addr is required")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		add("server.max_body_bytes must be positive")
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 || cfg.Server.IdleTimeout < 0 {
		add("server timeouts must not be negative")
	}

	switch strings.ToLower(cfg.Database.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
	default:
		add("database.driver: unsupported driver %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		add("database.dsn is required")
	}

	if cfg.Ingest.Workers <= 0 {
		add("ingest.workers must be positive")
	}
	if cfg.Ingest.QueueDepth <= 0 {
		add("ingest.queue_depth must be positive")
	}
	for i, h := range cfg.Ingest.EventTypeHeaders {
		if strings.TrimSpace(h) == "" {
			add("ingest.event_type_headers[%d] is empty", i)
		}
	}

	switch cfg.GitHub.Algorithm {
	case "sha256", "sha1":
	default:
		add("github.algorithm: unsupported algorithm %q", cfg.GitHub.Algorithm)
	}

	if cfg.Retention.Days < 0 {
		add("retention.days must not be negative")
	}
	if cfg.Retention.Days > MaxRetentionDays {
		add("retention.days must be at most %d", MaxRetentionDays)
	}
	if cfg.Retention.Enabled && cfg.Retention.Interval <= 0 {
		add("retention.interval must be positive when retention is enabled")
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Requests <= 0 {
			add("ratelimit.requests must be positive")
		}
		if cfg.RateLimit.Window <= 0 {
			add("ratelimit.window must be positive")
		}
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level: unknown level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		add("logging.format: unknown format %q", cfg.Logging.Format)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
