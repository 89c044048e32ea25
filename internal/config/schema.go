package config

import "time"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the top-level YAML structure.
type Config struct {
	Environment string        `yaml:"environment"`
	Server      ServerConf    `yaml:"server"`
	Database    DatabaseConf  `yaml:"database"`
	Ingest      IngestConf    `yaml:"ingest"`
	GitHub      GitHubConf    `yaml:"github"`
	Retention   RetentionConf `yaml:"retention"`
	RateLimit   RateLimitConf `yaml:"ratelimit"`
	Logging     LoggingConf   `yaml:"logging"`
}

// ServerConf holds HTTP listener settings.
type ServerConf struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	StaticDir       string        `yaml:"static_dir"`      // empty disables the dashboard
	TrustProxy      bool          `yaml:"trust_proxy"`     // take the client IP from X-Forwarded-For
	AllowedOrigins  []string      `yaml:"allowed_origins"` // CORS and WebSocket origins, empty = any
}

// DatabaseConf selects the event store backend.
type DatabaseConf struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	DSN    string `yaml:"dsn"`
}

// IngestConf sizes the ingestion worker pool.
type IngestConf struct {
	Workers          int      `yaml:"workers"`
	QueueDepth       int      `yaml:"queue_depth"`
	EventTypeHeaders []string `yaml:"event_type_headers"`
}

// GitHubConf configures the signed GitHub endpoint.
type GitHubConf struct {
	Secret    string `yaml:"secret"`
	Algorithm string `yaml:"algorithm"`
}

// MaxRetentionDays is the longest retention window a config may ask for.
const MaxRetentionDays = 36500

// RetentionConf controls the periodic purge of old webhooks.
type RetentionConf struct {
	Enabled  bool          `yaml:"enabled"`
	Days     int           `yaml:"days"`
	Interval time.Duration `yaml:"interval"`
}

// RateLimitConf configures the per-IP request budget.
type RateLimitConf struct {
	Enabled  bool          `yaml:"enabled"`
	RedisURL string        `yaml:"redis_url"` // empty = in-process limiter
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// LoggingConf configures the slog handler.
type LoggingConf struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default returns the configuration used for any setting the file omits.
func Default() *Config {
	return &Config{
		Environment: EnvProduction,
		Server: ServerConf{
			Addr:            ":3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    10 << 20,
		},
		Database: DatabaseConf{
			Driver: "sqlite",
			DSN:    "file:webhooks.db?_busy_timeout=5000",
		},
		Ingest: IngestConf{
			Workers:    8,
			QueueDepth: 1024,
			EventTypeHeaders: []string{
				"X-Event-Type", "X-GitHub-Event", "X-GitLab-Event", "X-Hook-Event",
			},
		},
		GitHub: GitHubConf{Algorithm: "sha256"},
		Retention: RetentionConf{
			Enabled:  true,
			Days:     30,
			Interval: 24 * time.Hour,
		},
		RateLimit: RateLimitConf{
			Enabled:  true,
			Requests: 1000,
			Window:   15 * time.Minute,
		},
		Logging: LoggingConf{Level: "info", Format: "text"},
	}
}

// IsDevelopment reports whether error details may be exposed to callers.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}
