package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader reads a YAML config file and watches it for changes.
type Loader struct {
	path     string
	logger   *slog.Logger
	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
}

// NewLoader creates a Loader and performs the initial load. A missing file is
// not an error: defaults and environment overrides apply.
func NewLoader(path string, logger *slog.Logger) (*Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{path: path, logger: logger}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Path returns the watched file.
func (l *Loader) Path() string { return l.path }

// Config returns the current (latest) configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads the config on file changes.
// The parent directory is watched so editors that replace the file are seen.
// Call the returned stop function to clean up.
func (l *Loader) Watch() (stop func(), err error) {
	if l.path == "" {
		return nil, errors.New("config watcher: no config file")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", dir, err)
	}
	target := filepath.Clean(l.path)

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						l.logger.Warn("config reload failed, keeping previous config", "path", l.path, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("config watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// Reload forces an immediate re-read of the config file. An invalid file
// leaves the current config in place.
func (l *Loader) Reload() (*Config, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*Config), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

func (l *Loader) load() (*Config, error) {
	cfg := Default()
	if l.path != "" {
		data, err := os.ReadFile(l.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			l.logger.Info("config file not found, using defaults", "path", l.path)
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", l.path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", l.path, err)
			}
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// applyEnv lets the deployment environment override the file.
func applyEnv(cfg *Config) {
	if v := env("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := env("DB_PATH"); v != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = v
	}
	if v := env("DATABASE_URL"); v != "" {
		cfg.Database.Driver = "postgres"
		cfg.Database.DSN = v
	}
	if v := env("GITHUB_WEBHOOK_SECRET"); v != "" {
		cfg.GitHub.Secret = v
	}
	if v := env("REDIS_URL"); v != "" {
		cfg.RateLimit.RedisURL = v
	}
	if v := env("NODE_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := env("APP_ENV"); v != "" {
		cfg.Environment = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
