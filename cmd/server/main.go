package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gyaneshwarpardhi/hookscope/internal/api"
	"github.com/gyaneshwarpardhi/hookscope/internal/config"
	"github.com/gyaneshwarpardhi/hookscope/internal/hooks"
	"github.com/gyaneshwarpardhi/hookscope/internal/hub"
	"github.com/gyaneshwarpardhi/hookscope/internal/ingest"
	"github.com/gyaneshwarpardhi/hookscope/internal/ratelimit"
	"github.com/gyaneshwarpardhi/hookscope/internal/retention"
	"github.com/gyaneshwarpardhi/hookscope/internal/signature"
	"github.com/gyaneshwarpardhi/hookscope/internal/store"
)

func main() {
	cfgPath := flag.String("config", "configs/hookscope.yaml", "Path to YAML config")
	flag.Parse()

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath, slog.Default())
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	// ── Event store ───────────────────────────────────────────────────────────
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to open event store", "driver", cfg.Database.Driver, "err", err)
		os.Exit(1)
	}
	logger.Info("event store ready", "driver", cfg.Database.Driver)

	// ── Broadcast hub and ingestion pipeline ──────────────────────────────────
	h := hub.New(logger)
	pipeline := ingest.New(st, h, ingest.Config{
		Workers:          cfg.Ingest.Workers,
		QueueDepth:       cfg.Ingest.QueueDepth,
		EventTypeHeaders: cfg.Ingest.EventTypeHeaders,
	}, logger)

	// ── GitHub endpoint ───────────────────────────────────────────────────────
	verifier := signature.New(cfg.GitHub.Algorithm, cfg.GitHub.Secret)
	if !verifier.Configured() {
		logger.Warn("GITHUB_WEBHOOK_SECRET is not set; /webhooks/github will reject every delivery")
	}
	reg := hooks.NewRegistry(logger)
	hooks.GitHub(reg)
	logger.Info("github hooks registered", "events", reg.Events())

	// ── Rate limiter ──────────────────────────────────────────────────────────
	limiter, err := ratelimit.New(ratelimit.Config{
		Enabled:  cfg.RateLimit.Enabled,
		RedisURL: cfg.RateLimit.RedisURL,
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
	})
	if err != nil {
		logger.Error("failed to start rate limiter", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Retention ─────────────────────────────────────────────────────────────
	sweeper := retention.New(st, cfg.Retention.Days, cfg.Retention.Interval, logger)
	if cfg.Retention.Enabled {
		go sweeper.Run(ctx)
	}

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		verifier.SetSecret(newCfg.GitHub.Secret)
		pipeline.SetEventTypeHeaders(newCfg.Ingest.EventTypeHeaders)
		sweeper.SetDays(newCfg.Retention.Days)
		logger.Info("config hot-reloaded",
			"github_secret_set", newCfg.GitHub.Secret != "",
			"event_type_headers", newCfg.Ingest.EventTypeHeaders,
			"retention_days", newCfg.Retention.Days,
		)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		logger.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(api.Deps{
		Store:    st,
		Pipeline: pipeline,
		Hub:      h,
		Verifier: verifier,
		Hooks:    reg,
		Limiter:  limiter,
		Loader:   loader,
		Logger:   logger,
	}, cfg)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warn("http shutdown incomplete", "err", err)
	}
	cancel() // stop the sweeper
	h.Close()
	pipeline.Shutdown()
	if err := limiter.Close(); err != nil {
		logger.Warn("rate limiter close failed", "err", err)
	}
	if err := st.Close(); err != nil {
		logger.Warn("event store close failed", "err", err)
	}
	logger.Info("goodbye")
}
