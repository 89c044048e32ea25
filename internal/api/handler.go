// Package api is the HTTP transport: it parses requests, hands them to the
// ingestion pipeline or the store and shapes the JSON responses.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/hookscope/internal/config"
	"github.com/gyaneshwarpardhi/hookscope/internal/hooks"
	"github.com/gyaneshwarpardhi/hookscope/internal/hub"
	"github.com/gyaneshwarpardhi/hookscope/internal/ingest"
	"github.com/gyaneshwarpardhi/hookscope/internal/metrics"
	"github.com/gyaneshwarpardhi/hookscope/internal/ratelimit"
	"github.com/gyaneshwarpardhi/hookscope/internal/signature"
	"github.com/gyaneshwarpardhi/hookscope/internal/store"
)

// Deps are the components the transport talks to.
type Deps struct {
	Store    store.Store
	Pipeline *ingest.Pipeline
	Hub      *hub.Hub
	Verifier *signature.Verifier
	Hooks    *hooks.Registry
	Limiter  ratelimit.RateLimiter // nil = unlimited
	Loader   *config.Loader        // nil disables POST /api/config/reload
	Logger   *slog.Logger
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	store    store.Store
	pipeline *ingest.Pipeline
	hub      *hub.Hub
	verifier *signature.Verifier
	hooks    *hooks.Registry
	limiter  ratelimit.RateLimiter
	loader   *config.Loader
	logger   *slog.Logger

	server     config.ServerConf
	rateWindow time.Duration
	dev        bool
	started    time.Time
	mux        *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(d Deps, cfg *config.Config) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Limiter == nil {
		d.Limiter = &ratelimit.NoOpRateLimiter{}
	}
	if d.Hooks == nil {
		d.Hooks = hooks.NewRegistry(d.Logger)
	}
	h := &Handler{
		store:      d.Store,
		pipeline:   d.Pipeline,
		hub:        d.Hub,
		verifier:   d.Verifier,
		hooks:      d.Hooks,
		limiter:    d.Limiter,
		loader:     d.Loader,
		logger:     d.Logger,
		server:     cfg.Server,
		rateWindow: cfg.RateLimit.Window,
		dev:        cfg.IsDevelopment(),
		started:    time.Now(),
		mux:        http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /webhook", h.receiveWebhook)
	h.mux.HandleFunc("POST /webhook/{event}", h.receiveWebhook)
	h.mux.HandleFunc("POST /webhooks/github", h.receiveGitHub)

	h.mux.HandleFunc("GET /api/webhooks", h.listWebhooks)
	h.mux.HandleFunc("GET /api/webhooks/{id}", h.getWebhook)
	h.mux.HandleFunc("DELETE /api/webhooks/{id}", h.deleteWebhook)
	h.mux.HandleFunc("GET /api/stats", h.stats)
	h.mux.HandleFunc("GET /api/event-types", h.eventTypes)
	if h.loader != nil {
		h.mux.HandleFunc("POST /api/config/reload", h.reloadConfig)
	}

	h.mux.Handle("GET /ws", h.hub.ServeWS(hub.NewUpgrader(h.server.AllowedOrigins)))

	h.mux.HandleFunc("GET /health", h.health)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	h.mux.HandleFunc("/", h.notFound)
	if h.server.StaticDir != "" {
		h.mux.Handle("GET /", h.dashboard(h.server.StaticDir))
	}

	return h.middleware(h.mux)
}

// GET /health — liveness with uptime, kept for existing dashboards.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.started).Seconds(),
	})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if the ingest queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.pipeline.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"queue_utilization": util,
			"observers":         h.hub.Count(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"queue_utilization": util,
		"observers":         h.hub.Count(),
	})
}

// POST /api/config/reload — hot-reload the config file from disk.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	if _, err := h.loader.Reload(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "config reload failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reloaded": true})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found", "the requested route does not exist")
}
