package api

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gyaneshwarpardhi/hookscope/internal/apperr"
	"github.com/gyaneshwarpardhi/hookscope/internal/event"
	"github.com/gyaneshwarpardhi/hookscope/internal/store"
)

// GET /api/webhooks?limit&offset&eventType — newest first.
func (h *Handler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOptions{
		Limit:     queryInt(q.Get("limit"), store.DefaultListLimit),
		Offset:    queryInt(q.Get("offset"), 0),
		EventType: q.Get("eventType"),
	}.Normalize()

	webhooks, err := h.store.List(r.Context(), opts)
	if err != nil {
		h.writeAppError(w, r, "could not list webhooks", err)
		return
	}
	count, err := h.store.Count(r.Context(), opts.EventType)
	if err != nil {
		h.writeAppError(w, r, "could not list webhooks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"webhooks": webhooks,
		"total":    len(webhooks),
		"count":    count,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})
}

// GET /api/webhooks/{id}
func (h *Handler) getWebhook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wh, err := h.store.Get(r.Context(), id)
	if apperr.IsNotFound(err) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "webhook not found", ID: id})
		return
	}
	if err != nil {
		h.writeAppError(w, r, "could not load webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

// DELETE /api/webhooks/{id}
func (h *Handler) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.writeAppError(w, r, "could not delete webhook", err)
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "webhook not found", ID: id})
		return
	}
	h.logger.Info("webhook deleted", "event_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "webhook deleted", "id": id})
}

type statsResponse struct {
	*event.Stats
	Timestamp time.Time `json:"timestamp"`
}

// GET /api/stats
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.writeAppError(w, r, "could not compute stats", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Stats: stats, Timestamp: time.Now().UTC()})
}

// GET /api/event-types — distinct types seen, sorted.
func (h *Handler) eventTypes(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.writeAppError(w, r, "could not list event types", err)
		return
	}
	types := make([]string, 0, len(stats.ByEventType))
	for t := range stats.ByEventType {
		types = append(types, t)
	}
	sort.Strings(types)
	writeJSON(w, http.StatusOK, map[string]any{
		"eventTypes": types,
		"total":      len(types),
	})
}

// queryInt parses a query value, falling back to def when absent or invalid.
func queryInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
