package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Delivery is one verified sender call handed to a Handler.
type Delivery struct {
	ID      string // sender delivery id, may be empty
	Event   string
	Payload json.RawMessage
}

// Result holds the outcome of handling a delivery.
type Result struct {
	Event   string `json:"event"`
	Handled bool   `json:"handled"`
	Summary string `json:"summary,omitempty"`
}

// Handler is the interface all sender-specific hooks must satisfy.
type Handler interface {
	// Event returns the event name this handler is registered under.
	Event() string
	Handle(ctx context.Context, d Delivery) (*Result, error)
}

// Registry maps event names to their handlers.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{handlers: make(map[string]Handler), logger: logger}
}

// Register adds a handler. Panics on duplicate event to surface misconfiguration early.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[h.Event()]; exists {
		panic(fmt.Sprintf("hooks registry: duplicate event %q", h.Event()))
	}
	r.handlers[h.Event()] = h
}

// Get returns the handler for the given event.
func (r *Registry) Get(event string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[event]
	return h, ok
}

// Events returns all registered event names, sorted.
func (r *Registry) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler registered for d.Event. Events without a handler
// are logged and reported as unhandled, not as errors.
func (r *Registry) Dispatch(ctx context.Context, d Delivery) (*Result, error) {
	h, ok := r.Get(d.Event)
	if !ok {
		r.logger.Info("unhandled webhook event", "event_type", d.Event, "delivery_id", d.ID)
		return &Result{Event: d.Event, Handled: false}, nil
	}
	res, err := h.Handle(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("hook %s: %w", d.Event, err)
	}
	r.logger.Info("webhook event handled", "event_type", d.Event, "delivery_id", d.ID, "summary", res.Summary)
	return res, nil
}
