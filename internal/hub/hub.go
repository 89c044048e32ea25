// Package hub fans broadcast messages out to live real-time observers.
//
// Delivery is at-most-once and best effort: only observers registered and
// ready when Publish runs receive a message, and nothing is buffered for
// observers that connect later.
package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gyaneshwarpardhi/hookscope/internal/event"
	"github.com/gyaneshwarpardhi/hookscope/internal/metrics"
)

// Observer is one real-time connection.
type Observer interface {
	ID() string
	// Ready reports whether the channel is open for writes.
	Ready() bool
	// Send queues an already serialized message. It must not block.
	Send(msg []byte) error
}

// Closer is implemented by observers the hub can shut down.
type Closer interface {
	Close()
}

// Hub holds the set of live observers.
type Hub struct {
	mu        sync.RWMutex
	observers map[string]Observer
	logger    *slog.Logger
}

// New creates an empty Hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		observers: make(map[string]Observer),
		logger:    logger,
	}
}

// Register adds o to the live set.
func (h *Hub) Register(o Observer) {
	h.mu.Lock()
	h.observers[o.ID()] = o
	n := len(h.observers)
	h.mu.Unlock()
	metrics.ObserversConnected.Set(float64(n))
	h.logger.Info("observer connected", "observer_id", o.ID(), "observers", n)
}

// Unregister removes o. Removing an unknown observer is a no-op.
func (h *Hub) Unregister(o Observer) {
	h.mu.Lock()
	_, ok := h.observers[o.ID()]
	delete(h.observers, o.ID())
	n := len(h.observers)
	h.mu.Unlock()
	if !ok {
		return
	}
	metrics.ObserversConnected.Set(float64(n))
	h.logger.Info("observer disconnected", "observer_id", o.ID(), "observers", n)
}

// Count returns the number of registered observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

func (h *Hub) snapshot() []Observer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Observer, 0, len(h.observers))
	for _, o := range h.observers {
		out = append(out, o)
	}
	return out
}

// Publish serializes msg once and sends it to every ready observer in the set
// at call time. Per-observer failures are logged and counted, never returned;
// the only error is a message that cannot be serialized.
func (h *Hub) Publish(msg event.Message) (int, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("hub: encode %s message: %w", msg.Type, err)
	}
	delivered := 0
	for _, o := range h.snapshot() {
		if !o.Ready() {
			metrics.BroadcastSkipped.Inc()
			continue
		}
		if err := o.Send(raw); err != nil {
			metrics.BroadcastFailures.Inc()
			h.logger.Warn("broadcast to observer failed", "observer_id", o.ID(), "type", msg.Type, "err", err)
			continue
		}
		delivered++
	}
	metrics.BroadcastDeliveries.Add(float64(delivered))
	return delivered, nil
}

// Close shuts down every observer that supports it and empties the set.
func (h *Hub) Close() {
	h.mu.Lock()
	observers := h.observers
	h.observers = make(map[string]Observer)
	h.mu.Unlock()
	for _, o := range observers {
		if c, ok := o.(Closer); ok {
			c.Close()
		}
	}
	metrics.ObserversConnected.Set(0)
}
