// Package store persists received webhooks.
package store

import (
	"context"

	"github.com/gyaneshwarpardhi/hookscope/internal/event"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ListOptions pages and filters List results.
type ListOptions struct {
	Limit     int
	Offset    int
	EventType string // empty = all types
}

// Normalize clamps the options to usable values: a non-positive limit becomes
// DefaultListLimit, a limit above MaxListLimit is capped and a negative offset
// becomes zero.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Store is the single source of truth for webhook records.
//
// Lookups of unknown ids return an apperr NotFound error; every storage-layer
// failure is returned as an apperr Storage error.
type Store interface {
	Create(ctx context.Context, in event.NewWebhook) (*event.Webhook, error)
	List(ctx context.Context, opts ListOptions) ([]*event.Webhook, error)
	Count(ctx context.Context, eventType string) (int64, error)
	Get(ctx context.Context, id string) (*event.Webhook, error)
	Delete(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (*event.Stats, error)
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
	Close() error
}
