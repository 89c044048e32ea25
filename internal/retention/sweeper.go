// Package retention periodically removes webhooks older than the configured
// number of days.
package retention

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gyaneshwarpardhi/hookscope/internal/metrics"
)

// Purger deletes records older than a number of days.
type Purger interface {
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
}

// Sweeper runs a Purger on a fixed interval.
type Sweeper struct {
	purger   Purger
	interval time.Duration
	days     atomic.Int64
	logger   *slog.Logger
}

// New creates a Sweeper. days <= 0 keeps records forever.
func New(purger Purger, days int, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s := &Sweeper{purger: purger, interval: interval, logger: logger}
	s.SetDays(days)
	return s
}

// SetDays changes the retention period (used on hot-reload).
func (s *Sweeper) SetDays(days int) {
	s.days.Store(int64(days))
}

// Days returns the current retention period.
func (s *Sweeper) Days() int {
	return int(s.days.Load())
}

// RunOnce purges once and returns the number of records removed.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	days := s.Days()
	if days <= 0 {
		return 0, nil
	}
	n, err := s.purger.PurgeOlderThan(ctx, days)
	if err != nil {
		s.logger.Error("retention sweep failed", "days", days, "err", err)
		return 0, err
	}
	metrics.WebhooksPurged.Add(float64(n))
	if n > 0 {
		s.logger.Info("retention sweep removed webhooks", "days", days, "removed", n)
	}
	return n, nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
// Failures are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	_, _ = s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}
