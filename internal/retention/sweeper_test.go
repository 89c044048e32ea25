package retention_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hookscope/internal/retention"
)

type fakePurger struct {
	mu      sync.Mutex
	calls   []int
	removed int64
	err     error
}

func (f *fakePurger) PurgeOlderThan(_ context.Context, days int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, days)
	if f.err != nil {
		return 0, f.err
	}
	return f.removed, nil
}

func (f *fakePurger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRunOnce_PurgesWithCurrentDays(t *testing.T) {
	p := &fakePurger{removed: 4}
	s := retention.New(p, 30, time.Hour, nil)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	s.SetDays(7)
	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{30, 7}, p.calls)
}

func TestRunOnce_ZeroDaysKeepsEverything(t *testing.T) {
	p := &fakePurger{removed: 4}
	s := retention.New(p, 0, time.Hour, nil)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, p.callCount())
}

func TestRunOnce_ReportsFailure(t *testing.T) {
	s := retention.New(&fakePurger{err: errors.New("locked")}, 30, time.Hour, nil)
	_, err := s.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRun_SweepsOnStartAndEveryTick(t *testing.T) {
	p := &fakePurger{err: errors.New("transient")}
	s := retention.New(p, 30, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Failures do not stop the loop.
	require.Eventually(t, func() bool { return p.callCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
