package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePurger holds expiry times and deletes those before the cutoff
type fakePurger struct {
	mu      sync.Mutex
	expires []time.Time
	calls   int
	err     error
}

func (f *fakePurger) DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}

	var kept []time.Time
	var deleted int64
	for _, exp := range f.expires {
		if exp.Before(before) && deleted < int64(limit) {
			deleted++
			continue
		}
		kept = append(kept, exp)
	}
	f.expires = kept
	return deleted, nil
}

func (f *fakePurger) remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.expires)
}

func TestRevocationPruner_RunOnceDrainsInBatches(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	purger := &fakePurger{}
	for i := 0; i < 25; i++ {
		purger.expires = append(purger.expires, now.Add(-time.Minute))
	}
	for i := 0; i < 3; i++ {
		purger.expires = append(purger.expires, now.Add(time.Hour))
	}

	w := NewRevocationPruner(purger, &RevocationPrunerConfig{Interval: time.Hour, BatchSize: 10})
	w.now = func() time.Time { return now }

	pruned, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(25), pruned)
	assert.Equal(t, 3, purger.remaining())
	assert.Equal(t, 3, purger.calls) // 10, 10, 5

	stats := w.GetStats()
	assert.Equal(t, int64(25), stats.TotalPruned)
	assert.Equal(t, now, stats.LastRunTime)
}

func TestRevocationPruner_ExactBatchMultiple(t *testing.T) {
	now := time.Now()
	purger := &fakePurger{}
	for i := 0; i < 20; i++ {
		purger.expires = append(purger.expires, now.Add(-time.Second))
	}

	w := NewRevocationPruner(purger, &RevocationPrunerConfig{BatchSize: 10})
	w.now = func() time.Time { return now }

	pruned, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(20), pruned)
	assert.Equal(t, 3, purger.calls)
}

func TestRevocationPruner_Error(t *testing.T) {
	purger := &fakePurger{err: errors.New("connection reset")}
	w := NewRevocationPruner(purger, nil)

	_, err := w.RunOnce(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}

func TestRevocationPruner_CancelledContext(t *testing.T) {
	purger := &fakePurger{}
	w := NewRevocationPruner(purger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, purger.calls)
}

func TestRevocationPruner_Defaults(t *testing.T) {
	cfg := &RevocationPrunerConfig{}
	w := NewRevocationPruner(&fakePurger{}, cfg)
	assert.Equal(t, 10*time.Minute, w.config.Interval)
	assert.Equal(t, 1000, w.config.BatchSize)

	// the caller's struct keeps its zero values
	assert.Equal(t, RevocationPrunerConfig{}, *cfg)

	w = NewRevocationPruner(&fakePurger{}, nil)
	assert.Equal(t, 10*time.Minute, w.config.Interval)
}

func TestRevocationPruner_StartStop(t *testing.T) {
	now := time.Now()
	purger := &fakePurger{expires: []time.Time{now.Add(-time.Minute)}}
	w := NewRevocationPruner(purger, &RevocationPrunerConfig{Interval: time.Hour, BatchSize: 10})

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	// the first run happens immediately on start
	assert.Eventually(t, func() bool { return purger.remaining() == 0 }, time.Second, 10*time.Millisecond)

	w.Stop()
	assert.False(t, w.GetStats().IsRunning)
	w.Stop()
}

func TestRevocationPruner_StopsOnContextCancel(t *testing.T) {
	w := NewRevocationPruner(&fakePurger{}, &RevocationPrunerConfig{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruner did not exit after cancel")
	}
}
