package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Balorum/PhotoShare/internal/repository"
	"github.com/Balorum/PhotoShare/pkg/logger"
)

// RevocationPrunerConfig contains configuration for the revocation pruner
type RevocationPrunerConfig struct {
	// Interval between prune runs
	Interval time.Duration
	// BatchSize bounds the rows deleted per statement
	BatchSize int
}

// DefaultRevocationPrunerConfig returns default configuration
func DefaultRevocationPrunerConfig() *RevocationPrunerConfig {
	return &RevocationPrunerConfig{
		Interval:  10 * time.Minute,
		BatchSize: 1000,
	}
}

// RevocationPruner deletes revocation entries whose token has expired.
// An expired token fails decoding anyway, so its entry is dead weight.
type RevocationPruner struct {
	purger  repository.RevocationPurger
	config  *RevocationPrunerConfig
	log     *logger.Logger
	now     func() time.Time
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	totalPruned   int64
	lastRunTime   time.Time
	lastRunPruned int64
}

// NewRevocationPruner creates a new revocation pruner
func NewRevocationPruner(purger repository.RevocationPurger, config *RevocationPrunerConfig) *RevocationPruner {
	defaults := DefaultRevocationPrunerConfig()
	cfg := *defaults
	if config != nil {
		cfg = *config
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}

	return &RevocationPruner{
		purger: purger,
		config: &cfg,
		log:    logger.Get().Named("revocation-pruner"),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start runs the pruner in the background until ctx is cancelled or Stop is called
func (w *RevocationPruner) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("revocation pruner already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting revocation pruner",
		zap.Duration("interval", w.config.Interval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop stops the pruner and waits for the current run to finish
func (w *RevocationPruner) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Revocation pruner stopped")
}

// Wait blocks until the background loop has exited
func (w *RevocationPruner) Wait() {
	w.wg.Wait()
}

func (w *RevocationPruner) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

func (w *RevocationPruner) runLogged(ctx context.Context) {
	pruned, err := w.RunOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error("Failed to prune revoked tokens", zap.Int64("pruned", pruned), zap.Error(err))
		}
		return
	}
	if pruned > 0 {
		w.log.Info("Pruned revoked tokens", zap.Int64("pruned", pruned))
	}
}

// RunOnce deletes expired entries in batches until a batch comes back short
func (w *RevocationPruner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := w.now()
	var total int64

	defer func() {
		w.mu.Lock()
		w.totalPruned += total
		w.lastRunTime = cutoff
		w.lastRunPruned = total
		w.mu.Unlock()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := w.purger.DeleteExpired(ctx, cutoff, w.config.BatchSize)
		if err != nil {
			return total, fmt.Errorf("failed to delete expired revocations: %w", err)
		}
		total += n

		if n < int64(w.config.BatchSize) {
			return total, nil
		}
	}
}

// GetStats returns pruner statistics
func (w *RevocationPruner) GetStats() *RevocationPrunerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &RevocationPrunerStats{
		IsRunning:     w.running,
		TotalPruned:   w.totalPruned,
		LastRunTime:   w.lastRunTime,
		LastRunPruned: w.lastRunPruned,
	}
}

// RevocationPrunerStats contains pruner statistics
type RevocationPrunerStats struct {
	IsRunning     bool      `json:"is_running"`
	TotalPruned   int64     `json:"total_pruned"`
	LastRunTime   time.Time `json:"last_run_time"`
	LastRunPruned int64     `json:"last_run_pruned"`
}
