// Package retry runs an operation with exponential backoff. It backs the
// connection loops for Postgres, Redis and Kafka.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Config contains retry configuration
type Config struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// InitialInterval is the wait before the first retry
	InitialInterval time.Duration
	// MaxInterval caps the wait between attempts
	MaxInterval time.Duration
	// Multiplier grows the interval after each retry (1 keeps it constant)
	Multiplier float64
	// JitterFactor spreads each wait by up to ±factor of its length
	JitterFactor float64
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, next time.Duration)
}

// DefaultConfig returns default retry configuration: 1s, 2s, 4s
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Constant retries every interval without growth or jitter
func Constant(maxRetries int, interval time.Duration) *Config {
	return &Config{
		MaxRetries:      maxRetries,
		InitialInterval: interval,
		MaxInterval:     interval,
		Multiplier:      1,
	}
}

// PermanentError stops retrying immediately
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func normalize(cfg *Config) Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = time.Second
	}
	if c.MaxInterval < c.InitialInterval {
		c.MaxInterval = c.InitialInterval
	}
	if c.Multiplier < 1 {
		c.Multiplier = 1
	}
	c.JitterFactor = math.Max(0, math.Min(1, c.JitterFactor))
	return c
}

// Do runs op until it succeeds, returns a permanent error, ctx ends or the
// retries run out. The last error is returned wrapped with the attempt count.
func Do(ctx context.Context, cfg *Config, op func(ctx context.Context) error) error {
	c := normalize(cfg)

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.interval(attempt - 1)
			if c.OnRetry != nil {
				c.OnRetry(attempt, lastErr, wait)
			}

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		lastErr = err
	}

	return fmt.Errorf("after %d attempts: %w", c.MaxRetries+1, lastErr)
}

// interval returns the wait before retry n (0-based)
func (c Config) interval(n int) time.Duration {
	d := float64(c.InitialInterval) * math.Pow(c.Multiplier, float64(n))
	if c.JitterFactor > 0 {
		d += (rand.Float64()*2 - 1) * d * c.JitterFactor
	}
	if d > float64(c.MaxInterval) {
		d = float64(c.MaxInterval)
	}
	if d <= 0 {
		d = float64(c.InitialInterval)
	}
	return time.Duration(d)
}
