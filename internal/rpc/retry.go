package rpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/goran-ethernal/CurateIndexor/pkg/config"
)

// transientMessages are lowercase fragments of error messages that indicate a
// transient failure of the node or of the provider in front of it.
var transientMessages = []string{
	// timeouts
	"timeout",
	"deadline exceeded",
	// rate limiting
	"429",
	"too many requests",
	"rate limit",
	// gateways and overloaded backends
	"502",
	"503",
	"504",
	"bad gateway",
	"service unavailable",
	// connection pool exhausted
	"connection pool",
	"no available connection",
	// load balanced nodes lagging behind the block we pinned a call to
	"header not found",
	"unknown block",
}

// retryableError checks if an error should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, msg := range transientMessages {
		if strings.Contains(errStr, msg) {
			return true
		}
	}

	return false
}

const jitter = 0.25

// calculateBackoff returns the wait before attempt, growing exponentially up to
// MaxBackoff with +/-25% jitter. The first attempt never waits.
func calculateBackoff(attempt int, cfg *config.RetryConfig) time.Duration {
	if attempt <= 1 {
		return 0
	}

	base := float64(cfg.InitialBackoff.Duration) * math.Pow(cfg.BackoffMultiplier, float64(attempt-2))
	base = min(base, float64(cfg.MaxBackoff.Duration))
	spread := base * jitter * (2*rand.Float64() - 1)

	return time.Duration(max(base+spread, 0))
}

// retryWithBackoff calls fn until it succeeds, fails with a permanent error or runs
// out of attempts. A nil cfg calls fn once.
func retryWithBackoff(ctx context.Context, cfg *config.RetryConfig, operation string, fn func() error) error {
	if cfg == nil {
		return fn()
	}

	started := time.Now()
	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if wait := calculateBackoff(attempt, cfg); wait > 0 {
			RPCRetryInc(operation)
			if sleepErr := sleep(ctx, wait); sleepErr != nil {
				return fmt.Errorf("%s: gave up waiting for attempt %d/%d: %w (last error: %v)",
					operation, attempt, cfg.MaxAttempts, sleepErr, err)
			}
		} else if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", operation, ctxErr)
		}

		if err = fn(); err == nil {
			return nil
		}
		if !retryableError(err) {
			return fmt.Errorf("non-retryable error on attempt %d/%d: %w", attempt, cfg.MaxAttempts, err)
		}
	}

	return fmt.Errorf("all %d attempts failed after %v (last error: %w)",
		cfg.MaxAttempts, time.Since(started), err)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
