package rtsp

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ReconnectConfig contains configuration for exponential backoff reconnection
type ReconnectConfig struct {
	MaxRetries    int           // Maximum number of consecutive failures (default: 5)
	RetryDelay    time.Duration // Initial retry delay (default: 1 second)
	MaxRetryDelay time.Duration // Maximum retry delay cap (default: 30 seconds)
}

// DefaultReconnectConfig returns default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:    5,
		RetryDelay:    1 * time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// ReconnectState tracks consecutive failures and total reconnects.
//
// CurrentRetries is reset by the bus monitor when the pipeline reaches
// PLAYING, which happens on another goroutine, hence the atomics.
type ReconnectState struct {
	CurrentRetries atomic.Int32
	Reconnects     atomic.Uint32
}

// Reset clears the consecutive failure count after a successful connection.
func (s *ReconnectState) Reset() {
	s.CurrentRetries.Store(0)
	slog.Debug("rtsp: reconnect state reset")
}

// ConnectFunc runs one connection attempt. It blocks while the connection
// is healthy and returns nil on graceful shutdown.
type ConnectFunc func(ctx context.Context) error

// RunWithReconnect runs connectFn until it returns nil or ctx is cancelled,
// retrying failures with exponential backoff.
//
// Backoff schedule with defaults: 1s, 2s, 4s, 8s, 16s, then stop.
//
// Returns an error if max retries are exceeded or ctx is cancelled.
func RunWithReconnect(ctx context.Context, connectFn ConnectFunc, cfg ReconnectConfig, state *ReconnectState) error {
	for {
		if err := ctx.Err(); err != nil {
			slog.Info("rtsp: context cancelled, stopping reconnection")
			return err
		}

		err := connectFn(ctx)
		if err == nil {
			return nil
		}

		slog.Error("rtsp: connection failed", "error", err)

		retries := int(state.CurrentRetries.Add(1))
		state.Reconnects.Add(1)

		if retries > cfg.MaxRetries {
			return fmt.Errorf("rtsp: max retries exceeded (%d attempts)", cfg.MaxRetries)
		}

		delay := calculateBackoff(retries, cfg)
		slog.Warn("rtsp: retrying connection",
			"attempt", retries,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			slog.Info("rtsp: context cancelled during backoff")
			return ctx.Err()
		}
	}
}

// calculateBackoff returns retryDelay * 2^(attempt-1), capped at maxRetryDelay.
func calculateBackoff(attempt int, cfg ReconnectConfig) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// Past 2^20 the cap always wins; avoids shift overflow.
	if attempt > 21 {
		return cfg.MaxRetryDelay
	}

	delay := cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > cfg.MaxRetryDelay {
		delay = cfg.MaxRetryDelay
	}
	return delay
}
