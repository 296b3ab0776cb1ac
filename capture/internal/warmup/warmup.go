// Package warmup measures the frame rate and stability of a stream.
package warmup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Run consumes frames for duration and returns their FPS statistics.
//
// stamp extracts the arrival time of a frame. Frames are discarded.
//
// Returns an error if:
//   - The channel closes before duration elapsed
//   - Fewer than 2 frames arrived
//   - The stream is not stable (see CalculateFPSStats)
func Run[T any](ctx context.Context, frames <-chan T, duration time.Duration, stamp func(T) time.Time) (Stats, error) {
	slog.Info("warmup: starting stream warm-up",
		"duration", duration,
		"reason", "measure real FPS and stabilize pipeline",
	)

	start := time.Now()
	times := make([]time.Time, 0, 100)

	warmupCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

collect:
	for {
		select {
		case <-warmupCtx.Done():
			if ctx.Err() != nil {
				return Stats{}, fmt.Errorf("warmup: %w", ctx.Err())
			}
			break collect

		case f, ok := <-frames:
			if !ok {
				return Stats{}, fmt.Errorf("warmup: stream closed during warm-up")
			}
			times = append(times, stamp(f))
		}
	}

	if len(times) < 2 {
		return Stats{}, fmt.Errorf("warmup: not enough frames received (got %d, need at least 2)", len(times))
	}

	stats := CalculateFPSStats(times, SpanWindow(times))
	stats.Duration = time.Since(start)

	slog.Info("warmup: stream warm-up complete",
		"frames", stats.FramesReceived,
		"duration", stats.Duration,
		"fps_mean", fmt.Sprintf("%.2f", stats.FPSMean),
		"fps_stddev", fmt.Sprintf("%.2f", stats.FPSStdDev),
		"fps_range", fmt.Sprintf("%.1f-%.1f", stats.FPSMin, stats.FPSMax),
		"jitter_mean", fmt.Sprintf("%.3fs", stats.JitterMean),
		"stable", stats.IsStable,
	)

	if !stats.IsStable {
		return stats, fmt.Errorf(
			"warmup: stream FPS unstable (mean=%.2f Hz, stddev=%.2f, jitter=%.3fs)",
			stats.FPSMean, stats.FPSStdDev, stats.JitterMean,
		)
	}

	return stats, nil
}
