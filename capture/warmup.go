package capture

import (
	"context"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/capture/internal/warmup"
)

// WarmupStats contains FPS statistics measured during warm-up
type WarmupStats = warmup.Stats

// Warmup consumes frames for duration and reports whether the stream rate
// is stable. The consumed frames are discarded.
//
// Returns an error when the channel closes early, fewer than 2 frames
// arrive or the measured rate is unstable (stats are still returned).
func Warmup(ctx context.Context, frames <-chan Frame, duration time.Duration) (WarmupStats, error) {
	return warmup.Run(ctx, frames, duration, func(f Frame) time.Time {
		return f.Timestamp
	})
}
