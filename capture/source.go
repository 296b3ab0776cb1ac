// Package capture produces frames for the portal: a synthetic test source,
// an RTSP source (capture/rtsp) and the Pump that routes their streams to
// portal cells.
package capture

import "context"

// Source defines the contract for frame acquisition
//
// Implementations must guarantee:
//   - Start() returns immediately (non-blocking)
//   - The returned channel stays open until Stop()
//   - Frames are sent non-blocking: dropped (and counted) when the channel is full
//   - Stop() is idempotent; Start() after Stop() fails with ErrClosed
//   - Stats() and SetTargetFPS() are safe from any goroutine
type Source interface {
	// Start begins producing and returns the frame channel.
	Start(ctx context.Context) (<-chan Frame, error)

	// Stop shuts the source down and closes the frame channel.
	Stop() error

	// Stats returns current source statistics.
	Stats() Stats

	// SetTargetFPS changes the frame rate without a restart (0.1 - 30).
	SetTargetFPS(fps float64) error
}

// Target FPS bounds shared by every source.
const (
	MinFPS = 0.1
	MaxFPS = 30.0
)
