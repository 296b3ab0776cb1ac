package capture

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// Stream names produced by Synthetic.
const (
	StreamColor = "color"
	StreamDepth = "depth"
)

// SyntheticConfig contains configuration for the synthetic source
type SyntheticConfig struct {
	// Width and Height of both streams (default 320x240)
	Width  int
	Height int
	// TargetFPS is the emission rate of each stream (0.1 - 30.0)
	TargetFPS float64
	// Seed for the color noise (0 = time based)
	Seed int64
}

// Synthetic emits a color-noise RGB8 stream and a radial-gradient
// Luminance8 depth stream, for running without a camera.
type Synthetic struct {
	width  int
	height int
	seed   int64
	depth  []byte // Precomputed gradient, copied per frame

	fps   atomic.Uint64 // math.Float64bits of the target FPS
	fpsCh chan float64  // Wakes the loop on SetTargetFPS

	// Lifecycle
	mu           sync.Mutex
	frames       chan Frame
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	framesClosed atomic.Bool

	// Statistics
	started       time.Time
	frameCount    atomic.Uint64
	framesDropped atomic.Uint64
	bytesRead     atomic.Uint64
	lastFrameAt   atomic.Int64
}

// NewSynthetic creates a synthetic source with fail-fast validation.
func NewSynthetic(cfg SyntheticConfig) (*Synthetic, error) {
	if cfg.Width == 0 && cfg.Height == 0 {
		cfg.Width, cfg.Height = 320, 240
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("capture: invalid synthetic size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.TargetFPS < MinFPS || cfg.TargetFPS > MaxFPS {
		return nil, fmt.Errorf("capture: invalid FPS %.2f (must be 0.1-30)", cfg.TargetFPS)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	s := &Synthetic{
		width:  cfg.Width,
		height: cfg.Height,
		seed:   cfg.Seed,
		depth:  radialGradient(cfg.Width, cfg.Height),
		fpsCh:  make(chan float64, 1),
	}
	s.fps.Store(math.Float64bits(cfg.TargetFPS))

	slog.Info("capture: synthetic source created",
		"resolution", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"target_fps", cfg.TargetFPS,
	)

	return s, nil
}

// radialGradient is 255 at the center fading to 0 at 70% of the width.
func radialGradient(w, h int) []byte {
	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := float64(x) - float64(w)/2
			dy := float64(y) - float64(h)/2
			n := math.Min(1, math.Hypot(dx, dy)/(float64(w)*0.7))
			out[y*w+x] = byte(255 * (1 - n))
		}
	}
	return out
}

// Start launches the emission loop and returns the frame channel.
func (s *Synthetic) Start(ctx context.Context) (<-chan Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil, fmt.Errorf("capture: source already started")
	}
	if s.framesClosed.Load() {
		return nil, fmt.Errorf("capture: synthetic source: %w", types.ErrClosed)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.frames = make(chan Frame, 4)
	s.started = time.Now()

	s.wg.Add(1)
	go s.run(loopCtx, s.frames)

	slog.Info("capture: synthetic source started", "target_fps", s.targetFPS())
	return s.frames, nil
}

func (s *Synthetic) targetFPS() float64 {
	return math.Float64frombits(s.fps.Load())
}

func interval(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / fps)
}

func (s *Synthetic) run(ctx context.Context, out chan<- Frame) {
	defer s.wg.Done()

	rng := rand.New(rand.NewSource(s.seed))
	ticker := time.NewTicker(interval(s.targetFPS()))
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return

		case fps := <-s.fpsCh:
			ticker.Reset(interval(fps))

		case now := <-ticker.C:
			seq++

			color := make([]byte, s.width*s.height*3)
			rng.Read(color)
			s.emit(ctx, out, s.frame(seq, now, types.RGB8, color, StreamColor))

			depth := make([]byte, len(s.depth))
			copy(depth, s.depth)
			s.emit(ctx, out, s.frame(seq, now, types.Luminance8, depth, StreamDepth))
		}
	}
}

func (s *Synthetic) frame(seq uint64, ts time.Time, format types.PixelFormat, data []byte, stream string) Frame {
	return Frame{
		Seq:          seq,
		Timestamp:    ts,
		Width:        s.width,
		Height:       s.height,
		Format:       format,
		Data:         data,
		SourceStream: stream,
		TraceID:      uuid.New().String(),
	}
}

// emit sends f without blocking; a full channel drops the frame.
func (s *Synthetic) emit(ctx context.Context, out chan<- Frame, f Frame) {
	select {
	case out <- f:
		s.frameCount.Add(1)
		s.bytesRead.Add(uint64(len(f.Data)))
		s.lastFrameAt.Store(time.Now().UnixNano())
	case <-ctx.Done():
	default:
		s.framesDropped.Add(1)
		slog.Debug("capture: dropping frame, channel full",
			"stream", f.SourceStream,
			"seq", f.Seq,
			"trace_id", f.TraceID,
		)
	}
}

// Stop cancels the loop, waits for it and closes the frame channel.
// Idempotent.
func (s *Synthetic) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	s.wg.Wait()
	if s.framesClosed.CompareAndSwap(false, true) {
		close(s.frames)
	}
	s.cancel = nil

	slog.Info("capture: synthetic source stopped",
		"frames_captured", s.frameCount.Load(),
		"frames_dropped", s.framesDropped.Load(),
		"uptime", time.Since(s.started),
	)
	return nil
}

// SetTargetFPS changes the emission rate on the next tick.
func (s *Synthetic) SetTargetFPS(fps float64) error {
	if fps < MinFPS || fps > MaxFPS {
		return fmt.Errorf("capture: invalid FPS %.2f (must be 0.1-30)", fps)
	}
	s.fps.Store(math.Float64bits(fps))

	// Keep only the latest request
	select {
	case <-s.fpsCh:
	default:
	}
	s.fpsCh <- fps

	slog.Info("capture: target FPS updated", "new_fps", fps)
	return nil
}

// Stats returns current source statistics.
func (s *Synthetic) Stats() Stats {
	s.mu.Lock()
	started := s.started
	running := s.cancel != nil
	s.mu.Unlock()

	captured := s.frameCount.Load()
	dropped := s.framesDropped.Load()

	var fpsReal float64
	if !started.IsZero() {
		if up := time.Since(started).Seconds(); up > 0 {
			fpsReal = float64(captured) / up
		}
	}

	var latencyMS int64
	if last := s.lastFrameAt.Load(); last != 0 {
		latencyMS = time.Since(time.Unix(0, last)).Milliseconds()
	}

	return Stats{
		FrameCount:    captured,
		FramesDropped: dropped,
		DropRate:      dropRate(captured, dropped),
		FPSTarget:     s.targetFPS(),
		FPSReal:       fpsReal,
		LatencyMS:     latencyMS,
		Resolution:    fmt.Sprintf("%dx%d", s.width, s.height),
		BytesRead:     s.bytesRead.Load(),
		IsConnected:   running,
	}
}
