// Package rtsp provides the GStreamer-backed RTSP frame source.
//
// Kept apart from package capture so that the portal, the synthetic source
// and the pump build without cgo.
package rtsp

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/capture"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/capture/internal/rtsp"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// DefaultStreamName is the SourceStream of frames when Config leaves it empty.
const DefaultStreamName = "rtsp"

// Config contains configuration for an RTSP stream
type Config struct {
	// URL is the RTSP stream URL (required)
	URL string
	// Resolution is the output resolution
	Resolution capture.Resolution
	// TargetFPS is the output frame rate (0.1 - 30.0)
	TargetFPS float64
	// SourceStream names the frames (default "rtsp")
	SourceStream string
	// Acceleration selects the decoder
	Acceleration capture.HardwareAccel

	// Reconnection (zero = defaults: 5 attempts, 1s initial, 30s max)
	MaxReconnectAttempts  int
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
}

// Stream implements capture.Source on top of a GStreamer pipeline
//
// Goroutine topology:
//
//	GStreamer streaming thread ── OnNewSample ──> frames (non-blocking)
//	run goroutine: build pipeline → PLAYING → monitor bus → on error
//	destroy and rebuild with exponential backoff
type Stream struct {
	// --- Configuration ---
	url          string
	width        int
	height       int
	sourceStream string
	acceleration capture.HardwareAccel
	reconnectCfg rtsp.ReconnectConfig

	fps atomic.Uint64 // math.Float64bits

	// --- Pipeline (rebuilt on reconnect) ---
	elemMu   sync.Mutex
	elements *rtsp.PipelineElements

	// --- Lifecycle ---
	mu           sync.Mutex
	frames       chan capture.Frame
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	framesClosed atomic.Bool
	started      time.Time

	// --- Statistics ---
	counters  rtsp.Counters
	errors    rtsp.ErrorCounters
	reconnect rtsp.ReconnectState
	connected atomic.Bool
}

var _ capture.Source = (*Stream)(nil)

// New creates an RTSP stream with fail-fast validation
//
// Validates at construction time:
//   - URL must not be empty
//   - TargetFPS must be between 0.1 and 30.0
//   - GStreamer (and VAAPI when forced) must be available
func New(cfg Config) (*Stream, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rtsp: RTSP URL is required")
	}
	if cfg.TargetFPS < capture.MinFPS || cfg.TargetFPS > capture.MaxFPS {
		return nil, fmt.Errorf("rtsp: invalid FPS %.2f (must be 0.1-30)", cfg.TargetFPS)
	}
	if cfg.SourceStream == "" {
		cfg.SourceStream = DefaultStreamName
	}

	if err := rtsp.CheckAvailable(cfg.Acceleration == capture.AccelVAAPI); err != nil {
		return nil, fmt.Errorf("rtsp: GStreamer not available: %w", err)
	}

	reconnectCfg := rtsp.DefaultReconnectConfig()
	if cfg.MaxReconnectAttempts > 0 {
		reconnectCfg.MaxRetries = cfg.MaxReconnectAttempts
	}
	if cfg.ReconnectInitialDelay > 0 {
		reconnectCfg.RetryDelay = cfg.ReconnectInitialDelay
	}
	if cfg.ReconnectMaxDelay > 0 {
		reconnectCfg.MaxRetryDelay = cfg.ReconnectMaxDelay
	}

	width, height := cfg.Resolution.Dimensions()
	s := &Stream{
		url:          cfg.URL,
		width:        width,
		height:       height,
		sourceStream: cfg.SourceStream,
		acceleration: cfg.Acceleration,
		reconnectCfg: reconnectCfg,
	}
	s.setTargetFPS(cfg.TargetFPS)

	slog.Info("rtsp: stream created",
		"url", cfg.URL,
		"resolution", fmt.Sprintf("%dx%d", width, height),
		"target_fps", cfg.TargetFPS,
		"source_stream", cfg.SourceStream,
		"acceleration", cfg.Acceleration.String(),
	)

	return s, nil
}

// Start launches the pipeline goroutine and returns the frame channel
// immediately. Frames arrive once the pipeline reaches PLAYING.
func (s *Stream) Start(ctx context.Context) (<-chan capture.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil, fmt.Errorf("rtsp: stream already started")
	}
	if s.framesClosed.Load() {
		return nil, fmt.Errorf("rtsp: stream: %w", types.ErrClosed)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.frames = make(chan capture.Frame, 10)
	s.started = time.Now()

	s.wg.Add(1)
	go s.run(runCtx, s.frames)

	slog.Info("rtsp: stream started",
		"url", s.url,
		"note", "frames will arrive asynchronously once pipeline reaches PLAYING state",
	)
	return s.frames, nil
}

func (s *Stream) run(ctx context.Context, frames chan<- capture.Frame) {
	defer s.wg.Done()

	err := rtsp.RunWithReconnect(ctx, func(ctx context.Context) error {
		return s.connect(ctx, frames)
	}, s.reconnectCfg, &s.reconnect)

	if err != nil && ctx.Err() == nil {
		slog.Error("rtsp: pipeline stopped after reconnection failure",
			"error", err,
			"rtsp_url", s.url,
			"uptime", time.Since(s.started),
			"frames_processed", s.counters.Frames.Load(),
			"reconnects", s.reconnect.Reconnects.Load(),
		)
	}
}

// connect builds a fresh pipeline, plays it and monitors its bus until it
// fails or ctx is cancelled. The pipeline is destroyed on return.
func (s *Stream) connect(ctx context.Context, frames chan<- capture.Frame) error {
	elements, err := rtsp.CreatePipeline(rtsp.PipelineConfig{
		RTSPURL:      s.url,
		Width:        s.width,
		Height:       s.height,
		TargetFPS:    s.targetFPS(),
		Acceleration: s.acceleration,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	callbackCtx := &rtsp.CallbackContext{
		FrameChan:    frames,
		Counters:     &s.counters,
		Width:        s.width,
		Height:       s.height,
		SourceStream: s.sourceStream,
	}
	elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return rtsp.OnNewSample(sink, callbackCtx)
		},
	})
	depay := elements.Depay
	elements.RTSPSrc.Connect("pad-added", func(_ *gst.Element, srcPad *gst.Pad) {
		rtsp.OnPadAdded(srcPad, depay)
	})

	s.elemMu.Lock()
	s.elements = elements
	s.elemMu.Unlock()

	defer func() {
		s.connected.Store(false)
		s.elemMu.Lock()
		if err := rtsp.DestroyPipeline(s.elements); err != nil {
			slog.Error("rtsp: failed to destroy pipeline", "error", err)
		}
		s.elements = nil
		s.elemMu.Unlock()
	}()

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	s.connected.Store(true)

	return rtsp.MonitorPipelineBus(ctx, elements.Pipeline, &s.errors, &s.reconnect, rtsp.MonitorMetrics{
		RTSPURL:    s.url,
		Resolution: fmt.Sprintf("%dx%d", s.width, s.height),
		StartedAt:  s.started,
		Counters:   &s.counters,
	})
}

// Stop cancels the pipeline goroutine, destroys the pipeline and closes
// the frame channel. Idempotent.
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		slog.Debug("rtsp: stream not started, nothing to stop")
		return nil
	}

	slog.Info("rtsp: stopping stream")
	s.cancel()
	s.cancel = nil

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		slog.Warn("rtsp: stop timeout exceeded, destroying pipeline anyway")
		s.elemMu.Lock()
		if err := rtsp.DestroyPipeline(s.elements); err != nil {
			slog.Error("rtsp: failed to destroy pipeline", "error", err)
		}
		s.elements = nil
		s.elemMu.Unlock()
	}

	// The pipeline is NULL here: no callback can send anymore
	if s.framesClosed.CompareAndSwap(false, true) {
		close(s.frames)
	}

	slog.Info("rtsp: stream stopped",
		"frames_captured", s.counters.Frames.Load(),
		"reconnects", s.reconnect.Reconnects.Load(),
		"uptime", time.Since(s.started),
	)
	return nil
}

// Stats returns current stream statistics.
func (s *Stream) Stats() capture.Stats {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	frames := s.counters.Frames.Load()
	dropped := s.counters.Dropped.Load()

	var fpsReal float64
	if !started.IsZero() {
		if up := time.Since(started).Seconds(); up > 0 {
			fpsReal = float64(frames) / up
		}
	}

	var latencyMS int64
	if last := s.counters.LastFrameAt.Load(); last != 0 {
		latencyMS = time.Since(time.Unix(0, last)).Milliseconds()
	}

	var dropRate float64
	if total := frames + dropped; total > 0 {
		dropRate = float64(dropped) / float64(total) * 100.0
	}

	return capture.Stats{
		FrameCount:    frames,
		FramesDropped: dropped,
		DropRate:      dropRate,
		FPSTarget:     s.targetFPS(),
		FPSReal:       fpsReal,
		LatencyMS:     latencyMS,
		Resolution:    fmt.Sprintf("%dx%d", s.width, s.height),
		Reconnects:    s.reconnect.Reconnects.Load(),
		BytesRead:     s.counters.BytesRead.Load(),
		IsConnected:   s.connected.Load(),
		ErrorsNetwork: s.errors.Network.Load(),
		ErrorsCodec:   s.errors.Codec.Load(),
		ErrorsAuth:    s.errors.Auth.Load(),
		ErrorsUnknown: s.errors.Unknown.Load(),
	}
}

// SetTargetFPS updates the capsfilter framerate without restarting the
// pipeline (~2s interruption). When no pipeline is running the new rate
// applies to the next one. On failure the previous rate is restored.
func (s *Stream) SetTargetFPS(fps float64) error {
	if fps < capture.MinFPS || fps > capture.MaxFPS {
		return fmt.Errorf("rtsp: invalid FPS %.2f (must be 0.1-30)", fps)
	}

	s.elemMu.Lock()
	defer s.elemMu.Unlock()

	oldFPS := s.targetFPS()
	s.setTargetFPS(fps)

	if s.elements == nil {
		return nil
	}

	if err := rtsp.UpdateFramerateCaps(s.elements.CapsFilter, fps, s.width, s.height); err != nil {
		slog.Warn("rtsp: FPS update failed, rolling back",
			"error", err,
			"old_fps", oldFPS,
			"failed_fps", fps,
		)
		s.setTargetFPS(oldFPS)
		if rollbackErr := rtsp.UpdateFramerateCaps(s.elements.CapsFilter, oldFPS, s.width, s.height); rollbackErr != nil {
			slog.Error("rtsp: rollback failed, pipeline may be in inconsistent state",
				"rollback_error", rollbackErr,
			)
		}
		return fmt.Errorf("rtsp: failed to update FPS: %w", err)
	}

	slog.Info("rtsp: target FPS updated", "old_fps", oldFPS, "new_fps", fps)
	return nil
}

func (s *Stream) targetFPS() float64 {
	return math.Float64frombits(s.fps.Load())
}

func (s *Stream) setTargetFPS(fps float64) {
	s.fps.Store(math.Float64bits(fps))
}
