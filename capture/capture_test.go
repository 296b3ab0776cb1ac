package capture_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/capture"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// TestNewSynthetic_FailFast tests constructor validation
func TestNewSynthetic_FailFast(t *testing.T) {
	tests := []struct {
		name   string
		cfg    capture.SyntheticConfig
		errMsg string
	}{
		{"valid defaults", capture.SyntheticConfig{TargetFPS: 5}, ""},
		{"zero fps", capture.SyntheticConfig{TargetFPS: 0}, "invalid FPS"},
		{"fps too high", capture.SyntheticConfig{TargetFPS: 31}, "invalid FPS"},
		{"negative width", capture.SyntheticConfig{Width: -1, Height: 10, TargetFPS: 5}, "invalid synthetic size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := capture.NewSynthetic(tt.cfg)
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("NewSynthetic() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("NewSynthetic() error = %v, want containing %q", err, tt.errMsg)
			}
		})
	}
}

// TestSynthetic_Lifecycle tests Start -> frames -> Stop -> channel closed
func TestSynthetic_Lifecycle(t *testing.T) {
	src, err := capture.NewSynthetic(capture.SyntheticConfig{Width: 16, Height: 8, TargetFPS: 30, Seed: 1})
	if err != nil {
		t.Fatalf("NewSynthetic() error: %v", err)
	}

	frames, err := src.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if _, err := src.Start(context.Background()); err == nil {
		t.Error("second Start() expected error")
	}

	seen := map[string]capture.Frame{}
	deadline := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case f := <-frames:
			seen[f.SourceStream] = f
		case <-deadline:
			t.Fatalf("timeout, streams seen: %v", len(seen))
		}
	}

	color := seen[capture.StreamColor]
	if color.Format != types.RGB8 || len(color.Data) != 16*8*3 || color.TraceID == "" {
		t.Errorf("color frame = %dx%d %v len=%d trace=%q", color.Width, color.Height, color.Format, len(color.Data), color.TraceID)
	}
	depth := seen[capture.StreamDepth]
	if depth.Format != types.Luminance8 || len(depth.Data) != 16*8 {
		t.Errorf("depth frame = %v len=%d", depth.Format, len(depth.Data))
	}
	// Center of the gradient is the brightest pixel
	if center := depth.Data[4*16+8]; center < depth.Data[0] {
		t.Errorf("depth center %d darker than corner %d", center, depth.Data[0])
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("second Stop() error: %v", err)
	}

	// Drain: the channel must be closed after Stop
	for range frames {
	}

	if _, err := src.Start(context.Background()); !errors.Is(err, types.ErrClosed) {
		t.Errorf("Start() after Stop() error = %v, want ErrClosed", err)
	}

	stats := src.Stats()
	if stats.FrameCount < 2 || stats.IsConnected {
		t.Errorf("Stats() = %+v", stats)
	}
	if stats.Resolution != "16x8" {
		t.Errorf("Resolution = %q, want 16x8", stats.Resolution)
	}
	t.Logf("✅ synthetic: %d frames, %d dropped", stats.FrameCount, stats.FramesDropped)
}

// TestSynthetic_DropsWhenNotConsumed tests the non-blocking send
func TestSynthetic_DropsWhenNotConsumed(t *testing.T) {
	src, err := capture.NewSynthetic(capture.SyntheticConfig{Width: 4, Height: 4, TargetFPS: 30})
	if err != nil {
		t.Fatalf("NewSynthetic() error: %v", err)
	}
	if _, err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer src.Stop()

	// Nobody reads: the 4-slot channel fills and later frames are dropped
	deadline := time.Now().Add(2 * time.Second)
	for src.Stats().FramesDropped == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no drops after 2s: %+v", src.Stats())
		}
		time.Sleep(10 * time.Millisecond)
	}

	stats := src.Stats()
	if stats.FrameCount != 4 {
		t.Errorf("FrameCount = %d, want 4 (channel capacity)", stats.FrameCount)
	}
	if stats.DropRate <= 0 {
		t.Errorf("DropRate = %v, want > 0", stats.DropRate)
	}
}

func TestSynthetic_SetTargetFPS(t *testing.T) {
	src, err := capture.NewSynthetic(capture.SyntheticConfig{TargetFPS: 1})
	if err != nil {
		t.Fatalf("NewSynthetic() error: %v", err)
	}

	if err := src.SetTargetFPS(50); err == nil {
		t.Error("SetTargetFPS(50) expected error")
	}
	if err := src.SetTargetFPS(12.5); err != nil {
		t.Fatalf("SetTargetFPS(12.5) error: %v", err)
	}
	// Repeated updates before Start keep only the latest
	if err := src.SetTargetFPS(20); err != nil {
		t.Fatalf("SetTargetFPS(20) error: %v", err)
	}
	if got := src.Stats().FPSTarget; got != 20 {
		t.Errorf("FPSTarget = %v, want 20", got)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	frames map[int]int
}

func (s *recordingSink) UpdateFrame(cell int, _ types.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[cell]++
}

func (s *recordingSink) count(cell int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[cell]
}

// Scenario:
//  1. Synthetic source emits color + depth
//  2. Only color is routed (to cell 1)
//  3. Depth frames are counted as unrouted, color ones reach cell 1
func TestPump_Routes(t *testing.T) {
	src, err := capture.NewSynthetic(capture.SyntheticConfig{Width: 8, Height: 8, TargetFPS: 30})
	if err != nil {
		t.Fatalf("NewSynthetic() error: %v", err)
	}

	pump := capture.NewPump(map[string]int{capture.StreamColor: 1})
	sink := &recordingSink{frames: map[int]int{}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pump.Run(ctx, src, sink) }()

	deadline := time.Now().Add(3 * time.Second)
	for sink.count(1) < 5 || pump.Stats().Unrouted == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("routing stalled: sink=%v stats=%+v", sink.count(1), pump.Stats())
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	stats := pump.Stats()
	if sink.count(0) != 0 {
		t.Errorf("cell 0 received %d frames, want 0", sink.count(0))
	}
	if stats.Forwarded != uint64(sink.count(1)) {
		t.Errorf("Forwarded = %d, sink saw %d", stats.Forwarded, sink.count(1))
	}
	if rate := stats.Streams[capture.StreamColor]; rate.Frames < 5 || rate.FPS <= 0 {
		t.Errorf("color rate = %+v", rate)
	}
	if src.Stats().IsConnected {
		t.Error("source still running after Run returned")
	}
	t.Logf("✅ pump: forwarded=%d unrouted=%d", stats.Forwarded, stats.Unrouted)
}

func TestPump_StartFailure(t *testing.T) {
	src, err := capture.NewSynthetic(capture.SyntheticConfig{TargetFPS: 5})
	if err != nil {
		t.Fatalf("NewSynthetic() error: %v", err)
	}
	if _, err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer src.Stop()

	// Already started: Run must surface the Start error
	err = capture.NewPump(nil).Run(context.Background(), src, &recordingSink{frames: map[int]int{}})
	if err == nil {
		t.Fatal("Run() on started source expected error")
	}
}

func TestWarmup_Stable(t *testing.T) {
	frames := make(chan capture.Frame, 16)
	base := time.Now()
	for i := 0; i < 10; i++ {
		frames <- capture.Frame{Seq: uint64(i), Timestamp: base.Add(time.Duration(i) * 100 * time.Millisecond)}
	}

	stats, err := capture.Warmup(context.Background(), frames, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Warmup() error: %v", err)
	}
	if stats.FramesReceived != 10 || !stats.IsStable {
		t.Errorf("Warmup() = %+v", stats)
	}
}
