package warmup

import (
	"context"
	"testing"
	"time"
)

func evenly(n int, interval time.Duration) []time.Time {
	base := time.Unix(1700000000, 0)
	times := make([]time.Time, n)
	for i := range times {
		times[i] = base.Add(time.Duration(i) * interval)
	}
	return times
}

func TestCalculateFPSStats(t *testing.T) {
	tests := []struct {
		name       string
		times      []time.Time
		window     time.Duration
		wantMean   float64
		wantStable bool
	}{
		{"empty", nil, time.Second, 0, false},
		{"single frame", evenly(1, 0), time.Second, 1, false},
		{"steady 10 Hz", evenly(10, 100*time.Millisecond), time.Second, 10, true},
		{"steady 2 Hz", evenly(4, 500*time.Millisecond), 2 * time.Second, 2, true},
		{"bursty", append(evenly(5, 10*time.Millisecond), time.Unix(1700000001, 0)), time.Second, 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := CalculateFPSStats(tt.times, tt.window)
			if diff := stats.FPSMean - tt.wantMean; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("FPSMean = %v, want %v", stats.FPSMean, tt.wantMean)
			}
			if stats.IsStable != tt.wantStable {
				t.Errorf("IsStable = %v, want %v (stddev=%.3f jitter=%.4f)",
					stats.IsStable, tt.wantStable, stats.FPSStdDev, stats.JitterMean)
			}
			if stats.FramesReceived != len(tt.times) {
				t.Errorf("FramesReceived = %d, want %d", stats.FramesReceived, len(tt.times))
			}
		})
	}
}

func TestRunClosedChannel(t *testing.T) {
	frames := make(chan time.Time)
	close(frames)

	_, err := Run(context.Background(), frames, time.Second, func(ts time.Time) time.Time { return ts })
	if err == nil {
		t.Fatal("Run() on closed channel expected error")
	}
}

func TestRunTooFewFrames(t *testing.T) {
	frames := make(chan time.Time, 1)
	frames <- time.Now()

	_, err := Run(context.Background(), frames, 20*time.Millisecond, func(ts time.Time) time.Time { return ts })
	if err == nil {
		t.Fatal("Run() with one frame expected error")
	}
}

func TestSpanWindow(t *testing.T) {
	if got := SpanWindow(evenly(1, time.Second)); got != 0 {
		t.Errorf("SpanWindow(1 frame) = %v, want 0", got)
	}
	if got := SpanWindow(evenly(10, 100*time.Millisecond)); got != time.Second {
		t.Errorf("SpanWindow(10 @ 100ms) = %v, want 1s", got)
	}
}
