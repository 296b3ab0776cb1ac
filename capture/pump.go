package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/capture/internal/warmup"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// rateWindow is how many arrivals per stream feed the FPS estimate.
const rateWindow = 60

// Sink receives routed frames. The portal satisfies it.
type Sink interface {
	UpdateFrame(cellIndex int, frame types.Frame)
}

// StreamRate is the measured arrival rate of one stream.
type StreamRate struct {
	Frames uint64
	FPS    float64
	Stable bool
}

// PumpStats contains routing counters
type PumpStats struct {
	Forwarded uint64
	Unrouted  uint64
	Streams   map[string]StreamRate
}

// Pump forwards the frames of a Source to sink cells by stream name.
//
// Routes are read on every frame and may be replaced while running
// (SetRoutes). Frames of a stream without a route are counted and dropped.
type Pump struct {
	mu      sync.Mutex
	routes  map[string]int
	streams map[string]*streamWindow
	warned  map[string]bool

	forwarded atomic.Uint64
	unrouted  atomic.Uint64
}

type streamWindow struct {
	frames uint64
	times  []time.Time // ring of the last rateWindow arrivals
	next   int
}

func (w *streamWindow) add(t time.Time) {
	w.frames++
	if len(w.times) < rateWindow {
		w.times = append(w.times, t)
		return
	}
	w.times[w.next] = t
	w.next = (w.next + 1) % rateWindow
}

// ordered returns the arrivals oldest first.
func (w *streamWindow) ordered() []time.Time {
	out := make([]time.Time, 0, len(w.times))
	out = append(out, w.times[w.next:]...)
	return append(out, w.times[:w.next]...)
}

// NewPump creates a pump with the given stream -> cell routes.
func NewPump(routes map[string]int) *Pump {
	p := &Pump{
		streams: make(map[string]*streamWindow),
		warned:  make(map[string]bool),
	}
	p.SetRoutes(routes)
	return p
}

// SetRoutes replaces the routing table.
func (p *Pump) SetRoutes(routes map[string]int) {
	copied := make(map[string]int, len(routes))
	for k, v := range routes {
		copied[k] = v
	}

	p.mu.Lock()
	p.routes = copied
	p.warned = make(map[string]bool)
	p.mu.Unlock()
}

// Run starts src and forwards its frames until ctx is cancelled or the
// source closes its channel. The source is stopped on return.
func (p *Pump) Run(ctx context.Context, src Source, sink Sink) error {
	frames, err := src.Start(ctx)
	if err != nil {
		return fmt.Errorf("capture: failed to start source: %w", err)
	}
	defer func() {
		if err := src.Stop(); err != nil {
			slog.Warn("capture: source stop failed", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			p.forward(f, sink)
		}
	}
}

func (p *Pump) forward(f Frame, sink Sink) {
	p.mu.Lock()
	cell, routed := p.routes[f.SourceStream]
	w := p.streams[f.SourceStream]
	if w == nil {
		w = &streamWindow{}
		p.streams[f.SourceStream] = w
	}
	w.add(time.Now())

	firstMiss := !routed && !p.warned[f.SourceStream]
	if firstMiss {
		p.warned[f.SourceStream] = true
	}
	p.mu.Unlock()

	if !routed {
		p.unrouted.Add(1)
		if firstMiss {
			slog.Warn("capture: no route for stream, dropping its frames",
				"stream", f.SourceStream,
				"trace_id", f.TraceID,
			)
		}
		return
	}

	sink.UpdateFrame(cell, f.Image())
	p.forwarded.Add(1)
}

// Stats returns routing counters and per-stream arrival rates.
func (p *Pump) Stats() PumpStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	streams := make(map[string]StreamRate, len(p.streams))
	for name, w := range p.streams {
		rate := StreamRate{Frames: w.frames}
		if times := w.ordered(); len(times) >= 2 {
			s := warmup.CalculateFPSStats(times, warmup.SpanWindow(times))
			rate.FPS = s.FPSMean
			rate.Stable = s.IsStable
		}
		streams[name] = rate
	}

	return PumpStats{
		Forwarded: p.forwarded.Load(),
		Unrouted:  p.unrouted.Load(),
		Streams:   streams,
	}
}
