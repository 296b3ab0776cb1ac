package window

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gogpu/gg"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

var (
	backgroundColor = gg.RGB(0.08, 0.08, 0.09)
	panelColor      = gg.RGB(0.16, 0.16, 0.18)
)

// SoftOption configures a Soft window.
type SoftOption func(*Soft)

// WithInput attaches the queue the window drains in Present.
func WithInput(in *Input) SoftOption {
	return func(s *Soft) { s.input = in }
}

// WithSnapshots writes every n-th presented frame as PNG into dir.
func WithSnapshots(dir string, every int) SoftOption {
	return func(s *Soft) {
		s.snapshotDir = dir
		s.snapshotEvery = every
	}
}

// WithRetainFrames keeps a copy of the last presented frame (see LastFrame).
func WithRetainFrames() SoftOption {
	return func(s *Soft) { s.retain = true }
}

// Soft is a headless software window: views and panel are composited on a
// gg canvas, input comes from an Input queue.
//
// Thread-safety: all methods except LastFrame and Frames run on the render
// goroutine.
type Soft struct {
	params  types.Params
	dc      *gg.Context
	panel   *Panel
	labels  *labels
	views   []*View
	display types.Rect
	input   *Input

	keys  map[types.Key][]func()
	mouse []MouseFunc

	quit       bool
	fullscreen bool
	destroyed  bool

	ticker *time.Ticker

	snapshotDir   string
	snapshotEvery int
	retain        bool
	last          atomic.Pointer[image.RGBA]
	frames        atomic.Uint64
}

// NewSoft creates a software window of params.WindowWidth x WindowHeight.
func NewSoft(params types.Params, opts ...SoftOption) (*Soft, error) {
	if params.WindowWidth <= 0 || params.WindowHeight <= 0 {
		return nil, fmt.Errorf("window: invalid size %dx%d", params.WindowWidth, params.WindowHeight)
	}
	if params.PanelWidth < 0 || params.PanelWidth >= params.WindowWidth {
		return nil, fmt.Errorf("window: panel width %d out of range for width %d", params.PanelWidth, params.WindowWidth)
	}

	s := &Soft{
		params: params,
		panel:  NewPanel(),
		labels: newLabels(),
		keys:   make(map[types.Key][]func()),
	}
	s.display = types.Rect{
		X: params.PanelWidth,
		W: params.WindowWidth - params.PanelWidth,
		H: params.WindowHeight,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.snapshotDir != "" {
		if err := os.MkdirAll(s.snapshotDir, 0o755); err != nil {
			return nil, fmt.Errorf("window: snapshot dir: %w", err)
		}
	}

	s.dc = gg.NewContext(params.WindowWidth, params.WindowHeight)
	s.dc.ClearWithColor(backgroundColor)

	if params.RefreshHz > 0 {
		s.ticker = time.NewTicker(time.Duration(float64(time.Second) / params.RefreshHz))
	}

	slog.Info("window: soft window created",
		"title", params.Title,
		"width", params.WindowWidth,
		"height", params.WindowHeight,
		"panel_width", params.PanelWidth,
		"refresh_hz", params.RefreshHz,
	)

	return s, nil
}

// SoftFactory returns a Factory building Soft windows with opts.
func SoftFactory(opts ...SoftOption) Factory {
	return func(params types.Params) (Window, error) {
		return NewSoft(params, opts...)
	}
}

func (s *Soft) NewView(name string, aspect float64, bounds types.Bounds) *View {
	v := NewView(name, aspect, bounds)
	v.attach(s.dc)
	v.Layout(s.display)
	s.views = append(s.views, v)
	return v
}

func (s *Soft) Panel() *Panel { return s.panel }

func (s *Soft) OnKeyPress(key types.Key, fn func()) {
	s.keys[key] = append(s.keys[key], fn)
}

func (s *Soft) OnMouse(fn MouseFunc) {
	s.mouse = append(s.mouse, fn)
}

func (s *Soft) ShouldQuit() bool { return s.quit }

func (s *Soft) ToggleFullscreen() {
	s.fullscreen = !s.fullscreen
	slog.Info("window: fullscreen toggled", "fullscreen", s.fullscreen)
}

func (s *Soft) ToggleConsole() {
	s.panel.ToggleConsole()
}

// Fullscreen reports the native fullscreen flag.
func (s *Soft) Fullscreen() bool { return s.fullscreen }

// Present dispatches queued input, composites the panel, emits the frame and
// prepares the canvas for the next one.
func (s *Soft) Present() error {
	if s.destroyed {
		return fmt.Errorf("window: present after destroy")
	}

	s.dispatch()

	if err := s.drawPanel(); err != nil {
		return fmt.Errorf("window: draw panel: %w", err)
	}

	n := s.frames.Add(1)
	if s.retain {
		if img, ok := s.dc.Image().(*image.RGBA); ok {
			s.last.Store(img)
		}
	}
	if s.snapshotEvery > 0 && n%uint64(s.snapshotEvery) == 0 {
		path := filepath.Join(s.snapshotDir, fmt.Sprintf("frame-%06d.png", n))
		if err := s.dc.SavePNG(path); err != nil {
			slog.Warn("window: snapshot failed", "path", path, "error", err)
		}
	}

	if s.ticker != nil {
		<-s.ticker.C
	}

	// Next frame: input may have moved views (fullscreen), re-layout
	s.dc.ClearWithColor(backgroundColor)
	for _, v := range s.views {
		v.Layout(s.display)
	}

	return nil
}

func (s *Soft) dispatch() {
	if s.input == nil {
		return
	}

	events, closeRequested := s.input.drain()
	if closeRequested && !s.quit {
		slog.Info("window: close requested")
		s.quit = true
	}

	for _, ev := range events {
		switch ev.Kind {
		case EventKey:
			for _, fn := range s.keys[ev.Key] {
				fn()
			}
		case EventMouse:
			for _, fn := range s.mouse {
				fn(ev.Mouse)
			}
		}
	}
}

func (s *Soft) drawPanel() error {
	if s.params.PanelWidth == 0 {
		return nil
	}

	dc := s.dc
	w := float64(s.params.PanelWidth)
	h := float64(s.params.WindowHeight)

	dc.Push()
	defer dc.Pop()
	dc.ClipRect(0, 0, w, h)

	dc.SetRGB(panelColor.R, panelColor.G, panelColor.B)
	dc.DrawRectangle(0, 0, w, h)
	if err := dc.Fill(); err != nil {
		return err
	}

	y := 6.0
	step := s.labels.lineHeight()
	for _, line := range s.panel.Lines() {
		s.labels.draw(dc, line, 6, y)
		y += step
	}

	if s.panel.ConsoleShown() {
		top := h - 4*step
		dc.SetRGBA(0, 0, 0, 0.7)
		dc.DrawRectangle(0, top, w, h-top)
		if err := dc.Fill(); err != nil {
			return err
		}
		s.labels.draw(dc, s.params.Title, 6, top+4)
		s.labels.draw(dc, fmt.Sprintf("frames %d", s.frames.Load()), 6, top+4+step)
	}

	return nil
}

// LastFrame returns a copy of the last presented frame, or nil unless the
// window was created WithRetainFrames. Safe from any goroutine.
func (s *Soft) LastFrame() *image.RGBA {
	return s.last.Load()
}

// Frames returns the number of presented frames. Safe from any goroutine.
func (s *Soft) Frames() uint64 {
	return s.frames.Load()
}

func (s *Soft) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true

	if s.ticker != nil {
		s.ticker.Stop()
	}
	if err := s.dc.Close(); err != nil {
		slog.Warn("window: canvas close failed", "error", err)
	}

	slog.Info("window: soft window destroyed", "frames", s.frames.Load())
}
