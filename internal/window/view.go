package window

import (
	"github.com/gogpu/gg"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// DefaultAspect is the cell aspect ratio used when none is given.
const DefaultAspect = 640.0 / 480.0

// View is one cell of the display grid.
//
// Bounds are relative to the display area (the window minus the panel).
// Layout resolves them to a pixel rectangle, letterboxed to the view aspect.
type View struct {
	name   string
	aspect float64
	bounds types.Bounds
	shown  bool

	display types.Rect  // Area of the last Layout
	rect    types.Rect  // Resolved by Layout
	canvas  *gg.Context // nil for views not attached to a drawing surface
}

// NewView returns a shown, detached view.
func NewView(name string, aspect float64, bounds types.Bounds) *View {
	if aspect <= 0 {
		aspect = DefaultAspect
	}
	return &View{name: name, aspect: aspect, bounds: bounds, shown: true}
}

func (v *View) Name() string         { return v.name }
func (v *View) Aspect() float64      { return v.aspect }
func (v *View) Bounds() types.Bounds { return v.bounds }
func (v *View) IsShown() bool        { return v.shown }
func (v *View) Show(shown bool)      { v.shown = shown }

// SetBounds moves the view. A laid out view is re-resolved against the same
// display area at once, so hit tests see the new rectangle before the next
// Layout.
func (v *View) SetBounds(b types.Bounds) {
	v.bounds = b
	if !v.display.Empty() {
		v.Layout(v.display)
	}
}

// Rect returns the pixel rectangle computed by the last Layout.
func (v *View) Rect() types.Rect {
	return v.rect
}

// Layout resolves the bounds against the display area.
func (v *View) Layout(display types.Rect) {
	v.display = display
	v.rect = v.bounds.Resolve(display).Letterbox(v.aspect)
}

// attach binds the view to a drawing surface.
func (v *View) attach(dc *gg.Context) {
	v.canvas = dc
}

// Draw runs fn with the canvas translated and clipped to the view rectangle,
// so fn draws in local coordinates (0,0)-(w,h).
//
// No-op for hidden, detached or empty views.
func (v *View) Draw(fn func(dc *gg.Context, w, h float64) error) error {
	if v.canvas == nil || !v.shown || v.rect.Empty() {
		return nil
	}

	dc := v.canvas
	dc.Push()
	defer dc.Pop()

	w, h := float64(v.rect.W), float64(v.rect.H)
	dc.Translate(float64(v.rect.X), float64(v.rect.Y))
	dc.ClipRect(0, 0, w, h)

	return fn(dc, w, h)
}
