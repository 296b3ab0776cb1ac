// Package viewport implements the per-cell renderers drawn into window views.
//
// A Viewport is confined to the render goroutine. The portal calls Setup once
// after creation, then per frame: Visible, SetFrame (image cells only, with a
// view valid only during the call), Update and Render.
package viewport

import (
	"fmt"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/window"
)

// Viewport is the capability set the portal needs from a cell renderer.
type Viewport interface {
	// Name returns the cell name ("v0", "v1", ...).
	Name() string

	// View returns the window view the viewport draws into.
	View() *window.View

	// Setup registers the panel controls ("ui.<name>.*").
	Setup(panel *window.Panel)

	// Visible reports the viewport's own show flag.
	Visible() bool

	// SetFrame uploads a settled frame. The view is only valid during the
	// call: implementations copy what they keep.
	SetFrame(frame types.FrameView)

	// Update advances per-frame state.
	Update()

	// Render draws into View.
	Render() error

	// OnKeyPress offers a reserved key; returns true if handled.
	OnKeyPress(key types.Key) bool

	// Close releases resources. Called once, on the render goroutine.
	Close()
}

// Factory creates the viewport for one cell on the render goroutine.
type Factory func(cell types.CellType, name string, view *window.View) (Viewport, error)

// New is the default Factory.
func New(cell types.CellType, name string, view *window.View) (Viewport, error) {
	switch cell {
	case types.ColorImage:
		return NewColor(name, view), nil
	case types.DepthImage:
		return NewDepth(name, view), nil
	case types.Reconstruction:
		return NewReconstruction(name, view), nil
	case types.Plot:
		return NewPlot(name, view), nil
	default:
		return nil, fmt.Errorf("viewport: unknown cell type %v", cell)
	}
}

// base carries what every variant shares: identity, view and Show control.
type base struct {
	name string
	view *window.View
	show *window.BoolVar
}

func (b *base) Name() string       { return b.name }
func (b *base) View() *window.View { return b.view }
func (b *base) prefix() string     { return "ui." + b.name + "." }

func (b *base) setupShow(p *window.Panel) {
	b.show = p.Bool(b.prefix()+"Show", true)
}

// Visible is false until Setup registered the Show control.
func (b *base) Visible() bool {
	return b.show != nil && b.show.Get()
}

func (b *base) SetFrame(types.FrameView)  {}
func (b *base) Update()                   {}
func (b *base) OnKeyPress(types.Key) bool { return false }
func (b *base) Close()                    {}
