// Package window defines the windowing collaborator of the portal and ships
// a software implementation (Soft) that composites on a gg canvas.
//
// Everything here runs on the render goroutine except Soft.Inject,
// Soft.RequestClose and Panel, which are safe from any goroutine.
package window

import (
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// MouseButton identifies a pointer button.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseMiddle
	MouseRight
)

// MouseEvent is one button transition in window pixel coordinates
// (top-left origin).
type MouseEvent struct {
	Button  MouseButton
	X, Y    int
	Pressed bool
}

// MouseFunc handles mouse events on the render goroutine.
type MouseFunc func(MouseEvent)

// Window is the native window + panel + input source owned by the render
// goroutine.
//
// Callbacks registered with OnKeyPress and OnMouse run synchronously inside
// Present.
type Window interface {
	// NewView creates a cell view with the given aspect (w/h) and bounds
	// relative to the display area.
	NewView(name string, aspect float64, bounds types.Bounds) *View

	// Panel returns the control panel.
	Panel() *Panel

	// OnKeyPress registers fn for presses of key.
	OnKeyPress(key types.Key, fn func())

	// OnMouse registers fn for every mouse button event.
	OnMouse(fn MouseFunc)

	// ShouldQuit reports whether the user asked to close the window.
	ShouldQuit() bool

	// Present processes pending input, then shows the frame drawn so far.
	Present() error

	// ToggleFullscreen switches the native window between windowed and
	// fullscreen.
	ToggleFullscreen()

	// ToggleConsole shows or hides the panel console overlay.
	ToggleConsole()

	// Destroy releases the window. No other method is called afterwards.
	Destroy()
}

// Factory creates a window on the render goroutine.
type Factory func(params types.Params) (Window, error)

// HitTest returns the 1-based index of the first shown view containing the
// pixel (x, y), or 0 if none does.
func HitTest(views []*View, x, y int) int {
	for i, v := range views {
		if v.IsShown() && v.Rect().Contains(x, y) {
			return i + 1
		}
	}
	return 0
}
