package viewportal

import (
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/portal"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/viewport"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/window"
)

// Frame is re-exported from the internal types package.
// See internal/types/frame.go for the ownership contract.
type Frame = types.Frame

// FrameView is the read-only settled frame handed to viewports.
type FrameView = types.FrameView

// PixelFormat selects the pixel layout of a Frame.
type PixelFormat = types.PixelFormat

const (
	RGB8       = types.RGB8
	RGBA8      = types.RGBA8
	Luminance8 = types.Luminance8
)

// CellType selects the viewport shown in a cell.
type CellType = types.CellType

const (
	ColorImage     = types.ColorImage
	DepthImage     = types.DepthImage
	Reconstruction = types.Reconstruction
	Plot           = types.Plot
)

// Key is a keyboard key, identified by its character code.
type Key = types.Key

// Params are the window parameters.
type Params = types.Params

// Stats and CellStats are re-exported from the internal portal package.
type (
	Stats     = portal.Stats
	CellStats = portal.CellStats
)

// Window and viewport collaborators, for callers that plug their own.
type (
	Window          = window.Window
	WindowFactory   = window.Factory
	View            = window.View
	Panel           = window.Panel
	Viewport        = viewport.Viewport
	ViewportFactory = viewport.Factory
)

var (
	// ErrInvalidArgument: the grid or cell list passed to New is malformed.
	ErrInvalidArgument = types.ErrInvalidArgument

	// ErrInitialization: the window or a viewport could not be created.
	ErrInitialization = types.ErrInitialization

	// ErrClosed: the component was already closed.
	ErrClosed = types.ErrClosed
)

// DefaultParams returns 1280x720 with a 200 px panel, titled "ViewPortal".
func DefaultParams() Params {
	return types.DefaultParams()
}

// ParseCellType parses "color", "depth", "reconstruction" or "plot".
func ParseCellType(s string) (CellType, error) {
	return types.ParseCellType(s)
}

// Portal is the public interface of a running display.
//
// Lifecycle: New() → UpdateFrame()/CheckKey() from any goroutine → Close()
//
// Thread-safety: all methods are safe for concurrent use.
type Portal interface {
	// UpdateFrame copies frame into the cell at index (row-major).
	//
	// Semantics:
	//   - Copy: the caller may reuse frame.Data as soon as this returns
	//   - Latest wins: a frame replaced before it was displayed is dropped
	//   - Never waits for the render goroutine; writers of the same cell
	//     serialize on that cell only
	//
	// Out-of-range indices, cells without images and degenerate frames are
	// ignored silently (counted in Stats where a slot exists).
	UpdateFrame(index int, frame Frame)

	// ShouldQuit reports whether the portal stopped: Close was called, the
	// window was closed or the render goroutine failed. Latched.
	ShouldQuit() bool

	// SetKeysToWatch replaces the set of keys reported by CheckKey.
	// Listeners for new keys are installed on the next render iteration.
	SetKeysToWatch(keys []Key)

	// CheckKey reports whether key was pressed since the previous call.
	//
	// Semantics:
	//   - At most once per press; several presses between polls collapse
	//   - Always false for keys not in the watched set
	CheckKey(key Key) bool

	// Stats returns operational statistics (non-blocking snapshot).
	Stats() Stats

	// ID returns the session id attached to the portal logs.
	ID() string

	// Close stops the render goroutine and releases the window.
	// Blocks until the render goroutine exited. Idempotent.
	Close() error
}

// Option customizes New.
type Option func(*portal.Config)

// WithWindowFactory replaces the software window.
func WithWindowFactory(f WindowFactory) Option {
	return func(c *portal.Config) { c.WindowFactory = f }
}

// WithViewportFactory replaces the built-in viewports.
func WithViewportFactory(f ViewportFactory) Option {
	return func(c *portal.Config) { c.ViewportFactory = f }
}

// New opens a rows x cols portal showing one cell per entry of cells.
//
// Blocks until the render goroutine has created the window and every
// viewport.
//
// Errors:
//   - ErrInvalidArgument: len(cells) != rows*cols, rows/cols <= 0, or an
//     unknown cell type. Nothing was started.
//   - ErrInitialization: window or viewport setup failed. Everything that
//     was created has been released.
func New(rows, cols int, cells []CellType, params Params, opts ...Option) (Portal, error) {
	cfg := portal.Config{
		Rows:   rows,
		Cols:   cols,
		Cells:  cells,
		Params: params,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	p, err := portal.New(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}
