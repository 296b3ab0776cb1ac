package types

import (
	"fmt"
	"strings"
)

// CellType is the kind of viewport declared for one grid cell.
type CellType int

const (
	// ColorImage shows RGB8/RGBA8/Luminance8 camera frames.
	ColorImage CellType = iota
	// DepthImage shows Luminance8 depth frames.
	DepthImage
	// Reconstruction shows a 3D scene (no frames).
	Reconstruction
	// Plot shows scrolling curves (no frames).
	Plot
)

// HasImage reports whether cells of this type accept frames.
func (c CellType) HasImage() bool {
	return c == ColorImage || c == DepthImage
}

// Valid reports whether c is one of the declared cell types.
func (c CellType) Valid() bool {
	return c >= ColorImage && c <= Plot
}

// String returns the canonical config name of the cell type.
func (c CellType) String() string {
	switch c {
	case ColorImage:
		return "color"
	case DepthImage:
		return "depth"
	case Reconstruction:
		return "reconstruction"
	case Plot:
		return "plot"
	default:
		return fmt.Sprintf("cell(%d)", int(c))
	}
}

// ParseCellType maps a config name to a CellType.
// Accepts the long names used by older layouts ("color_camera", "rgb8", ...).
func ParseCellType(s string) (CellType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "color", "color_camera", "color_image", "rgb8":
		return ColorImage, nil
	case "depth", "depth_camera", "depth_image", "g8":
		return DepthImage, nil
	case "reconstruction", "recon":
		return Reconstruction, nil
	case "plot":
		return Plot, nil
	default:
		return 0, fmt.Errorf("unknown cell type %q", s)
	}
}

// Key is a keyboard key code (printable keys use their rune value).
type Key int

// Reserved keys handled by the portal itself.
const (
	// KeyPause is offered to viewports in order until one handles it.
	KeyPause Key = 'p'
	// KeyFullscreen toggles window fullscreen.
	KeyFullscreen Key = 'f'
	// KeyConsole toggles the panel console overlay.
	KeyConsole Key = '`'
)

// Params are the window parameters of a portal.
type Params struct {
	// WindowWidth and WindowHeight are the window size in pixels
	WindowWidth  int
	WindowHeight int

	// PanelWidth is the width in pixels of the control panel on the left
	PanelWidth int

	// Title is the window title
	Title string

	// RefreshHz caps the render loop rate (0 = window default)
	RefreshHz float64
}

// DefaultParams returns the parameters used when none are configured.
func DefaultParams() Params {
	return Params{
		WindowWidth:  1280,
		WindowHeight: 720,
		PanelWidth:   200,
		Title:        "ViewPortal",
		RefreshHz:    60,
	}
}
