// Package types holds the value types shared by the portal internals and
// re-exported by the public viewportal package.
package types

import "fmt"

// PixelFormat selects how many bytes describe one pixel.
type PixelFormat int

const (
	// RGB8 is 3 bytes per pixel, red first.
	RGB8 PixelFormat = iota
	// RGBA8 is 4 bytes per pixel, straight (non-premultiplied) alpha.
	RGBA8
	// Luminance8 is 1 byte per pixel (grayscale, depth maps).
	Luminance8
)

// BytesPerPixel returns the pixel size for f, or 0 for an unknown format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case RGB8:
		return 3
	case RGBA8:
		return 4
	case Luminance8:
		return 1
	default:
		return 0
	}
}

// String returns a human-readable name of the format.
func (f PixelFormat) String() string {
	switch f {
	case RGB8:
		return "rgb8"
	case RGBA8:
		return "rgba8"
	case Luminance8:
		return "luminance8"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Frame describes one image handed to the portal by a producer.
//
// OWNERSHIP CONTRACT:
//   - The portal copies Data before UpdateFrame returns
//   - The producer may reuse or overwrite Data immediately afterwards
//
// Stride is the distance in bytes between the starts of two rows in Data.
// Zero means rows are tightly packed (Width * BytesPerPixel).
type Frame struct {
	// Width of the image in pixels (must be > 0)
	Width int

	// Height of the image in pixels (must be > 0)
	Height int

	// Format of each pixel in Data
	Format PixelFormat

	// Data holds the pixel rows, first row first
	Data []byte

	// Stride is the row pitch in bytes (0 = packed)
	Stride int
}

// RowBytes returns the packed size of one row.
func (f Frame) RowBytes() int {
	return f.Width * f.Format.BytesPerPixel()
}

// PackedSize returns the number of bytes of the frame once tightly packed.
// Returns 0 for degenerate frames.
func (f Frame) PackedSize() int {
	if f.Width <= 0 || f.Height <= 0 {
		return 0
	}
	return f.RowBytes() * f.Height
}

// FrameView is a read-only, tightly packed view of a settled frame.
//
// A FrameView is only valid inside the callback it was handed to. Renderers
// that need the pixels afterwards must copy them (texture upload semantics).
type FrameView struct {
	Width  int
	Height int
	Format PixelFormat
	Data   []byte

	// Seq is the write sequence number of the slot that produced this view.
	// Monotonically increasing per cell.
	Seq uint64
}
