package types

import "math"

// Unit selects how an Attach value is interpreted.
type Unit int

const (
	// Fraction is a fraction of the parent extent (0..1).
	Fraction Unit = iota
	// Pixel is an absolute offset in pixels (negative counts from the far edge).
	Pixel
)

// Attach is one edge position of a view, relative to its parent.
type Attach struct {
	Unit  Unit
	Value float64
}

// Frac returns a fractional attach point.
func Frac(v float64) Attach { return Attach{Unit: Fraction, Value: v} }

// Pix returns a pixel attach point.
func Pix(v int) Attach { return Attach{Unit: Pixel, Value: float64(v)} }

// Resolve converts the attach point to a pixel offset within extent.
func (a Attach) Resolve(extent int) int {
	switch a.Unit {
	case Pixel:
		if a.Value < 0 {
			return extent + int(a.Value)
		}
		return int(a.Value)
	default:
		return int(math.Round(a.Value * float64(extent)))
	}
}

// Bounds are the four edges of a view. Bottom/Top run bottom-up
// (0 = bottom edge of the parent), Left/Right run left-to-right.
type Bounds struct {
	Bottom Attach
	Top    Attach
	Left   Attach
	Right  Attach
}

// FullBounds covers the whole parent area.
func FullBounds() Bounds {
	return Bounds{Bottom: Frac(0), Top: Frac(1), Left: Frac(0), Right: Frac(1)}
}

// Rect is a resolved pixel rectangle in top-left origin coordinates.
type Rect struct {
	X, Y int // top-left corner
	W, H int
}

// Contains reports whether the pixel (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Resolve maps b onto the parent rectangle, flipping the vertical axis to
// top-left origin.
func (b Bounds) Resolve(parent Rect) Rect {
	left := b.Left.Resolve(parent.W)
	right := b.Right.Resolve(parent.W)
	bottom := b.Bottom.Resolve(parent.H)
	top := b.Top.Resolve(parent.H)

	return Rect{
		X: parent.X + left,
		Y: parent.Y + parent.H - top,
		W: right - left,
		H: top - bottom,
	}
}

// Letterbox returns the largest rectangle of the given aspect (w/h) centered
// inside r. A non-positive aspect returns r unchanged.
func (r Rect) Letterbox(aspect float64) Rect {
	if aspect <= 0 || r.Empty() {
		return r
	}

	w, h := r.W, int(math.Round(float64(r.W)/aspect))
	if h > r.H {
		h = r.H
		w = int(math.Round(float64(r.H) * aspect))
	}

	return Rect{
		X: r.X + (r.W-w)/2,
		Y: r.Y + (r.H-h)/2,
		W: w,
		H: h,
	}
}

// GridBounds returns the bounds of cell index in a rows x cols grid laid out
// row-major from the top-left.
func GridBounds(index, rows, cols int) Bounds {
	r := index / cols
	c := index % cols

	return Bounds{
		Bottom: Frac(1 - float64(r+1)/float64(rows)),
		Top:    Frac(1 - float64(r)/float64(rows)),
		Left:   Frac(float64(c) / float64(cols)),
		Right:  Frac(float64(c+1) / float64(cols)),
	}
}
