package fullscreen

import "time"

const (
	// DoubleClickWindow is the maximum gap between the two presses.
	DoubleClickWindow = 350 * time.Millisecond

	// DoubleClickSlop is the maximum pointer travel (per axis) between presses.
	DoubleClickSlop = 8
)

// DoubleClick detects two presses on the same cell close in time and space.
type DoubleClick struct {
	window time.Duration
	slop   int
	now    func() time.Time

	last   time.Time // zero = no pending first click
	lastX  int
	lastY  int
	lastID int
}

// NewDoubleClick returns a detector with the default window and slop.
func NewDoubleClick() *DoubleClick {
	return &DoubleClick{
		window: DoubleClickWindow,
		slop:   DoubleClickSlop,
		now:    time.Now,
	}
}

// Press feeds one primary-button press on cell id (1-based, 0 = no cell) at
// pixel (x, y). Returns true when it completes a double-click; the detector
// is reset after a match so a third press starts over.
func (d *DoubleClick) Press(id, x, y int) bool {
	if id == 0 {
		return false
	}

	t := d.now()
	if !d.last.IsZero() &&
		t.Sub(d.last) < d.window &&
		d.lastID == id &&
		abs(x-d.lastX) <= d.slop &&
		abs(y-d.lastY) <= d.slop {
		d.last = time.Time{}
		return true
	}

	d.last = t
	d.lastX = x
	d.lastY = y
	d.lastID = id
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
