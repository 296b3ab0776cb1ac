package types

import "testing"

func TestAttachResolve(t *testing.T) {
	tests := []struct {
		name   string
		a      Attach
		extent int
		want   int
	}{
		{"fraction zero", Frac(0), 800, 0},
		{"fraction half", Frac(0.5), 800, 400},
		{"fraction one", Frac(1), 800, 800},
		{"fraction rounds", Frac(1.0 / 3), 100, 33},
		{"pixel", Pix(200), 800, 200},
		{"negative pixel from far edge", Pix(-10), 800, 790},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Resolve(tt.extent); got != tt.want {
				t.Errorf("Resolve(%d) = %d, want %d", tt.extent, got, tt.want)
			}
		})
	}
}

func TestBoundsResolveFlipsVertical(t *testing.T) {
	parent := Rect{X: 200, Y: 0, W: 1080, H: 720}

	// Top row of a 2x2 grid
	got := GridBounds(0, 2, 2).Resolve(parent)
	want := Rect{X: 200, Y: 0, W: 540, H: 360}
	if got != want {
		t.Errorf("cell 0 = %+v, want %+v", got, want)
	}

	// Bottom-right cell
	got = GridBounds(3, 2, 2).Resolve(parent)
	want = Rect{X: 740, Y: 360, W: 540, H: 360}
	if got != want {
		t.Errorf("cell 3 = %+v, want %+v", got, want)
	}

	if got := FullBounds().Resolve(parent); got != parent {
		t.Errorf("full bounds = %+v, want %+v", got, parent)
	}
}

func TestLetterbox(t *testing.T) {
	tests := []struct {
		name   string
		r      Rect
		aspect float64
		want   Rect
	}{
		{"exact fit", Rect{0, 0, 640, 480}, 4.0 / 3, Rect{0, 0, 640, 480}},
		{"pillarbox", Rect{0, 0, 1080, 720}, 4.0 / 3, Rect{60, 0, 960, 720}},
		{"letterbox", Rect{10, 10, 400, 600}, 4.0 / 3, Rect{10, 160, 400, 300}},
		{"no aspect", Rect{5, 5, 10, 10}, 0, Rect{5, 5, 10, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Letterbox(tt.aspect); got != tt.want {
				t.Errorf("Letterbox(%v) = %+v, want %+v", tt.aspect, got, tt.want)
			}
		})
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 5, H: 5}

	if !r.Contains(10, 20) {
		t.Error("top-left corner not contained")
	}
	if r.Contains(15, 20) {
		t.Error("right edge is exclusive")
	}
	if r.Contains(10, 25) {
		t.Error("bottom edge is exclusive")
	}
}

func TestParseCellType(t *testing.T) {
	tests := []struct {
		in   string
		want CellType
	}{
		{"color", ColorImage},
		{"Color_Camera", ColorImage},
		{"rgb8", ColorImage},
		{" depth ", DepthImage},
		{"g8", DepthImage},
		{"reconstruction", Reconstruction},
		{"plot", Plot},
	}

	for _, tt := range tests {
		got, err := ParseCellType(tt.in)
		if err != nil {
			t.Errorf("ParseCellType(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCellType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseCellType("hologram"); err == nil {
		t.Error("ParseCellType(hologram) expected error")
	}

	if CellType(9).Valid() {
		t.Error("CellType(9).Valid() = true")
	}
	if !ColorImage.HasImage() || !DepthImage.HasImage() || Plot.HasImage() || Reconstruction.HasImage() {
		t.Error("HasImage mismatch")
	}
}
