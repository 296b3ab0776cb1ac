package window

import (
	"image"
	"image/color"

	"github.com/gogpu/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const labelCacheLimit = 256

// labels renders short strings with the 7x13 bitmap face and caches the
// resulting image buffers.
type labels struct {
	face  font.Face
	cache map[string]*gg.ImageBuf
}

func newLabels() *labels {
	return &labels{
		face:  basicfont.Face7x13,
		cache: make(map[string]*gg.ImageBuf),
	}
}

// draw paints s with its top-left corner at (x, y).
func (l *labels) draw(dc *gg.Context, s string, x, y float64) {
	if s == "" {
		return
	}

	buf, ok := l.cache[s]
	if !ok {
		buf = gg.ImageBufFromImage(l.render(s))
		if len(l.cache) >= labelCacheLimit {
			l.cache = make(map[string]*gg.ImageBuf)
		}
		l.cache[s] = buf
	}

	dc.DrawImage(buf, x, y)
}

func (l *labels) render(s string) *image.RGBA {
	metrics := l.face.Metrics()
	width := font.MeasureString(l.face, s).Ceil()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 230, G: 230, B: 230, A: 255}),
		Face: l.face,
		Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
	}
	d.DrawString(s)
	return img
}

// lineHeight returns the vertical advance between label rows.
func (l *labels) lineHeight() float64 {
	return float64(l.face.Metrics().Height.Ceil()) + 2
}
