package viewport

import (
	"math/rand"

	"github.com/gogpu/gg"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/window"
)

const (
	noiseWidth  = 160
	noiseHeight = 120
)

// Color shows camera frames (RGB8, RGBA8 or Luminance8). Until the first
// frame arrives it shows color noise.
type Color struct {
	base
	tex    texture
	noise  []byte
	frames uint64
	seq    uint64 // Seq of the uploaded frame
}

// NewColor returns a color camera viewport drawing into view.
func NewColor(name string, view *window.View) *Color {
	return &Color{base: base{name: name, view: view}}
}

func (c *Color) Setup(panel *window.Panel) {
	c.setupShow(panel)
}

// SetFrame uploads v unless it is the frame already shown. Views without
// a Seq are always uploaded.
func (c *Color) SetFrame(v types.FrameView) {
	if v.Seq != 0 && v.Seq == c.seq {
		return
	}
	c.tex.upload(v, 1)
	c.seq = v.Seq
	c.frames++
}

func (c *Color) Update() {
	if c.frames > 0 {
		return
	}

	if c.noise == nil {
		c.noise = make([]byte, noiseWidth*noiseHeight*3)
	}
	for i := range c.noise {
		c.noise[i] = byte(rand.Intn(256))
	}
	c.tex.upload(types.FrameView{
		Width:  noiseWidth,
		Height: noiseHeight,
		Format: types.RGB8,
		Data:   c.noise,
	}, 1)
}

func (c *Color) Render() error {
	return c.view.Draw(func(dc *gg.Context, w, h float64) error {
		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(0, 0, w, h)
		if err := dc.Fill(); err != nil {
			return err
		}
		c.tex.draw(dc, w, h)
		return nil
	})
}

// Frames returns the number of frames received.
func (c *Color) Frames() uint64 { return c.frames }

func (c *Color) Close() {
	c.tex.release()
	c.noise = nil
}
