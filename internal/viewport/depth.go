package viewport

import (
	"math"

	"github.com/gogpu/gg"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/window"
)

const (
	depthWidth  = 320
	depthHeight = 240
)

// Depth shows Luminance8 depth maps scaled by the Depth_Scale slider.
// Without frames it shows a synthetic radial gradient.
type Depth struct {
	base
	tex        texture
	showDepth  *window.BoolVar
	depthScale *window.FloatVar

	gradient     []byte
	gradientGain float64
	frames       uint64
	seq          uint64  // Seq of the uploaded frame
	frameGain    float64 // Gain the uploaded frame was scaled with
}

// NewDepth returns a depth camera viewport drawing into view.
func NewDepth(name string, view *window.View) *Depth {
	return &Depth{base: base{name: name, view: view}}
}

func (d *Depth) Setup(panel *window.Panel) {
	d.setupShow(panel)
	d.showDepth = panel.Bool(d.prefix()+"Show_Depth", true)
	d.depthScale = panel.Float(d.prefix()+"Depth_Scale", 1, 0.1, 5)
}

func (d *Depth) gain() float64 {
	if d.depthScale == nil {
		return 1
	}
	return d.depthScale.Get()
}

func (d *Depth) depthShown() bool {
	return d.showDepth == nil || d.showDepth.Get()
}

// SetFrame uploads v when it is a new frame, or re-scales the current one
// when Depth_Scale moved.
func (d *Depth) SetFrame(v types.FrameView) {
	gain := d.gain()
	same := v.Seq != 0 && v.Seq == d.seq
	if same && gain == d.frameGain {
		return
	}

	d.tex.upload(v, gain)
	d.frameGain = gain
	if !same {
		d.seq = v.Seq
		d.frames++
	}
}

func (d *Depth) Update() {
	if d.frames > 0 || !d.depthShown() {
		return
	}

	gain := d.gain()
	if d.gradient != nil && gain == d.gradientGain {
		return
	}

	if d.gradient == nil {
		d.gradient = radialGradient(depthWidth, depthHeight)
	}
	d.gradientGain = gain
	d.tex.upload(types.FrameView{
		Width:  depthWidth,
		Height: depthHeight,
		Format: types.Luminance8,
		Data:   d.gradient,
	}, gain)
}

func (d *Depth) Render() error {
	if !d.depthShown() {
		return nil
	}

	return d.view.Draw(func(dc *gg.Context, w, h float64) error {
		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(0, 0, w, h)
		if err := dc.Fill(); err != nil {
			return err
		}
		d.tex.draw(dc, w, h)
		return nil
	})
}

// Frames returns the number of frames received.
func (d *Depth) Frames() uint64 { return d.frames }

func (d *Depth) Close() {
	d.tex.release()
	d.gradient = nil
}

// radialGradient is bright at the center and fades with distance.
func radialGradient(w, h int) []byte {
	out := make([]byte, w*h)
	cx, cy := float64(w)/2, float64(h)/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dist := math.Hypot(float64(x)-cx, float64(y)-cy)
			v := 255 * (1 - dist/(float64(w)*0.7))
			if v < 0 {
				v = 0
			}
			out[y*w+x] = byte(v)
		}
	}
	return out
}
