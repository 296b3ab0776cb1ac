package viewport

import (
	"math"

	"github.com/gogpu/gg"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/window"
)

const (
	plotStep   = 0.01
	plotSpan   = 4 * math.Pi // visible x range
	plotYRange = 2.0         // visible y range is [-2, 2]
)

type sample struct{ x, y1, y2 float64 }

// Plot draws two scrolling sine curves controlled by panel sliders.
// 'p' or the Toggle_Pause button pause it.
type Plot struct {
	base
	amp1, freq1 *window.FloatVar
	amp2, freq2 *window.FloatVar
	pauseButton *window.ButtonVar

	paused  bool
	x       float64
	samples []sample
}

// NewPlot returns a plot viewport drawing into view.
func NewPlot(name string, view *window.View) *Plot {
	return &Plot{base: base{name: name, view: view}}
}

func (p *Plot) Setup(panel *window.Panel) {
	p.setupShow(panel)
	p.amp1 = panel.Float(p.prefix()+"Amplitude_1", 1, 0.1, 5)
	p.freq1 = panel.Float(p.prefix()+"Frequency_1", 1, 0.1, 10)
	p.amp2 = panel.Float(p.prefix()+"Amplitude_2", 1, 0.1, 5)
	p.freq2 = panel.Float(p.prefix()+"Frequency_2", 2, 0.1, 10)
	p.pauseButton = panel.Button(p.prefix() + "Toggle_Pause")
}

func (p *Plot) OnKeyPress(key types.Key) bool {
	if key != types.KeyPause {
		return false
	}
	p.paused = !p.paused
	return true
}

// Paused reports whether the plot stopped scrolling.
func (p *Plot) Paused() bool { return p.paused }

// Samples returns the number of logged samples in the visible window.
func (p *Plot) Samples() int { return len(p.samples) }

func (p *Plot) Update() {
	if p.pauseButton != nil && p.pauseButton.Pushed() {
		p.paused = !p.paused
	}
	if p.paused || p.amp1 == nil {
		return
	}

	p.samples = append(p.samples, sample{
		x:  p.x,
		y1: p.amp1.Get() * math.Sin(p.freq1.Get()*p.x),
		y2: p.amp2.Get() * math.Sin(p.freq2.Get()*p.x),
	})
	p.x += plotStep

	// Drop samples scrolled out of view
	first := 0
	for first < len(p.samples) && p.samples[first].x < p.x-plotSpan {
		first++
	}
	if first > 0 {
		p.samples = append(p.samples[:0], p.samples[first:]...)
	}
}

func (p *Plot) Render() error {
	return p.view.Draw(func(dc *gg.Context, w, h float64) error {
		dc.SetRGB(1, 1, 1)
		dc.DrawRectangle(0, 0, w, h)
		if err := dc.Fill(); err != nil {
			return err
		}

		x0 := p.x - plotSpan
		if x0 < 0 {
			x0 = 0
		}
		sx := func(x float64) float64 { return (x - x0) / plotSpan * w }
		sy := func(y float64) float64 { return h/2 - y/plotYRange*h/2 }

		// Axes and grid
		dc.SetLineWidth(1)
		dc.SetRGBA(0, 0, 0, 0.15)
		for gx := math.Ceil(x0/(math.Pi/4)) * math.Pi / 4; gx <= x0+plotSpan; gx += math.Pi / 4 {
			dc.DrawLine(sx(gx), 0, sx(gx), h)
		}
		for gy := -plotYRange; gy <= plotYRange; gy += 0.5 {
			dc.DrawLine(0, sy(gy), w, sy(gy))
		}
		if err := dc.Stroke(); err != nil {
			return err
		}

		if len(p.samples) < 2 {
			return nil
		}

		dc.SetLineWidth(1.5)
		series := []struct {
			r, g, b float64
			y       func(sample) float64
		}{
			{0, 0, 1, func(s sample) float64 { return s.y1 }},
			{1, 0, 0, func(s sample) float64 { return s.y2 }},
		}
		for _, s := range series {
			dc.SetRGB(s.r, s.g, s.b)
			dc.MoveTo(sx(p.samples[0].x), sy(s.y(p.samples[0])))
			for _, smp := range p.samples[1:] {
				dc.LineTo(sx(smp.x), sy(s.y(smp)))
			}
			if err := dc.Stroke(); err != nil {
				return err
			}
		}
		return nil
	})
}
