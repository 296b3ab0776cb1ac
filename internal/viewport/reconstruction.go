package viewport

import (
	"math"

	"github.com/gogpu/gg"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/window"
)

// Pinhole camera of the reconstruction view: 640x480 image, f=420,
// looking at the origin from (0, 0.5, -3).
const (
	camImageW = 640
	camImageH = 480
	camFocal  = 420
	camNear   = 0.1
	spinStep  = 0.01 // radians per Update
)

var camEye = vec3{0, 0.5, -3}

type vec3 struct{ x, y, z float64 }

func (a vec3) sub(b vec3) vec3    { return vec3{a.x - b.x, a.y - b.y, a.z - b.z} }
func (a vec3) dot(b vec3) float64 { return a.x*b.x + a.y*b.y + a.z*b.z }
func (a vec3) cross(b vec3) vec3  { return vec3{a.y*b.z - a.z*b.y, a.z*b.x - a.x*b.z, a.x*b.y - a.y*b.x} }

func (a vec3) norm() vec3 {
	l := math.Sqrt(a.dot(a))
	return vec3{a.x / l, a.y / l, a.z / l}
}

// cubeEdges are the 12 edges of the unit cube centered at the origin,
// colored by axis (x red, y green, z blue).
var cubeEdges = func() [][2]vec3 {
	var edges [][2]vec3
	for _, a := range []float64{-0.5, 0.5} {
		for _, b := range []float64{-0.5, 0.5} {
			edges = append(edges,
				[2]vec3{{-0.5, a, b}, {0.5, a, b}},
				[2]vec3{{a, -0.5, b}, {a, 0.5, b}},
				[2]vec3{{a, b, -0.5}, {a, b, 0.5}},
			)
		}
	}
	return edges
}()

// Reconstruction draws a slowly spinning wireframe cube.
type Reconstruction struct {
	base
	angle float64

	right, up, forward vec3
}

// NewReconstruction returns a 3D viewport drawing into view.
func NewReconstruction(name string, view *window.View) *Reconstruction {
	r := &Reconstruction{base: base{name: name, view: view}}

	r.forward = vec3{}.sub(camEye).norm()
	r.right = r.forward.cross(vec3{0, 1, 0}).norm()
	r.up = r.right.cross(r.forward)
	return r
}

func (r *Reconstruction) Setup(panel *window.Panel) {
	r.setupShow(panel)
}

func (r *Reconstruction) Update() {
	r.angle = math.Mod(r.angle+spinStep, 2*math.Pi)
}

// project maps a world point to view pixels; ok is false behind the camera.
func (r *Reconstruction) project(p vec3, w, h float64) (x, y float64, ok bool) {
	s, c := math.Sincos(r.angle)
	p = vec3{c*p.x + s*p.z, p.y, -s*p.x + c*p.z}

	d := p.sub(camEye)
	cz := d.dot(r.forward)
	if cz < camNear {
		return 0, 0, false
	}
	cx := d.dot(r.right)
	cy := d.dot(r.up)

	u := camImageW/2 + camFocal*cx/cz
	v := camImageH/2 - camFocal*cy/cz
	return u * w / camImageW, v * h / camImageH, true
}

func (r *Reconstruction) Render() error {
	return r.view.Draw(func(dc *gg.Context, w, h float64) error {
		dc.SetRGB(0.02, 0.02, 0.05)
		dc.DrawRectangle(0, 0, w, h)
		if err := dc.Fill(); err != nil {
			return err
		}

		dc.SetLineWidth(2)
		for i, e := range cubeEdges {
			x1, y1, ok1 := r.project(e[0], w, h)
			x2, y2, ok2 := r.project(e[1], w, h)
			if !ok1 || !ok2 {
				continue
			}
			switch i % 3 {
			case 0:
				dc.SetRGB(1, 0.2, 0.2)
			case 1:
				dc.SetRGB(0.2, 1, 0.2)
			default:
				dc.SetRGB(0.3, 0.3, 1)
			}
			dc.DrawLine(x1, y1, x2, y2)
			if err := dc.Stroke(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Angle returns the current spin angle in radians.
func (r *Reconstruction) Angle() float64 { return r.angle }
