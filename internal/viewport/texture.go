package viewport

import (
	"image"

	"github.com/gogpu/gg"

	"github.com/e7canasta/orion-care-sensor/modules/viewportal/internal/types"
)

// texture is the CPU-side copy of the last uploaded frame.
// Uploads mark it dirty; the gg image buffer is rebuilt lazily on draw.
type texture struct {
	img   *image.NRGBA
	buf   *gg.ImageBuf
	dirty bool
}

// upload copies v into the texture, converting to NRGBA. gain scales
// Luminance8 samples (1 = unchanged).
func (t *texture) upload(v types.FrameView, gain float64) {
	if t.img == nil || t.img.Rect.Dx() != v.Width || t.img.Rect.Dy() != v.Height {
		t.img = image.NewNRGBA(image.Rect(0, 0, v.Width, v.Height))
	}

	pix := t.img.Pix
	n := v.Width * v.Height
	src := v.Data

	switch v.Format {
	case types.RGB8:
		for i := 0; i < n; i++ {
			pix[i*4+0] = src[i*3+0]
			pix[i*4+1] = src[i*3+1]
			pix[i*4+2] = src[i*3+2]
			pix[i*4+3] = 0xFF
		}
	case types.RGBA8:
		copy(pix, src[:n*4])
	case types.Luminance8:
		var lut [256]byte
		for i := range lut {
			lut[i] = scale(byte(i), gain)
		}
		for i := 0; i < n; i++ {
			l := lut[src[i]]
			pix[i*4+0] = l
			pix[i*4+1] = l
			pix[i*4+2] = l
			pix[i*4+3] = 0xFF
		}
	default:
		return
	}

	t.dirty = true
}

// empty reports whether nothing was uploaded yet.
func (t *texture) empty() bool {
	return t.img == nil
}

// draw stretches the texture over (0,0)-(w,h). The view is already
// letterboxed to the cell aspect.
func (t *texture) draw(dc *gg.Context, w, h float64) {
	if t.img == nil {
		return
	}
	if t.dirty || t.buf == nil {
		t.buf = gg.ImageBufFromImage(t.img)
		t.dirty = false
	}

	dc.DrawImageEx(t.buf, gg.DrawImageOptions{
		DstWidth:      w,
		DstHeight:     h,
		Interpolation: gg.InterpBilinear,
		Opacity:       1,
	})
}

func (t *texture) release() {
	t.img = nil
	t.buf = nil
}

func scale(v byte, gain float64) byte {
	f := float64(v) * gain
	if f >= 255 {
		return 0xFF
	}
	if f <= 0 {
		return 0
	}
	return byte(f)
}
