package frame

import (
	"fmt"
	"image"
	"image/color"
)

// BGR is an in-memory image whose pixels are stored as three bytes in B, G,
// R order.
//
// The pixel at (x, y) starts at Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*3].
type BGR struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

// NewBGR allocates a zeroed [BGR] of the given dimensions.
func NewBGR(width, height int) *BGR {
	return &BGR{
		Pix:    make([]byte, width*height*3),
		Stride: width * 3,
		Rect:   image.Rect(0, 0, width, height),
	}
}

// WrapBGR wraps raw bgr24 decoder output without copying it.
func WrapBGR(data []byte, width, height int) (*BGR, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}

	if len(data) != width*height*3 {
		return nil, fmt.Errorf("frame buffer has %d bytes, want %d", len(data), width*height*3)
	}

	return &BGR{
		Pix:    data,
		Stride: width * 3,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}

// ColorModel implements [image.Image].
func (p *BGR) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements [image.Image].
func (p *BGR) Bounds() image.Rectangle { return p.Rect }

// At implements [image.Image].
func (p *BGR) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return color.RGBA{}
	}

	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]

	return color.RGBA{R: s[2], G: s[1], B: s[0], A: 0xff}
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (p *BGR) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

// Size returns the frame dimensions.
func (p *BGR) Size() Size {
	return Size{Width: p.Rect.Dx(), Height: p.Rect.Dy()}
}

// RGBA converts the frame to an [*image.RGBA], swapping the blue and red
// channels. The result is always fully opaque.
func (p *BGR) RGBA() *image.RGBA {
	w, h := p.Rect.Dx(), p.Rect.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := range h {
		in := p.PixOffset(p.Rect.Min.X, p.Rect.Min.Y+y)
		o := y * out.Stride

		for range w {
			out.Pix[o] = p.Pix[in+2]
			out.Pix[o+1] = p.Pix[in+1]
			out.Pix[o+2] = p.Pix[in]
			out.Pix[o+3] = 0xff

			in += 3
			o += 4
		}
	}

	return out
}
