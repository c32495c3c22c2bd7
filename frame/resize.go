package frame

import (
	"image"

	"golang.org/x/image/draw"
)

// Fit applies the dataset resize policy. When the bounds of img differ from
// size, img is scaled to exactly size (aspect ratio is not preserved) and the
// second return value is true. Otherwise img is returned unchanged.
func Fit(img image.Image, size Size) (image.Image, bool) {
	b := img.Bounds()
	if b.Dx() == size.Width && b.Dy() == size.Height {
		return img, false
	}

	return Scale(img, size), true
}

// Scale resizes img to exactly size using bilinear interpolation.
func Scale(img image.Image, size Size) *image.RGBA {
	src := img
	if bgr, ok := img.(*BGR); ok {
		// x/image/draw has fast paths for *image.RGBA sources only.
		src = bgr.RGBA()
	}

	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return dst
}

// Contain scales img to fit within size while keeping its aspect ratio. The
// result is centered and padded with black to exactly size.
func Contain(img image.Image, size Size) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))

	srcBounds := img.Bounds()
	srcW, srcH := srcBounds.Dx(), srcBounds.Dy()

	if srcW == 0 || srcH == 0 || !size.Valid() {
		return dst
	}

	scale := min(float64(size.Width)/float64(srcW), float64(size.Height)/float64(srcH))

	newW := max(int(float64(srcW)*scale), 1)
	newH := max(int(float64(srcH)*scale), 1)

	offsetX := (size.Width - newW) / 2
	offsetY := (size.Height - newH) / 2

	dstRect := image.Rect(offsetX, offsetY, offsetX+newW, offsetY+newH)
	draw.ApproxBiLinear.Scale(dst, dstRect, img, srcBounds, draw.Over, nil)

	return dst
}
