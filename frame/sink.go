package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"go.jacobcolvin.com/stillframe/atomicfile"
)

var encoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// WritePNG encodes img as PNG and writes it to path, replacing any existing
// file. A [*BGR] is converted to RGB channel order first.
//
// The image is fully encoded before anything touches the file system, and
// the file appears at path atomically. The parent directory of path must
// exist.
func WritePNG(img image.Image, path string) error {
	if bgr, ok := img.(*BGR); ok {
		img = bgr.RGBA()
	}

	var buf bytes.Buffer

	err := encoder.Encode(&buf, img)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return atomicfile.WriteFile(path, buf.Bytes(), 0o644)
}
