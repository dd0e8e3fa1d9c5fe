package sensor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is the encode quality for resized camera frames.
const DefaultJPEGQuality = 85

// EncodedImage is an image payload ready for an image primitive.
type EncodedImage struct {
	Data   []byte
	Width  int
	Height int
}

// ResizeDimensions fits width x height inside maxWidth x maxHeight keeping
// the aspect ratio. A non-positive limit leaves that axis unconstrained.
// Images already inside the box keep their size.
func ResizeDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 || (maxWidth <= 0 && maxHeight <= 0) {
		return width, height
	}
	if (maxWidth <= 0 || width <= maxWidth) && (maxHeight <= 0 || height <= maxHeight) {
		return width, height
	}
	ratio := float64(width) / float64(height)
	var w, h float64
	switch {
	case maxWidth > 0 && maxHeight > 0:
		w = min(float64(maxWidth), float64(maxHeight)*ratio)
		h = min(float64(maxHeight), float64(maxWidth)/ratio)
	case maxHeight > 0:
		w, h = float64(maxHeight)*ratio, float64(maxHeight)
	default:
		w, h = float64(maxWidth), float64(maxWidth)/ratio
	}
	return max(int(w), 1), max(int(h), 1)
}

// EncodeImage decodes a camera payload and shrinks it to fit the max box.
// When no resize is needed the original bytes are returned unchanged.
func EncodeImage(data []byte, maxWidth, maxHeight, quality int) (EncodedImage, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return EncodedImage{}, fmt.Errorf("failed to read image header: %w", err)
	}
	w, h := ResizeDimensions(cfg.Width, cfg.Height, maxWidth, maxHeight)
	if w == cfg.Width && h == cfg.Height {
		return EncodedImage{Data: data, Width: w, Height: h}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return EncodedImage{}, fmt.Errorf("failed to decode image: %w", err)
	}
	resized := imaging.Resize(img, w, h, imaging.Lanczos)
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return EncodedImage{}, fmt.Errorf("failed to encode image: %w", err)
	}
	return EncodedImage{Data: buf.Bytes(), Width: w, Height: h}, nil
}
