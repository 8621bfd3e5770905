package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"
)

const (
	// Tesseract accuracy drops sharply below ~20px glyphs; small selections
	// are upscaled so their height reaches at least this many pixels.
	minRecognitionHeight = 64
	maxUpscale           = 4
	contrastBoost        = 0.2
)

// Prepare converts a captured raster into the PNG bytes fed to every model:
// grayscale, upscaled when small, contrast boosted.
func Prepare(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("no image to recognize")
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}

	var out image.Image = imaging.Grayscale(img)
	if scale := upscaleFactor(b.Dy()); scale > 1 {
		out = imaging.Resize(out, b.Dx()*scale, b.Dy()*scale, imaging.Lanczos)
	}
	out = adjust.Contrast(out, contrastBoost)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func upscaleFactor(height int) int {
	if height <= 0 || height >= minRecognitionHeight {
		return 1
	}
	scale := (minRecognitionHeight + height - 1) / height
	if scale > maxUpscale {
		scale = maxUpscale
	}
	return scale
}
