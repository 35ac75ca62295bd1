package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// Preview box used by the search page
const (
	PreviewMaxWidth  = 500
	PreviewMaxHeight = 400
)

// PreviewProcessor shrinks uploads so they fit the preview box
type PreviewProcessor struct {
	maxWidth  int
	maxHeight int
	quality   int
}

// NewPreviewProcessor creates a processor; non-positive arguments take the defaults
func NewPreviewProcessor(maxWidth, maxHeight, quality int) *PreviewProcessor {
	if maxWidth <= 0 {
		maxWidth = PreviewMaxWidth
	}
	if maxHeight <= 0 {
		maxHeight = PreviewMaxHeight
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}

	return &PreviewProcessor{
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		quality:   quality,
	}
}

// FitSize scales w×h down, keeping the aspect ratio, until it fits maxW×maxH. It never upscales.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}

	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h), 1.0)

	dw := max(int(float64(w)*scale), 1)
	dh := max(int(float64(h)*scale), 1)
	return dw, dh
}

// Fit decodes data and returns it re-encoded within the preview box, along with
// the content type of the returned bytes. Images already inside the box come back untouched.
func (p *PreviewProcessor) Fit(data []byte) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", errors.New("data cannot be empty")
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	dw, dh := FitSize(bounds.Dx(), bounds.Dy(), p.maxWidth, p.maxHeight)
	if dw == bounds.Dx() && dh == bounds.Dy() {
		return data, "image/" + format, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	contentType := "image/jpeg"
	switch format {
	case "png":
		contentType = "image/png"
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.quality})
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode preview: %w", err)
	}

	return buf.Bytes(), contentType, nil
}
