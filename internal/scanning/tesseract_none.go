//go:build notesseract

package scanning

import (
	"context"
	"image"
)

// Tesseract is unavailable in builds tagged notesseract
type Tesseract struct{}

// NewTesseract reports that OCR was compiled out
func NewTesseract(languages ...string) (*Tesseract, error) {
	return nil, ErrOCRUnavailable
}

// RecognizeText always fails with ErrOCRUnavailable
func (t *Tesseract) RecognizeText(ctx context.Context, img image.Image) (string, error) {
	return "", ErrOCRUnavailable
}
