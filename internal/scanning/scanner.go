package scanning

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrUnsupportedType is returned for files whose extension is not a known receipt format
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrPDFUnsupported is returned when the binary was built without PDF rendering
	ErrPDFUnsupported = errors.New("PDF support not available")
	// ErrOCRUnavailable is returned when the binary was built without a text recognizer
	ErrOCRUnavailable = errors.New("OCR not available")
)

// ReceiptData contains the fields extracted from a receipt.
// JSON keys match the on-disk cache format.
type ReceiptData struct {
	Date             string   `json:"datum,omitempty"` // DD.MM.YYYY
	Amount           *float64 `json:"betrag"`
	Currency         string   `json:"waehrung,omitempty"`
	Category         string   `json:"kategorie,omitempty"`
	Type             string   `json:"typ,omitempty"`
	Description      string   `json:"beschreibung,omitempty"`
	Provider         string   `json:"anbieter,omitempty"`
	City             string   `json:"stadt,omitempty"`
	DistanceKM       *float64 `json:"distanz_km,omitempty"`
	OriginalAmount   string   `json:"betrag_original,omitempty"` // e.g. "100.00 USD"
	OriginalCurrency string   `json:"waehrung_original,omitempty"`
	FileHash         string   `json:"file_hash,omitempty"`
}

// AmountValue returns the amount or zero when none was extracted
func (d *ReceiptData) AmountValue() float64 {
	if d == nil || d.Amount == nil {
		return 0
	}
	return *d.Amount
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// Extractor turns OCR text and a preview image into structured receipt data
type Extractor interface {
	// Extract analyzes the recognized text and the JPEG preview of the first page
	Extract(ctx context.Context, text string, image []byte) (*ReceiptData, error)
	// Close releases resources held by the extractor
	Close() error
}

// TextRecognizer runs OCR on a single page image
type TextRecognizer interface {
	RecognizeText(ctx context.Context, img image.Image) (string, error)
}

// PageLoader decodes a receipt file into page images
type PageLoader interface {
	LoadPages(filename string, data []byte) ([]image.Image, error)
}
