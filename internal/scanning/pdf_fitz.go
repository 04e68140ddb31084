//go:build !nopdf

package scanning

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

const pdfDPI = 300

// renderPDF renders every page of the PDF at 300 DPI
func renderPDF(data []byte) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]image.Image, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.ImageDPI(i, pdfDPI)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}
