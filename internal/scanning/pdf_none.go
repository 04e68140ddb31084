//go:build nopdf

package scanning

import "image"

func renderPDF(data []byte) ([]image.Image, error) {
	return nil, ErrPDFUnsupported
}
