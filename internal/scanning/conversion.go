package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"path/filepath"
	"strings"

	"github.com/gen2brain/heic"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	"golang.org/x/image/draw"
)

const (
	// ocrMinWidth is the width small scans are upscaled to before OCR
	ocrMinWidth = 2000
	// visionMaxSide bounds the preview image sent to the extraction model
	visionMaxSide = 1568
	visionQuality = 85
)

// SupportedExtensions lists the receipt file extensions the pipeline accepts
var SupportedExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".tiff", ".bmp", ".gif", ".heic", ".heif"}

// IsSupported reports whether the file name has a supported receipt extension
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// FileLoader loads pages from PDFs and raster images
type FileLoader struct{}

// LoadPages decodes every page of the file in page order
func (FileLoader) LoadPages(filename string, data []byte) ([]image.Image, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !IsSupported(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	if ext == ".pdf" {
		pages, err := renderPDF(data)
		if err != nil {
			return nil, err
		}
		if len(pages) == 0 {
			return nil, fmt.Errorf("PDF has no pages")
		}
		return pages, nil
	}

	img, err := decodeImage(data, ext)
	if err != nil {
		return nil, err
	}
	return []image.Image{img}, nil
}

func decodeImage(data []byte, ext string) (image.Image, error) {
	// Go's image package has no HEIC decoder
	if ext == ".heic" || ext == ".heif" || isHEICFormat(data) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// isHEICFormat checks for an ftyp box with a HEIC-related brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// PrepareForOCR upscales narrow scans and converts them to grayscale
func PrepareForOCR(img image.Image) *image.Gray {
	b := img.Bounds()
	src := img
	if b.Dx() > 0 && b.Dx() < ocrMinWidth {
		height := b.Dy() * ocrMinWidth / b.Dx()
		scaled := image.NewRGBA(image.Rect(0, 0, ocrMinWidth, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
		src = scaled
	}

	sb := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, sb.Dx(), sb.Dy()))
	draw.Draw(gray, gray.Bounds(), src, sb.Min, draw.Src)
	return gray
}

// PrepareForVision shrinks the page to fit visionMaxSide and encodes it as JPEG
func PrepareForVision(img image.Image) ([]byte, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var src image.Image = img
	if w > visionMaxSide || h > visionMaxSide {
		if w >= h {
			h = h * visionMaxSide / w
			w = visionMaxSide
		} else {
			w = w * visionMaxSide / h
			h = visionMaxSide
		}
		thumb := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
		draw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, b, draw.Src, nil)
		src = thumb
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: visionQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
