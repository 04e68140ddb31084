package scanning

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

var (
	fallbackDateRe   = regexp.MustCompile(`(\d{1,2})[./](\d{1,2})[./](\d{2,4})`)
	fallbackAmountRe = regexp.MustCompile(`(?i)(\d+)[,.](\d{2})\s*(?:EUR|€)`)
)

// Fallback extracts date and amount with regular expressions. It never fails.
type Fallback struct{}

// Extract returns whatever date and amount the OCR text contains
func (Fallback) Extract(_ context.Context, text string, _ []byte) (*ReceiptData, error) {
	return FallbackExtract(text), nil
}

// Close is a no-op
func (Fallback) Close() error {
	return nil
}

// FallbackExtract scans the text for the first date and the first EUR amount.
// Fields without a match stay empty.
func FallbackExtract(text string) *ReceiptData {
	data := &ReceiptData{}

	if m := fallbackDateRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := m[3]
		if len(year) == 2 {
			year = "20" + year
		}
		data.Date = fmt.Sprintf("%02d.%02d.%s", day, month, year)
	}

	if m := fallbackAmountRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1]+"."+m[2], 64); err == nil {
			data.Amount = &v
		}
	}

	return data
}
