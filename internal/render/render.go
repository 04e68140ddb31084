// Package render writes expense reports as spreadsheet, PDF or JSON.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/spesen/internal/period"
	"github.com/zombor/spesen/internal/report"
	"github.com/zombor/spesen/internal/scanning"
)

// Output formats
const (
	FormatExcel = "excel"
	FormatPDF   = "pdf"
	FormatBoth  = "both"
	FormatJSON  = "json"
)

// Meta is the report header
type Meta struct {
	Name  string `json:"name"`
	Month string `json:"monat"`
	Date  string `json:"datum"`
}

// NewMeta returns the header for name and month, dated now
func NewMeta(name, month string, now time.Time) Meta {
	return Meta{Name: name, Month: month, Date: now.Format("02.01.2006")}
}

// Line is one exported expense
type Line struct {
	Category    report.Category `json:"kategorie"`
	Date        string          `json:"datum"`
	Description string          `json:"beschreibung"`
	Provider    string          `json:"anbieter,omitempty"`
	Amount      float64         `json:"betrag"`
	Currency    string          `json:"waehrung"`
	File        string          `json:"datei,omitempty"`
	FileHash    string          `json:"file_hash,omitempty"`
}

// LinesFromReceipts turns extracted receipts into export lines. names holds the
// source file name of each receipt and may be shorter than data.
func LinesFromReceipts(data []*scanning.ReceiptData, names []string) []Line {
	lines := make([]Line, 0, len(data))
	for i, d := range data {
		currency := d.Currency
		if currency == "" {
			currency = "EUR"
		}
		l := Line{
			Category:    report.ParseCategory(d.Category),
			Date:        d.Date,
			Description: d.Description,
			Provider:    d.Provider,
			Amount:      d.AmountValue(),
			Currency:    currency,
			FileHash:    d.FileHash,
		}
		if i < len(names) {
			l.File = names[i]
		}
		lines = append(lines, l)
	}
	return lines
}

// LinesFromReport turns stored records into export lines
func LinesFromReport(r *report.Abrechnung) []Line {
	lines := make([]Line, 0, len(r.Records))
	for _, rec := range r.Records {
		lines = append(lines, Line{
			Category:    rec.Category(),
			Date:        rec.Day(),
			Description: rec.Summary(),
			Amount:      rec.Total(),
			Currency:    "EUR",
			FileHash:    rec.Hash(),
		})
	}
	return lines
}

// Section is the block of lines of one category
type Section struct {
	Category report.Category
	Lines    []Line
	Sum      float64
}

// Group splits lines into sections in report category order. Lines are sorted
// by date within a section, undated lines last.
func Group(lines []Line) []Section {
	var sections []Section
	for _, c := range report.Categories {
		var s Section
		sum := decimal.Zero
		for _, l := range lines {
			if l.Category == c {
				s.Lines = append(s.Lines, l)
				sum = sum.Add(decimal.NewFromFloat(l.Amount))
			}
		}
		if len(s.Lines) == 0 {
			continue
		}
		sortByDate(s.Lines)
		s.Category = c
		s.Sum = sum.Round(2).InexactFloat64()
		sections = append(sections, s)
	}
	return sections
}

// Total sums the amounts of all lines
func Total(lines []Line) float64 {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(decimal.NewFromFloat(l.Amount))
	}
	return sum.Round(2).InexactFloat64()
}

func sortByDate(lines []Line) {
	slices.SortStableFunc(lines, func(a, b Line) int {
		ta, okA := period.ParseDate(a.Date)
		tb, okB := period.ParseDate(b.Date)
		switch {
		case okA && okB:
			return ta.Compare(tb)
		case okA:
			return -1
		case okB:
			return 1
		default:
			return 0
		}
	})
}

func money(amount float64, currency string) string {
	return fmt.Sprintf("%.2f %s", amount, currency)
}

// Extensions returns the file extensions written for format
func Extensions(format string) ([]string, error) {
	switch format {
	case FormatExcel:
		return []string{".xlsx"}, nil
	case FormatPDF:
		return []string{".pdf"}, nil
	case FormatBoth, "":
		return []string{".xlsx", ".pdf"}, nil
	case FormatJSON:
		return []string{".json"}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// DefaultBase is the export path without extension,
// <exports>/<year>/<MM>_<Monat>/Spesen_<label>
func DefaultBase(exportsDir, label string, now time.Time) string {
	m := period.Parse(label, now)
	name := strings.NewReplacer(" ", "_", "/", "-").Replace(label)
	return filepath.Join(exportsDir, m.Dir(), "Spesen_"+name)
}

// Export writes the report for every extension of format next to base and
// returns the written paths
func Export(base, format string, meta Meta, lines []Line) ([]string, error) {
	exts, err := Extensions(format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	// "abrechnung.xlsx" also yields "abrechnung.pdf"
	stem := base
	if isKnownExt(filepath.Ext(base)) {
		stem = strings.TrimSuffix(base, filepath.Ext(base))
	}

	var written []string
	for _, ext := range exts {
		path := stem + ext
		if err := writeFile(path, ext, meta, lines); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func isKnownExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".xlsx", ".pdf", ".json":
		return true
	}
	return false
}

func writeFile(path, ext string, meta Meta, lines []Line) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	switch ext {
	case ".xlsx":
		err = WriteExcel(f, meta, lines)
	case ".pdf":
		err = WritePDF(f, meta, lines)
	default:
		err = WriteJSON(f, meta, lines)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
