package render

import (
	"io"

	"github.com/go-pdf/fpdf"
)

var pdfColumns = []float64{25, 70, 50, 30}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// WritePDF writes the report as an A4 document with one table per category
func WritePDF(w io.Writer, meta Meta, lines []Line) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0x33, 0x33, 0x33)
	pdf.CellFormat(0, 8, tr("Spesenabrechnung "+meta.Month), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, tr("Name: "+meta.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Erstellt: "+meta.Date), "", 1, "L", false, 0, "")
	pdf.Ln(10)

	for _, s := range Group(lines) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr(s.Category.Label()), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(0x33, 0x33, 0x33)
		pdf.SetTextColor(255, 255, 255)
		for i, h := range []string{"Datum", "Beschreibung", "Anbieter", "Betrag"} {
			pdf.CellFormat(pdfColumns[i], 6, h, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, l := range s.Lines {
			pdf.CellFormat(pdfColumns[0], 6, tr(l.Date), "1", 0, "L", false, 0, "")
			pdf.CellFormat(pdfColumns[1], 6, tr(truncate(l.Description, 40)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(pdfColumns[2], 6, tr(truncate(l.Provider, 25)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(pdfColumns[3], 6, money(l.Amount, l.Currency), "1", 1, "R", false, 0, "")
		}

		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(0xd3, 0xd3, 0xd3)
		pdf.CellFormat(pdfColumns[0]+pdfColumns[1], 6, "", "1", 0, "L", true, 0, "")
		pdf.CellFormat(pdfColumns[2], 6, "Summe:", "1", 0, "L", true, 0, "")
		pdf.CellFormat(pdfColumns[3], 6, money(s.Sum, "EUR"), "1", 1, "R", true, 0, "")
		pdf.Ln(5)
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(0x33, 0x33, 0x33)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(145, 8, "Gesamtsumme", "", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, money(Total(lines), "EUR"), "", 1, "R", true, 0, "")

	return pdf.Output(w)
}
