package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var sheetNameReplacer = strings.NewReplacer(":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

func sheetName(month string) string {
	name := []rune(sheetNameReplacer.Replace(strings.TrimSpace(month)))
	if len(name) == 0 {
		return "Spesen"
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return string(name)
}

// WriteExcel writes the report as a single-sheet workbook
func WriteExcel(w io.Writer, meta Meta, lines []Line) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(meta.Month)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"333333"}},
	})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	f.SetCellValue(sheet, "A1", "Spesenabrechnung "+meta.Month)
	f.SetCellStyle(sheet, "A1", "A1", titleStyle)
	f.SetCellValue(sheet, "A2", meta.Name)
	f.SetCellValue(sheet, "D1", "Erstellt: "+meta.Date)

	row := 4
	for _, s := range Group(lines) {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), s.Category.Label())
		for i, h := range []string{"Datum", "Beschreibung", "Anbieter", "Betrag"} {
			f.SetCellValue(sheet, fmt.Sprintf("%c%d", 'B'+i, row), h)
		}
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("E%d", row), headerStyle)
		row++

		for _, l := range s.Lines {
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), l.Date)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), l.Description)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), l.Provider)
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), money(l.Amount, l.Currency))
			row++
		}

		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), "Summe:")
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), money(s.Sum, "EUR"))
		f.SetCellStyle(sheet, fmt.Sprintf("D%d", row), fmt.Sprintf("E%d", row), boldStyle)
		row += 2
	}

	f.SetCellValue(sheet, fmt.Sprintf("D%d", row), "GESAMT:")
	f.SetCellValue(sheet, fmt.Sprintf("E%d", row), money(Total(lines), "EUR"))
	f.SetCellStyle(sheet, fmt.Sprintf("D%d", row), fmt.Sprintf("E%d", row), totalStyle)

	f.SetColWidth(sheet, "A", "A", 5)
	f.SetColWidth(sheet, "B", "B", 12)
	f.SetColWidth(sheet, "C", "C", 40)
	f.SetColWidth(sheet, "D", "D", 25)
	f.SetColWidth(sheet, "E", "E", 15)

	return f.Write(w)
}
