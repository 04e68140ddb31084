package render

import (
	"encoding/json"
	"io"
)

// Document is the JSON export
type Document struct {
	Meta     Meta    `json:"meta"`
	Expenses []Line  `json:"expenses"`
	Total    float64 `json:"total"`
}

// WriteJSON writes the report as an indented Document
func WriteJSON(w io.Writer, meta Meta, lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{Meta: meta, Expenses: lines, Total: Total(lines)})
}
