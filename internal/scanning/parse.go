package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// parseReceiptJSON parses the JSON object out of a model response
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var data ReceiptData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data.Date = normalizeDate(strings.TrimSpace(data.Date))
	data.Currency = strings.ToUpper(strings.TrimSpace(data.Currency))
	if data.Currency == "" {
		data.Currency = "EUR"
	}
	data.Category = strings.ToLower(strings.TrimSpace(data.Category))
	if data.Category == "" {
		data.Category = "sonstiges"
	}
	data.Description = strings.TrimSpace(data.Description)
	data.Provider = strings.TrimSpace(data.Provider)

	return &data, nil
}

// normalizeDate rewrites ISO and slash dates to DD.MM.YYYY. Unknown formats are kept as-is.
func normalizeDate(date string) string {
	if date == "" {
		return ""
	}
	formats := []string{
		"02.01.2006",
		"2.1.2006",
		"2006-01-02",
		"02/01/2006",
		"02.01.06",
	}
	for _, format := range formats {
		if d, err := time.Parse(format, date); err == nil {
			return d.Format("02.01.2006")
		}
	}
	return date
}
