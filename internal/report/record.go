package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Record is one line item of a report. Each category has its own record shape.
type Record interface {
	Category() Category
	// Day is the record date, or the month label for transit passes
	Day() string
	// Total is the amount in EUR
	Total() float64
	// Text is the free text used to match the record against receipts
	Text() string
	// Summary is the description shown in exports
	Summary() string
	Hash() string
	SetHash(hash string)
}

// Link points a record at its receipt in the cache
type Link struct {
	FileHash string `json:"file_hash,omitempty"`
}

// Hash returns the linked content hash
func (l *Link) Hash() string { return l.FileHash }

// SetHash links the record to a receipt
func (l *Link) SetHash(hash string) { l.FileHash = hash }

// VehicleTrip is a trip with a private car, reimbursed per km
type VehicleTrip struct {
	Date       string  `json:"datum"`
	Route      string  `json:"fahrstrecke"`
	Purpose    string  `json:"anlass"`
	Kilometers float64 `json:"km"`
	Link
}

func (v *VehicleTrip) Category() Category { return CategoryVehicle }
func (v *VehicleTrip) Day() string        { return v.Date }
func (v *VehicleTrip) Text() string       { return joinText(v.Route, v.Purpose) }

// Total is km × KilometerRate, rounded to cents
func (v *VehicleTrip) Total() float64 {
	f, _ := decimal.NewFromFloat(v.Kilometers).Mul(decimal.NewFromFloat(KilometerRate)).Round(2).Float64()
	return f
}

func (v *VehicleTrip) Summary() string {
	return fmt.Sprintf("%s (%s km)", joinText(v.Route, v.Purpose), formatNumber(v.Kilometers))
}

// TransitFlat is a public transport ticket or monthly pass
type TransitFlat struct {
	Date        string  `json:"datum,omitempty"`
	Month       string  `json:"monat,omitempty"`
	Description string  `json:"beschreibung"`
	Amount      float64 `json:"betrag"`
	Link
}

func (t *TransitFlat) Category() Category { return CategoryTransit }
func (t *TransitFlat) Total() float64     { return t.Amount }
func (t *TransitFlat) Text() string       { return t.Description }
func (t *TransitFlat) Summary() string    { return t.Description }

func (t *TransitFlat) Day() string {
	if t.Date != "" {
		return t.Date
	}
	return t.Month
}

// Hospitality is a business meal
type Hospitality struct {
	Date   string  `json:"datum"`
	Guests string  `json:"personen"`
	Amount float64 `json:"betrag"`
	Link
}

func (h *Hospitality) Category() Category { return CategoryHospitality }
func (h *Hospitality) Day() string        { return h.Date }
func (h *Hospitality) Total() float64     { return h.Amount }
func (h *Hospitality) Text() string       { return h.Guests }
func (h *Hospitality) Summary() string    { return h.Guests }

// Misc covers parking, taxis, hotels and per-diem allowances
type Misc struct {
	Date   string  `json:"datum"`
	Type   string  `json:"typ"`
	Place  string  `json:"ort"`
	Amount float64 `json:"betrag"`
	Link
}

func (m *Misc) Category() Category { return CategoryMisc }
func (m *Misc) Day() string        { return m.Date }
func (m *Misc) Total() float64     { return m.Amount }
func (m *Misc) Text() string       { return m.Place }

func (m *Misc) Summary() string {
	if m.Type == "" {
		return m.Place
	}
	return fmt.Sprintf("%s: %s", m.Type, m.Place)
}

// Generic is used by the categories that only need a description
type Generic struct {
	Kind        Category `json:"-"`
	Date        string   `json:"datum"`
	Description string   `json:"beschreibung"`
	Amount      float64  `json:"betrag"`
	Link
}

func (g *Generic) Category() Category { return g.Kind }
func (g *Generic) Day() string        { return g.Date }
func (g *Generic) Total() float64     { return g.Amount }
func (g *Generic) Text() string       { return g.Description }
func (g *Generic) Summary() string    { return g.Description }

// Encode serializes the record into the daten column
func Encode(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding %s record: %w", r.Category(), err)
	}
	return data, nil
}

// Decode parses a daten value for the given category
func Decode(category string, data []byte) (Record, error) {
	var r Record
	switch c := ParseCategory(category); c {
	case CategoryVehicle:
		r = &VehicleTrip{}
	case CategoryTransit:
		r = &TransitFlat{}
	case CategoryHospitality:
		r = &Hospitality{}
	case CategoryMisc:
		r = &Misc{}
	default:
		r = &Generic{Kind: c}
	}

	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decoding %s record: %w", category, err)
	}
	return r, nil
}

func joinText(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}
