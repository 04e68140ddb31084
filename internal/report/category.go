package report

import "strings"

// Category identifies the kind of expense and the shape of its record
type Category string

const (
	CategoryVehicle     Category = "fahrtkosten_kfz"
	CategoryTransit     Category = "fahrtkosten_pauschale"
	CategoryHospitality Category = "bewirtung"
	CategoryLiterature  Category = "fachliteratur"
	CategoryOffice      Category = "bueromaterial"
	CategoryPhone       Category = "telefonkosten"
	CategorySoftware    Category = "software"
	CategoryBeverages   Category = "getraenke"
	CategoryMisc        Category = "sonstiges"
)

// Categories lists all categories in report order
var Categories = []Category{
	CategoryVehicle,
	CategoryTransit,
	CategoryHospitality,
	CategoryLiterature,
	CategoryOffice,
	CategoryPhone,
	CategorySoftware,
	CategoryBeverages,
	CategoryMisc,
}

var categoryLabels = map[Category]string{
	CategoryVehicle:     "Fahrtkosten mit priv. Kfz.",
	CategoryTransit:     "Fahrtkosten Öffentliche Verkehrsmittel",
	CategoryHospitality: "Bewirtungskosten",
	CategoryLiterature:  "Fachliteratur",
	CategoryOffice:      "Büromaterial",
	CategoryPhone:       "Telefonkosten",
	CategorySoftware:    "Software",
	CategoryBeverages:   "Getränke",
	CategoryMisc:        "Sonstiges",
}

// Label returns the German heading of the category
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseCategory maps a raw category key to a Category. Unknown keys become sonstiges.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return CategoryMisc
	}
	return c
}

// Misc expense types
const (
	TypeParking = "Parken"
	TypeTaxi    = "Taxi"
	TypePerDiem = "Verpflegungspauschale"
	TypeUber    = "Uber"
	TypeHotel   = "Hotel"
	TypeOther   = "Sonstiges"
)

// KilometerRate is the reimbursement per km driven with a private car, in EUR
const KilometerRate = 0.30
