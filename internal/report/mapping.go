package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zombor/spesen/internal/scanning"
)

// FromReceipt turns extracted receipt data into the record for its category.
// Vehicle trips start with 0 km, the distance has to be filled in by hand.
func FromReceipt(data *scanning.ReceiptData) Record {
	var r Record
	switch ParseCategory(data.Category) {
	case CategoryVehicle:
		r = &VehicleTrip{
			Date:    data.Date,
			Route:   data.Description,
			Purpose: data.Provider,
		}
	case CategoryTransit:
		r = &TransitFlat{
			Date:        data.Date,
			Description: withProvider(data.Description, data.Provider),
			Amount:      data.AmountValue(),
		}
	case CategoryHospitality:
		r = &Hospitality{
			Date:   data.Date,
			Guests: data.Description,
			Amount: data.AmountValue(),
		}
	case CategoryMisc:
		r = miscFromReceipt(data)
	default:
		r = &Generic{
			Kind:        ParseCategory(data.Category),
			Date:        data.Date,
			Description: withProvider(data.Description, data.Provider),
			Amount:      data.AmountValue(),
		}
	}

	if data.FileHash != "" {
		r.SetHash(data.FileHash)
	}
	return r
}

func miscFromReceipt(data *scanning.ReceiptData) *Misc {
	typ := data.Type
	if typ == "" {
		typ = guessType(data.Description, data.Provider)
	}

	var place string
	distance := ""
	if data.DistanceKM != nil {
		distance = formatNumber(*data.DistanceKM)
	}
	switch {
	case (typ == TypeUber || typ == TypeTaxi) && data.City != "" && distance != "":
		place = fmt.Sprintf("%s (%s km)", data.City, distance)
	case (typ == TypeUber || typ == TypeTaxi) && distance != "":
		place = distance + " km"
	case (typ == TypeUber || typ == TypeTaxi) && data.City != "":
		place = data.City
	default:
		place = fmt.Sprintf("%s - %s", data.Description, data.Provider)
	}

	switch {
	case data.OriginalAmount != "":
		if !strings.Contains(place, data.OriginalAmount) {
			place = fmt.Sprintf("%s (%s)", place, data.OriginalAmount)
		}
	case data.Currency != "" && data.Currency != "EUR":
		place = fmt.Sprintf("%s (%.2f %s)", place, data.AmountValue(), data.Currency)
	}

	return &Misc{
		Date:   data.Date,
		Type:   typ,
		Place:  place,
		Amount: data.AmountValue(),
	}
}

func guessType(description, provider string) string {
	d := strings.ToLower(description)
	p := strings.ToLower(provider)
	switch {
	case strings.Contains(d, "uber") || strings.Contains(p, "uber") || strings.Contains(p, "bolt"):
		return TypeUber
	case strings.Contains(d, "taxi") || strings.Contains(p, "taxi"):
		return TypeTaxi
	case strings.Contains(d, "park") || strings.Contains(p, "park"):
		return TypeParking
	case strings.Contains(d, "hotel") || strings.Contains(p, "hotel"):
		return TypeHotel
	case strings.Contains(d, "verpflegung") || strings.Contains(d, "pauschale"):
		return TypePerDiem
	default:
		return TypeOther
	}
}

func withProvider(description, provider string) string {
	if provider == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, provider)
}

// formatNumber prints 12.5 as "12.5" and 12 as "12"
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
