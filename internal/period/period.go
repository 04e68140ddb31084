// Package period handles report month labels, German month names and the
// dates found on receipts and in file names.
package period

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthNames are the German month names used for folders and reports
var monthNames = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// monthAbbrevs maps short month names to months. Order matters for substring matching.
var monthAbbrevs = []struct {
	abbrev string
	month  time.Month
}{
	{"jan", time.January},
	{"feb", time.February},
	{"mär", time.March},
	{"mar", time.March},
	{"apr", time.April},
	{"mai", time.May},
	{"may", time.May},
	{"jun", time.June},
	{"jul", time.July},
	{"aug", time.August},
	{"sep", time.September},
	{"okt", time.October},
	{"oct", time.October},
	{"nov", time.November},
	{"dez", time.December},
	{"dec", time.December},
}

var (
	yearRe         = regexp.MustCompile(`(20\d{2})`)
	numericMonthRe = regexp.MustCompile(`(\d{1,2})[/\-.]?(20\d{2})`)
)

// MonthName returns the German name of m
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return fmt.Sprintf("%02d", int(m))
	}
	return monthNames[m-1]
}

// Month is a calendar month
type Month struct {
	Year  int
	Month time.Month
}

// Of returns the month containing t
func Of(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Parse reads labels like "Nov 2025", "November 2025", "11/2025" or "11.2025".
// Unparseable or empty labels yield the month of now.
func Parse(label string, now time.Time) Month {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return Of(now)
	}

	for _, a := range monthAbbrevs {
		if !strings.Contains(label, a.abbrev) {
			continue
		}
		if m := yearRe.FindStringSubmatch(label); m != nil {
			year, _ := strconv.Atoi(m[1])
			return Month{Year: year, Month: a.month}
		}
	}

	if m := numericMonthRe.FindStringSubmatch(label); m != nil {
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 {
			return Month{Year: year, Month: time.Month(month)}
		}
	}

	return Of(now)
}

// DefaultLabel is the report month label used when none is given, e.g. "Nov 2025"
func DefaultLabel(now time.Time) string {
	return now.Format("Jan 2006")
}

// Folder returns "MM_Monatsname", e.g. "03_März"
func (m Month) Folder() string {
	return fmt.Sprintf("%02d_%s", int(m.Month), MonthName(m.Month))
}

// Dir returns the year/month directory used for archives and exports
func (m Month) Dir() string {
	return filepath.Join(strconv.Itoa(m.Year), m.Folder())
}

// Folder styles for the sorter
const (
	StyleGerman = "german" // 2025-11_November
	StyleShort  = "short"  // 2025-11
	StyleMonth  = "month"  // Nov 2025
)

// FolderName names a sorter folder for year and month in the given style
func FolderName(year int, month time.Month, style string) string {
	switch style {
	case StyleGerman:
		return fmt.Sprintf("%d-%02d_%s", year, int(month), MonthName(month))
	case StyleShort:
		return fmt.Sprintf("%d-%02d", year, int(month))
	default:
		name := []rune(MonthName(month))
		if len(name) > 3 {
			name = name[:3]
		}
		return fmt.Sprintf("%s %d", string(name), year)
	}
}
