package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var receiptDateFormats = []string{"02.01.2006", "2.1.2006", "02.01.06", "2006-01-02", "02/01/2006"}

// ParseDate parses a receipt date such as "23.11.2025"
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, format := range receiptDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate turns DD.MM.YY into DD.MM.20YY and leaves other values trimmed but unchanged
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 8 && s[2] == '.' && s[5] == '.' {
		return s[:6] + "20" + s[6:]
	}
	return s
}

var (
	isoNameRe    = regexp.MustCompile(`(20\d{2})[-_]?(0[1-9]|1[0-2])[-_]?(0[1-9]|[12]\d|3[01])`)
	germanNameRe = regexp.MustCompile(`(0[1-9]|[12]\d|3[01])[.\-](0[1-9]|1[0-2])[.\-](20\d{2})`)
	shortYearRe  = regexp.MustCompile(`(0[1-9]|[12]\d|3[01])[.\-](0[1-9]|1[0-2])[.\-](\d{2})`)
	yearMonthRe  = regexp.MustCompile(`(20\d{2})[_\-\s]*(0[1-9]|1[0-2])`)
	monthYearRes = compileMonthYear()
)

func compileMonthYear() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(monthAbbrevs))
	for i, a := range monthAbbrevs {
		res[i] = regexp.MustCompile(fmt.Sprintf(`%s\pL*[_\-\s]*(20\d{2})`, regexp.QuoteMeta(a.abbrev)))
	}
	return res
}

func date(year, month, day string) time.Time {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local)
}

// FromFilename finds a date in a file name. Patterns are tried in order:
// YYYY-MM-DD (also _ or no separator), DD.MM.YYYY, DD.MM.YY, month name + year, year + month.
// The last two yield the first of the month.
func FromFilename(name string) (time.Time, bool) {
	name = strings.ToLower(name)

	if m := isoNameRe.FindStringSubmatch(name); m != nil {
		return date(m[1], m[2], m[3]), true
	}
	if m := germanNameRe.FindStringSubmatch(name); m != nil {
		return date(m[3], m[2], m[1]), true
	}
	if m := shortYearRe.FindStringSubmatch(name); m != nil {
		return date("20"+m[3], m[2], m[1]), true
	}
	for i, re := range monthYearRes {
		if m := re.FindStringSubmatch(name); m != nil {
			year, _ := strconv.Atoi(m[1])
			return time.Date(year, monthAbbrevs[i].month, 1, 0, 0, 0, 0, time.Local), true
		}
	}
	if m := yearMonthRe.FindStringSubmatch(name); m != nil {
		return date(m[1], m[2], "1"), true
	}
	return time.Time{}, false
}
