package analysis

import (
	"fmt"
	"strings"
	"time"
)

// MonthNames is a fixed month-name table (index 0 is January).
type MonthNames struct {
	Short [12]string
	Full  [12]string
}

var (
	// MonthsPT are the Brazilian Portuguese month names used by the IW58 reports.
	MonthsPT = MonthNames{
		Short: [12]string{"JAN", "FEV", "MAR", "ABR", "MAI", "JUN", "JUL", "AGO", "SET", "OUT", "NOV", "DEZ"},
		Full: [12]string{"JANEIRO", "FEVEREIRO", "MARÇO", "ABRIL", "MAIO", "JUNHO",
			"JULHO", "AGOSTO", "SETEMBRO", "OUTUBRO", "NOVEMBRO", "DEZEMBRO"},
	}
	MonthsEN = MonthNames{
		Short: [12]string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"},
		Full: [12]string{"JANUARY", "FEBRUARY", "MARCH", "APRIL", "MAY", "JUNE",
			"JULY", "AUGUST", "SEPTEMBER", "OCTOBER", "NOVEMBER", "DECEMBER"},
	}
)

// MonthTable returns the table for a locale code; unknown codes get MonthsPT.
func MonthTable(locale string) MonthNames {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "en", "en-us", "en_us":
		return MonthsEN
	default:
		return MonthsPT
	}
}

// Label formats a month as "JAN/2024".
func (m MonthNames) Label(year, month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return fmt.Sprintf("%s/%d", m.Short[month-1], year)
}

// Day-first layouts come before ISO ones; "05/03/2024" is 5 March.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"02-01-2006",
	"02-01-2006 15:04:05",
	"02.01.2006",
	"02/01/06",
	"2/1/06",
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// ParseDate parses a date permissively. Impossible calendar dates such as
// 31/02/2024 are rejected rather than normalized.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Temporal holds the fields derived from one date value.
type Temporal struct {
	Valid      bool
	Date       time.Time
	Year       int
	Month      int
	MonthName  string
	MonthLabel string
	Period     string
}

// DeriveTemporal parses value and derives year, month and labels. An
// unparseable value yields a zero Temporal with Valid == false.
func DeriveTemporal(value string, names MonthNames) Temporal {
	t, ok := ParseDate(value)
	if !ok {
		return Temporal{}
	}
	y, m := t.Year(), int(t.Month())
	return Temporal{
		Valid:      true,
		Date:       t,
		Year:       y,
		Month:      m,
		MonthName:  names.Full[m-1],
		MonthLabel: names.Label(y, m),
		Period:     fmt.Sprintf("%04d-%02d", y, m),
	}
}

// monthKey orders months chronologically; labels never sort correctly as text.
type monthKey struct {
	Year  int
	Month int
}

func (a monthKey) less(b monthKey) bool {
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	return a.Month < b.Month
}
