package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FirstAvailableMonth is the oldest month the KPI report serves data for.
var FirstAvailableMonth = Month{Year: 2023, Month: time.September}

// Month identifies one calendar month of the KPI report.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth accepts "YYYY-MM" or "YYYY/MM".
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '/' })
	if len(parts) != 2 || len(parts[0]) != 4 {
		return Month{}, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return Month{}, fmt.Errorf("invalid month %q: month out of range", s)
	}
	return Month{Year: year, Month: time.Month(m)}, nil
}

func (m Month) first() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Start is the first day of the month as YYYY-MM-DD.
func (m Month) Start() string {
	return m.first().Format("2006-01-02")
}

// End is the last calendar day of the month as YYYY-MM-DD.
func (m Month) End() string {
	return m.first().AddDate(0, 1, -1).Format("2006-01-02")
}

// Label is the YYYY/MM form shown to operators.
func (m Month) Label() string {
	return m.first().Format("2006/01")
}

// Key is the YYYY-MM form used in artifact names.
func (m Month) Key() string {
	return m.first().Format("2006-01")
}

// ArtifactName is the file name of the month's CSV export.
func (m Month) ArtifactName() string {
	return m.Key() + "_all_all.csv"
}

func (m Month) String() string { return m.Label() }

// Prev returns the preceding month.
func (m Month) Prev() Month {
	return MonthOf(m.first().AddDate(0, -1, 0))
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// TargetMonths lists every month from first up to the month of now,
// newest first. It is empty when first lies in the future.
func TargetMonths(first Month, now time.Time) []Month {
	last := MonthOf(now)
	var months []Month
	for m := last; !m.Before(first); m = m.Prev() {
		months = append(months, m)
	}
	return months
}
