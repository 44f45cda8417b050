package timeutil

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// FiscalStartMonth is the first month of the club's fiscal year.
const FiscalStartMonth = time.October

func StartOfDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// SameDayIn compares calendar days after converting both values to loc.
func SameDayIn(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	return SameDay(a.In(loc), b.In(loc))
}

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(value time.Time) bool {
	return !value.Before(w.Start) && value.Before(w.End)
}

// FiscalYearStarting returns the fiscal year that begins on Oct 1 of startYear.
func FiscalYearStarting(startYear int, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	return Window{
		Start: time.Date(startYear, FiscalStartMonth, 1, 0, 0, 0, 0, loc),
		End:   time.Date(startYear+1, FiscalStartMonth, 1, 0, 0, 0, 0, loc),
	}
}

// FiscalStartYear returns the calendar year in which the fiscal year containing now started.
func FiscalStartYear(now time.Time) int {
	if now.Month() >= FiscalStartMonth {
		return now.Year()
	}
	return now.Year() - 1
}

// FiscalWindow returns the fiscal year containing now, in now's location.
func FiscalWindow(now time.Time) Window {
	return FiscalYearStarting(FiscalStartYear(now), now.Location())
}

// RoundHours rounds to two decimals, halves away from zero.
func RoundHours(value float64) float64 {
	return math.Round(value*100) / 100
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
	"02.01.2006 15:04",
	"02.01.2006",
}

// ParseTimestamp parses ISO-8601 and the common spreadsheet date layouts.
// Values without an offset are interpreted in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", value)
}
