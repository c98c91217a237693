package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive date range [Start, End].
//
// Examples:
//   - Payroll month March 2025: Mar 1 - Mar 31
//   - Ad-hoc overtime window: Mar 10 - Mar 16
type Period struct {
	Start TimePoint
	End   TimePoint
}

// MonthPeriod returns the calendar month as a period.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// ValidateMonth checks a year/month pair coming from user input.
func ValidateMonth(year int, month time.Month) error {
	if year < 1900 || year > 9999 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidPeriod, year)
	}
	if month < time.January || month > time.December {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, int(month))
	}
	return nil
}

// Validate returns ErrInvalidPeriod when End is before Start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, p)
	}
	return nil
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// PreviousMonth returns the month before the one containing date.
func PreviousMonth(date TimePoint) (int, time.Month) {
	prev := StartOfMonth(date.Year(), date.Month()).AddMonths(-1)
	return prev.Year(), prev.Month()
}
