/*
clock.go - Time-of-day arithmetic for attendance records

PURPOSE:
  Converts "HH:MM" clock strings to minutes since midnight and computes the
  time worked between a check-in and a check-out.

RULES:
  - A malformed clock string yields ok == false. Callers treat that as "no
    usable time data" and must not derive money from the record.
  - A check-out earlier than the check-in is an overnight shift: 24 hours are
    added before subtracting the break.
  - A break longer than the shift is reported as BreakExceedsWorkError
    instead of a silent negative number.

EXAMPLE:
  in, _ := generic.ParseClock("22:00")
  out, _ := generic.ParseClock("06:00")
  worked, err := generic.ElapsedMinutes(in, out, 0) // 480, nil

SEE ALSO:
  - attendance/evaluator.go: Late and overtime evaluation
*/
package generic

import (
	"fmt"
	"strings"
	"time"
)

// MinutesPerDay is added to the check-out of overnight shifts.
const MinutesPerDay = 24 * 60

var clockLayouts = []string{"15:04", "15:04:05"}

// ParseClock converts "HH:MM" (or "HH:MM:SS", seconds ignored) to minutes since
// midnight. Single-digit hours are accepted.
func ParseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ElapsedMinutes returns the minutes worked between checkIn and checkOut, both
// in minutes since midnight, less breakMinutes. When the break exceeds the span
// the negative result is returned alongside a *BreakExceedsWorkError.
func ElapsedMinutes(checkIn, checkOut, breakMinutes int) (int, error) {
	span := checkOut - checkIn
	if checkOut < checkIn {
		span += MinutesPerDay
	}
	worked := span - breakMinutes
	if worked < 0 {
		return worked, &BreakExceedsWorkError{SpanMinutes: span, BreakMinutes: breakMinutes}
	}
	return worked, nil
}

// Elapsed is ElapsedMinutes for raw clock strings.
func Elapsed(checkIn, checkOut string, breakMinutes int) (int, error) {
	in, ok := ParseClock(checkIn)
	if !ok {
		return 0, &MalformedTimeError{Value: checkIn}
	}
	out, ok := ParseClock(checkOut)
	if !ok {
		return 0, &MalformedTimeError{Value: checkOut}
	}
	return ElapsedMinutes(in, out, breakMinutes)
}
