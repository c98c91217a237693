package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - Day-granular calendar date
// =============================================================================

// TimePoint is a calendar date. Attendance, holidays and report periods are all
// day-granular, so the time of day is always midnight UTC.
type TimePoint struct {
	Time time.Time
}

// DateLayout is the wire and storage format of a TimePoint.
const DateLayout = "2006-01-02"

func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime truncates t to its calendar date in t's own location.
func FromTime(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "YYYY-MM-DD" date.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, err
	}
	return FromTime(t), nil
}

func Today() TimePoint {
	return FromTime(time.Now())
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, n, 0)} }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	return tp.Time.Format(DateLayout)
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is a company holiday. Holidays take precedence over every other
// day classification.
type Holiday struct {
	ID        string
	Date      TimePoint
	Name      string
	Recurring bool // true = same month/day every year
}

// Matches reports whether the holiday falls on date.
func (h Holiday) Matches(date TimePoint) bool {
	if h.Recurring {
		return h.Date.Month() == date.Month() && h.Date.Day() == date.Day()
	}
	return h.Date.Equal(date)
}

// HolidayCalendar provides holiday lookup functionality.
type HolidayCalendar interface {
	IsHoliday(date TimePoint) bool
}

// NoHolidays is a calendar without holidays.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(TimePoint) bool { return false }

// HolidaySet is an in-memory HolidayCalendar built from a loaded holiday list.
// Computation code receives holidays as data through this type rather than
// querying storage per day.
type HolidaySet struct {
	fixed     map[TimePoint]string
	recurring map[monthDay]string
}

type monthDay struct {
	month time.Month
	day   int
}

// NewHolidaySet indexes holidays for constant-time lookup.
func NewHolidaySet(holidays []Holiday) *HolidaySet {
	hs := &HolidaySet{
		fixed:     make(map[TimePoint]string),
		recurring: make(map[monthDay]string),
	}
	for _, h := range holidays {
		if h.Recurring {
			hs.recurring[monthDay{h.Date.Month(), h.Date.Day()}] = h.Name
			continue
		}
		hs.fixed[h.Date] = h.Name
	}
	return hs
}

func (hs *HolidaySet) IsHoliday(date TimePoint) bool {
	_, ok := hs.Name(date)
	return ok
}

// Name returns the holiday name for date, if any.
func (hs *HolidaySet) Name(date TimePoint) (string, bool) {
	if hs == nil {
		return "", false
	}
	if name, ok := hs.fixed[date]; ok {
		return name, true
	}
	name, ok := hs.recurring[monthDay{date.Month(), date.Day()}]
	return name, ok
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	return TimePoint{Time: time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}
