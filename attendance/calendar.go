package attendance

import (
	"github.com/warp/payroll-engine/generic"
)

// DayType is the classification of a calendar date.
type DayType string

const (
	DayWorkday DayType = "workday"
	DayRestDay DayType = "rest_day"
	DayHoliday DayType = "holiday"
)

// Calendar classifies dates against working days and holidays.
type Calendar struct {
	WorkingHours WorkingHoursSettings
	Holidays     generic.HolidayCalendar
}

// Classify returns Holiday for holidays, RestDay for weekdays outside the
// working days, Workday otherwise. Holiday wins over RestDay.
func (c Calendar) Classify(date generic.TimePoint) DayType {
	if c.Holidays != nil && c.Holidays.IsHoliday(date) {
		return DayHoliday
	}
	if !c.WorkingHours.IsWorkingWeekday(date.Weekday()) {
		return DayRestDay
	}
	return DayWorkday
}

// RequiredWorkingDays counts the workdays in period.
func (c Calendar) RequiredWorkingDays(period generic.Period) int {
	n := 0
	for _, day := range period.Days() {
		if c.Classify(day) == DayWorkday {
			n++
		}
	}
	return n
}
