/*
Package attendance turns attendance records into working-time facts.

PURPOSE:
  Classifies calendar days, evaluates each attendance record for lateness
  and overtime, and summarises a month of attendance into a report. All
  rules read their parameters from the settings types in this file; there
  is no package-level configuration.

KEY TYPES:
  - WorkingHoursSettings: Nominal workday window and working weekdays
  - OvertimeSettings:     Hourly rate derivation and premium multipliers
  - ReportOptions:        Payable-day switches for the monthly report
  - Calendar:             Holiday > RestDay > Workday classification
  - Evaluator:            Late and overtime rules per record and per employee

SEE ALSO:
  - calendar.go: Day classification
  - evaluator.go: Late/overtime rules
  - report.go: Monthly attendance report
  - factory/settings.go: JSON representation and save-time validation
*/
package attendance

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// PremiumWeekday is paid at the holiday multiplier regardless of the
// configured working days.
const PremiumWeekday = time.Sunday

// DefaultWorkingDayCount is used when no working days are configured.
const DefaultWorkingDayCount = 5

var defaultWorkingDays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// =============================================================================
// WORKING HOURS
// =============================================================================

// WorkingHoursSettings defines the nominal workday.
type WorkingHoursSettings struct {
	StartTime           string // "HH:MM"
	EndTime             string // "HH:MM"
	WorkingDays         []time.Weekday
	AllowedLunchMinutes int

	// LateGraceMinutes tolerates check-ins up to start+grace. Lateness is
	// still measured from StartTime once the grace is exceeded.
	LateGraceMinutes int
}

// Workdays returns the configured working weekdays, Monday to Friday when unset.
func (s WorkingHoursSettings) Workdays() []time.Weekday {
	if len(s.WorkingDays) == 0 {
		return defaultWorkingDays
	}
	return s.WorkingDays
}

// WorkingDayCount is the number of distinct working weekdays.
func (s WorkingHoursSettings) WorkingDayCount() int {
	if len(s.WorkingDays) == 0 {
		return DefaultWorkingDayCount
	}
	seen := make(map[time.Weekday]bool, len(s.WorkingDays))
	for _, d := range s.WorkingDays {
		seen[d] = true
	}
	return len(seen)
}

// IsWorkingWeekday reports whether wd is a configured working day.
func (s WorkingHoursSettings) IsWorkingWeekday(wd time.Weekday) bool {
	for _, d := range s.Workdays() {
		if d == wd {
			return true
		}
	}
	return false
}

// StartMinutes parses StartTime.
func (s WorkingHoursSettings) StartMinutes() (int, bool) {
	return generic.ParseClock(s.StartTime)
}

// DefaultWorkingHours is an 08:00-17:00 Monday to Friday week with an hour for lunch.
func DefaultWorkingHours() WorkingHoursSettings {
	return WorkingHoursSettings{
		StartTime:           "08:00",
		EndTime:             "17:00",
		WorkingDays:         append([]time.Weekday(nil), defaultWorkingDays...),
		AllowedLunchMinutes: 60,
	}
}

// =============================================================================
// OVERTIME
// =============================================================================

// RestDayPolicy decides how hours on rest days other than PremiumWeekday are paid.
type RestDayPolicy string

const (
	// RestDayNoPremium pays nothing extra for non-Sunday rest days.
	RestDayNoPremium RestDayPolicy = "none"
	// RestDayHolidayRate pays every rest-day hour at the holiday multiplier.
	RestDayHolidayRate RestDayPolicy = "holiday_rate"
)

func (p RestDayPolicy) IsValid() bool {
	return p == RestDayNoPremium || p == RestDayHolidayRate
}

// OvertimeSettings parameterises the hourly rate and the premiums.
type OvertimeSettings struct {
	NormalHoursPerWeek      decimal.Decimal
	AverageWorkDaysPerMonth decimal.Decimal
	OvertimeMultiplier      decimal.Decimal
	HolidayMultiplier       decimal.Decimal
	RestDayPolicy           RestDayPolicy
}

// DefaultOvertime is a 40 hour week over 22 days, 1.5x overtime and 2x holidays.
func DefaultOvertime() OvertimeSettings {
	return OvertimeSettings{
		NormalHoursPerWeek:      decimal.NewFromInt(40),
		AverageWorkDaysPerMonth: decimal.NewFromInt(22),
		OvertimeMultiplier:      decimal.RequireFromString("1.5"),
		HolidayMultiplier:       decimal.NewFromInt(2),
		RestDayPolicy:           RestDayNoPremium,
	}
}

// =============================================================================
// REPORT OPTIONS
// =============================================================================

// ReportOptions are the payable-day switches of the monthly report.
type ReportOptions struct {
	PaidHolidays        bool // holidays count as payable days
	CompensatedWeekends bool // rest days count as payable days
	IncludePayroll      bool // report generation also computes payroll
}

func DefaultReportOptions() ReportOptions {
	return ReportOptions{PaidHolidays: true, CompensatedWeekends: false, IncludePayroll: true}
}
