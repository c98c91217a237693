/*
evaluator.go - Late arrival and overtime evaluation

PURPOSE:
  Derives late deductions and overtime pay from attendance records for a
  set of employees. Each employee gets exactly one row. Money is accumulated
  at full precision; rounding happens when the totals are presented.

RATES:
  normalDailyHours = NormalHoursPerWeek / number of working days (5 if unset)
  hourlyRate       = (monthlySalary / AverageWorkDaysPerMonth) / normalDailyHours

RULES PER RECORD (both check-in and check-out required):
  1. Late (workdays only): check-in after start => minutes late x hourlyRate / 60
  2. Holiday or Sunday: every worked hour is paid at HolidayMultiplier
  3. Workday: hours beyond normalDailyHours are paid at OvertimeMultiplier
  4. Other rest days: nothing, unless RestDayPolicy is holiday_rate

  Records with missing or malformed times contribute nothing and are listed
  as issues. A break longer than the shift contributes no worked time.

SEE ALSO:
  - calendar.go: Day classification
  - payroll/calculator.go: Feeds these totals into the payroll aggregate
*/
package attendance

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// ErrIncompleteRecord marks records without both check-in and check-out.
var ErrIncompleteRecord = errors.New("check-in or check-out missing")

var (
	sixty   = decimal.NewFromInt(60)
	hundred = decimal.NewFromInt(100)
)

// PremiumKind says which multiplier applied to a record's overtime.
type PremiumKind string

const (
	PremiumNone     PremiumKind = "none"
	PremiumOvertime PremiumKind = "overtime"
	PremiumHoliday  PremiumKind = "holiday"
)

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluator applies the late and overtime rules.
type Evaluator struct {
	Calendar Calendar
	Overtime OvertimeSettings
}

// NewEvaluator creates an evaluator for the given settings and holidays.
func NewEvaluator(hours WorkingHoursSettings, overtime OvertimeSettings, holidays generic.HolidayCalendar) *Evaluator {
	if holidays == nil {
		holidays = generic.NoHolidays{}
	}
	return &Evaluator{
		Calendar: Calendar{WorkingHours: hours, Holidays: holidays},
		Overtime: overtime,
	}
}

// NormalDailyHours is the normal working day length in hours.
func (e *Evaluator) NormalDailyHours() decimal.Decimal {
	days := e.Calendar.WorkingHours.WorkingDayCount()
	return e.Overtime.NormalHoursPerWeek.Div(decimal.NewFromInt(int64(days)))
}

// HourlyRate derives the hourly rate from a monthly salary. It is zero when
// either divisor is not positive.
func (e *Evaluator) HourlyRate(monthlySalary decimal.Decimal) decimal.Decimal {
	daily := e.NormalDailyHours()
	if !e.Overtime.AverageWorkDaysPerMonth.IsPositive() || !daily.IsPositive() {
		return decimal.Zero
	}
	return monthlySalary.Div(e.Overtime.AverageWorkDaysPerMonth).Div(daily)
}

// LateMinutes returns how late the check-in was on a workday. Holidays and
// rest days are never late. Only a parsable check-in is required.
func (e *Evaluator) LateMinutes(rec generic.AttendanceRecord) int {
	if e.Calendar.Classify(rec.Date) != DayWorkday {
		return 0
	}
	in, ok := generic.ParseClock(rec.CheckIn)
	if !ok {
		return 0
	}
	start, ok := e.Calendar.WorkingHours.StartMinutes()
	if !ok {
		return 0
	}
	if in <= start+e.Calendar.WorkingHours.LateGraceMinutes {
		return 0
	}
	return in - start
}

// =============================================================================
// RECORD EVALUATION
// =============================================================================

// RecordResult is the evaluation of one attendance record.
type RecordResult struct {
	Date          generic.TimePoint
	DayType       DayType
	Premium       PremiumKind
	LateMinutes   int
	LateDeduction decimal.Decimal
	Worked        generic.Amount // minutes
	OvertimeHours decimal.Decimal
	OvertimePay   decimal.Decimal

	// Issue is set when the record could not be evaluated in full.
	Issue error
}

// EvaluateRecord applies the rules to one record at the given hourly rate.
func (e *Evaluator) EvaluateRecord(rec generic.AttendanceRecord, hourlyRate decimal.Decimal) RecordResult {
	res := RecordResult{
		Date:          rec.Date,
		DayType:       e.Calendar.Classify(rec.Date),
		Premium:       PremiumNone,
		LateDeduction: decimal.Zero,
		Worked:        generic.NewAmountFromInt(0, generic.UnitMinutes),
		OvertimeHours: decimal.Zero,
		OvertimePay:   decimal.Zero,
	}

	if !rec.HasTimes() {
		res.Issue = ErrIncompleteRecord
		return res
	}
	in, ok := generic.ParseClock(rec.CheckIn)
	if !ok {
		res.Issue = &generic.MalformedTimeError{Value: rec.CheckIn}
		return res
	}
	out, ok := generic.ParseClock(rec.CheckOut)
	if !ok {
		res.Issue = &generic.MalformedTimeError{Value: rec.CheckOut}
		return res
	}

	res.LateMinutes = e.LateMinutes(rec)
	if res.LateMinutes > 0 {
		res.LateDeduction = decimal.NewFromInt(int64(res.LateMinutes)).Mul(hourlyRate).Div(sixty)
	}

	worked, err := generic.ElapsedMinutes(in, out, rec.LunchBreakMinutes)
	if err != nil {
		res.Issue = err
		return res
	}
	res.Worked = generic.NewAmountFromInt(worked, generic.UnitMinutes)

	hours, multiplier, kind := e.overtime(rec.Date, res.DayType, res.Worked.Hours().Value)
	res.Premium = kind
	res.OvertimeHours = hours
	res.OvertimePay = hours.Mul(multiplier).Mul(hourlyRate)
	return res
}

// overtime returns the premium hours for a day and the multiplier they earn.
func (e *Evaluator) overtime(date generic.TimePoint, day DayType, workedHours decimal.Decimal) (decimal.Decimal, decimal.Decimal, PremiumKind) {
	switch {
	case day == DayHoliday || date.Weekday() == PremiumWeekday:
		return workedHours, e.Overtime.HolidayMultiplier, PremiumHoliday
	case day == DayWorkday:
		extra := workedHours.Sub(e.NormalDailyHours())
		if !extra.IsPositive() {
			return decimal.Zero, decimal.Zero, PremiumNone
		}
		return extra, e.Overtime.OvertimeMultiplier, PremiumOvertime
	case e.Overtime.RestDayPolicy == RestDayHolidayRate:
		return workedHours, e.Overtime.HolidayMultiplier, PremiumHoliday
	}
	return decimal.Zero, decimal.Zero, PremiumNone
}

// =============================================================================
// EMPLOYEE TOTALS
// =============================================================================

// RecordIssue is a record that contributed less than it would have.
type RecordIssue struct {
	Date generic.TimePoint
	Err  error
}

// EmployeeTotals is one employee's late and overtime row. Values are unrounded.
type EmployeeTotals struct {
	EmployeeID       generic.EmployeeID
	Name             string
	HourlyRate       decimal.Decimal
	LateMinutes      int
	LateDeduction    decimal.Decimal
	OvertimeHours    decimal.Decimal
	OvertimePay      decimal.Decimal
	RecordsEvaluated int
	Issues           []RecordIssue
}

// EvaluateEmployee totals the records of one employee that fall in period.
// It does not check payroll eligibility.
func (e *Evaluator) EvaluateEmployee(profile generic.CompensationProfile, records []generic.AttendanceRecord, period generic.Period) EmployeeTotals {
	rate := e.HourlyRate(profile.MonthlySalary)
	totals := EmployeeTotals{
		EmployeeID:    profile.EmployeeID,
		Name:          profile.Name,
		HourlyRate:    rate,
		LateDeduction: decimal.Zero,
		OvertimeHours: decimal.Zero,
		OvertimePay:   decimal.Zero,
	}

	for _, rec := range records {
		if rec.EmployeeID != profile.EmployeeID || !period.Contains(rec.Date) {
			continue
		}
		res := e.EvaluateRecord(rec, rate)
		totals.RecordsEvaluated++
		totals.LateMinutes += res.LateMinutes
		totals.LateDeduction = totals.LateDeduction.Add(res.LateDeduction)
		totals.OvertimeHours = totals.OvertimeHours.Add(res.OvertimeHours)
		totals.OvertimePay = totals.OvertimePay.Add(res.OvertimePay)
		if res.Issue != nil {
			totals.Issues = append(totals.Issues, RecordIssue{Date: rec.Date, Err: res.Issue})
		}
	}
	return totals
}

// Evaluate returns one row per qualifying employee, ordered by employee ID.
// Employees without salary or with a role other than employee are left out.
func (e *Evaluator) Evaluate(profiles []generic.CompensationProfile, records []generic.AttendanceRecord, period generic.Period) []EmployeeTotals {
	byEmployee := make(map[generic.EmployeeID][]generic.AttendanceRecord)
	for _, rec := range records {
		byEmployee[rec.EmployeeID] = append(byEmployee[rec.EmployeeID], rec)
	}

	rows := make([]EmployeeTotals, 0, len(profiles))
	seen := make(map[generic.EmployeeID]bool, len(profiles))
	for _, p := range profiles {
		if !p.Qualifies() || seen[p.EmployeeID] {
			continue
		}
		seen[p.EmployeeID] = true
		rows = append(rows, e.EvaluateEmployee(p, byEmployee[p.EmployeeID], period))
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].EmployeeID < rows[j].EmployeeID })
	return rows
}
