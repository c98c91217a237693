package attendance_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// 3520 / 22 days / 8 hours = 20 per hour
var salaryForRate20 = decimal.NewFromInt(3520)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func march(day int) generic.TimePoint { return generic.NewTimePoint(2025, time.March, day) }

func newEvaluator(holidays ...generic.Holiday) *attendance.Evaluator {
	return attendance.NewEvaluator(
		attendance.DefaultWorkingHours(),
		attendance.DefaultOvertime(),
		generic.NewHolidaySet(holidays),
	)
}

func record(emp string, date generic.TimePoint, in, out string, lunch int) generic.AttendanceRecord {
	return generic.AttendanceRecord{
		EmployeeID:        generic.EmployeeID(emp),
		Date:              date,
		CheckIn:           in,
		CheckOut:          out,
		LunchBreakMinutes: lunch,
		Status:            generic.StatusPresent,
	}
}

func employee(id string, salary decimal.Decimal) generic.CompensationProfile {
	return generic.CompensationProfile{
		EmployeeID:    generic.EmployeeID(id),
		Name:          id,
		MonthlySalary: salary,
		Role:          generic.RoleEmployee,
		Active:        true,
	}
}

// =============================================================================
// CALENDAR CLASSIFIER
// =============================================================================

func TestCalendar_Classify(t *testing.T) {
	cal := attendance.Calendar{
		WorkingHours: attendance.DefaultWorkingHours(),
		Holidays: generic.NewHolidaySet([]generic.Holiday{
			{Date: march(17), Name: "Founders Day"},
			{Date: march(22), Name: "Saturday Holiday"},
		}),
	}

	assert.Equal(t, attendance.DayWorkday, cal.Classify(march(3)), "Monday")
	assert.Equal(t, attendance.DayRestDay, cal.Classify(march(1)), "Saturday")
	assert.Equal(t, attendance.DayRestDay, cal.Classify(march(2)), "Sunday")
	assert.Equal(t, attendance.DayHoliday, cal.Classify(march(17)), "holiday on a workday")
	assert.Equal(t, attendance.DayHoliday, cal.Classify(march(22)), "holiday wins over rest day")
}

func TestCalendar_CustomWorkingDays(t *testing.T) {
	// GIVEN: A Sunday to Thursday week
	hours := attendance.DefaultWorkingHours()
	hours.WorkingDays = []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday}
	cal := attendance.Calendar{WorkingHours: hours, Holidays: generic.NoHolidays{}}

	assert.Equal(t, attendance.DayWorkday, cal.Classify(march(2)), "Sunday is a workday")
	assert.Equal(t, attendance.DayRestDay, cal.Classify(march(7)), "Friday is a rest day")
	assert.Equal(t, 22, cal.RequiredWorkingDays(generic.MonthPeriod(2025, time.March)))
}

func TestCalendar_EmptyWorkingDaysMeansWeekdays(t *testing.T) {
	cal := attendance.Calendar{WorkingHours: attendance.WorkingHoursSettings{StartTime: "08:00"}}
	assert.Equal(t, attendance.DayWorkday, cal.Classify(march(3)))
	assert.Equal(t, attendance.DayRestDay, cal.Classify(march(1)))
}

// =============================================================================
// RATES
// =============================================================================

func TestEvaluator_HourlyRate(t *testing.T) {
	e := newEvaluator()
	assert.True(t, e.NormalDailyHours().Equal(dec("8")))
	assert.True(t, e.HourlyRate(salaryForRate20).Equal(dec("20")))
}

func TestEvaluator_HourlyRate_ZeroDivisors(t *testing.T) {
	ot := attendance.DefaultOvertime()
	ot.AverageWorkDaysPerMonth = decimal.Zero
	e := attendance.NewEvaluator(attendance.DefaultWorkingHours(), ot, nil)
	assert.True(t, e.HourlyRate(salaryForRate20).IsZero())
}

func TestEvaluator_NormalDailyHours_UsesWorkingDayCount(t *testing.T) {
	hours := attendance.DefaultWorkingHours()
	hours.WorkingDays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday}
	e := attendance.NewEvaluator(hours, attendance.DefaultOvertime(), nil)
	assert.True(t, e.NormalDailyHours().Equal(dec("10")))
}

// =============================================================================
// LATE ARRIVALS
// =============================================================================

func TestEvaluateRecord_Late(t *testing.T) {
	// GIVEN: Start 08:00, check-in 08:20 on a Monday, hourly rate 20
	e := newEvaluator()
	rec := record("emp-1", march(3), "08:20", "17:00", 60)

	// WHEN: Evaluating
	res := e.EvaluateRecord(rec, dec("20"))

	// THEN: 20 minutes late, deduction 20/60 x 20
	require.NoError(t, res.Issue)
	assert.Equal(t, 20, res.LateMinutes)
	assert.Equal(t, "6.6667", res.LateDeduction.StringFixed(4))
}

func TestEvaluateRecord_OnTimeIsNotLate(t *testing.T) {
	e := newEvaluator()
	res := e.EvaluateRecord(record("emp-1", march(3), "08:00", "17:00", 60), dec("20"))
	assert.Equal(t, 0, res.LateMinutes)
	assert.True(t, res.LateDeduction.IsZero())
}

func TestEvaluateRecord_NoLateOnHoliday(t *testing.T) {
	// GIVEN: Monday March 17 is a holiday
	e := newEvaluator(generic.Holiday{Date: march(17), Name: "Founders Day"})
	res := e.EvaluateRecord(record("emp-1", march(17), "10:00", "12:00", 0), dec("20"))

	assert.Equal(t, attendance.DayHoliday, res.DayType)
	assert.Equal(t, 0, res.LateMinutes, "holidays are never late")
}

func TestEvaluateRecord_GracePeriod(t *testing.T) {
	hours := attendance.DefaultWorkingHours()
	hours.LateGraceMinutes = 10
	e := attendance.NewEvaluator(hours, attendance.DefaultOvertime(), nil)

	within := e.EvaluateRecord(record("emp-1", march(3), "08:10", "17:00", 60), dec("20"))
	assert.Equal(t, 0, within.LateMinutes)

	beyond := e.EvaluateRecord(record("emp-1", march(3), "08:15", "17:00", 60), dec("20"))
	assert.Equal(t, 15, beyond.LateMinutes, "lateness counts from start once grace is exceeded")
}

// =============================================================================
// OVERTIME
// =============================================================================

func TestEvaluateRecord_WorkdayOvertime(t *testing.T) {
	// GIVEN: 08:00 to 19:00 with an hour lunch = 10 hours on a workday
	e := newEvaluator()
	res := e.EvaluateRecord(record("emp-1", march(4), "08:00", "19:00", 60), dec("20"))

	// THEN: 2 hours beyond the normal 8 at 1.5x
	require.NoError(t, res.Issue)
	assert.Equal(t, attendance.PremiumOvertime, res.Premium)
	assert.True(t, res.OvertimeHours.Equal(dec("2")))
	assert.True(t, res.OvertimePay.Equal(dec("60")))
	assert.True(t, res.Worked.Hours().Value.Equal(dec("10")))
}

func TestEvaluateRecord_ShortWorkdayHasNoOvertime(t *testing.T) {
	e := newEvaluator()
	res := e.EvaluateRecord(record("emp-1", march(4), "08:00", "12:00", 0), dec("20"))
	assert.Equal(t, attendance.PremiumNone, res.Premium)
	assert.True(t, res.OvertimeHours.IsZero())
	assert.True(t, res.OvertimePay.IsZero())
}

func TestEvaluateRecord_HolidayPaysAllHours(t *testing.T) {
	// GIVEN: 4 hours worked on a holiday
	e := newEvaluator(generic.Holiday{Date: march(17), Name: "Founders Day"})
	res := e.EvaluateRecord(record("emp-1", march(17), "09:00", "13:00", 0), dec("20"))

	// THEN: All 4 hours at 2x
	assert.Equal(t, attendance.PremiumHoliday, res.Premium)
	assert.True(t, res.OvertimeHours.Equal(dec("4")))
	assert.True(t, res.OvertimePay.Equal(dec("160")))
}

func TestEvaluateRecord_SundayPaysAllHours(t *testing.T) {
	e := newEvaluator()
	res := e.EvaluateRecord(record("emp-1", march(2), "09:00", "12:00", 0), dec("20"))

	assert.Equal(t, attendance.DayRestDay, res.DayType)
	assert.Equal(t, attendance.PremiumHoliday, res.Premium)
	assert.True(t, res.OvertimePay.Equal(dec("120")))
}

func TestEvaluateRecord_SaturdayRestDayPolicy(t *testing.T) {
	rec := record("emp-1", march(1), "09:00", "12:00", 0)

	// GIVEN: Default policy
	res := newEvaluator().EvaluateRecord(rec, dec("20"))
	// THEN: Non-Sunday rest days earn nothing
	assert.Equal(t, attendance.PremiumNone, res.Premium)
	assert.True(t, res.OvertimePay.IsZero())

	// GIVEN: holiday_rate policy
	ot := attendance.DefaultOvertime()
	ot.RestDayPolicy = attendance.RestDayHolidayRate
	e := attendance.NewEvaluator(attendance.DefaultWorkingHours(), ot, nil)
	res = e.EvaluateRecord(rec, dec("20"))
	// THEN: Every hour is paid at the holiday multiplier
	assert.Equal(t, attendance.PremiumHoliday, res.Premium)
	assert.True(t, res.OvertimePay.Equal(dec("120")))
}

func TestEvaluateRecord_OvernightShift(t *testing.T) {
	// GIVEN: 22:00 to 08:00 without break on a workday = 10 hours
	e := newEvaluator()
	res := e.EvaluateRecord(record("emp-1", march(4), "22:00", "08:00", 0), dec("20"))

	require.NoError(t, res.Issue)
	assert.True(t, res.OvertimeHours.Equal(dec("2")))
}

// =============================================================================
// DATA ABSENCE
// =============================================================================

func TestEvaluateRecord_MissingCheckoutContributesNothing(t *testing.T) {
	e := newEvaluator()
	res := e.EvaluateRecord(record("emp-1", march(3), "09:30", "", 0), dec("20"))

	assert.True(t, errors.Is(res.Issue, attendance.ErrIncompleteRecord))
	assert.Equal(t, 0, res.LateMinutes)
	assert.True(t, res.LateDeduction.IsZero())
	assert.True(t, res.OvertimePay.IsZero())
}

func TestEvaluateRecord_MalformedTimeContributesNothing(t *testing.T) {
	e := newEvaluator()
	res := e.EvaluateRecord(record("emp-1", march(3), "9h30", "17:00", 0), dec("20"))

	assert.True(t, errors.Is(res.Issue, generic.ErrMalformedTime))
	assert.True(t, res.LateDeduction.IsZero())
}

func TestEvaluateRecord_BreakExceedsWork(t *testing.T) {
	e := newEvaluator()
	res := e.EvaluateRecord(record("emp-1", march(1), "09:00", "09:30", 60), dec("20"))

	assert.True(t, errors.Is(res.Issue, generic.ErrBreakExceedsWork))
	assert.True(t, res.Worked.IsZero())
	assert.True(t, res.OvertimePay.IsZero())
}

// =============================================================================
// EMPLOYEE ROWS
// =============================================================================

func TestEvaluate_OneRowPerQualifyingEmployee(t *testing.T) {
	// GIVEN: Two qualifying employees, one without salary, one admin
	e := newEvaluator()
	admin := employee("emp-admin", salaryForRate20)
	admin.Role = "admin"
	profiles := []generic.CompensationProfile{
		employee("emp-2", salaryForRate20),
		employee("emp-1", salaryForRate20),
		employee("emp-nosalary", decimal.Zero),
		admin,
	}
	records := []generic.AttendanceRecord{
		record("emp-1", march(3), "08:20", "17:00", 60),
		record("emp-1", march(4), "08:00", "19:00", 60),
		record("emp-1", march(5), "08:10", "", 0),
		record("emp-2", march(3), "08:00", "17:00", 60),
		record("emp-nosalary", march(3), "09:00", "17:00", 60),
		record("emp-admin", march(3), "09:00", "17:00", 60),
		record("emp-1", generic.NewTimePoint(2025, time.April, 1), "10:00", "17:00", 0),
	}

	// WHEN: Evaluating March
	rows := e.Evaluate(profiles, records, generic.MonthPeriod(2025, time.March))

	// THEN: Only emp-1 and emp-2, sorted
	require.Len(t, rows, 2)
	assert.Equal(t, generic.EmployeeID("emp-1"), rows[0].EmployeeID)
	assert.Equal(t, generic.EmployeeID("emp-2"), rows[1].EmployeeID)

	emp1 := rows[0]
	assert.Equal(t, 3, emp1.RecordsEvaluated, "April record is outside the period")
	assert.Equal(t, 20, emp1.LateMinutes)
	assert.Equal(t, "6.6667", emp1.LateDeduction.StringFixed(4))
	assert.True(t, emp1.OvertimePay.Equal(dec("60")))
	require.Len(t, emp1.Issues, 1)
	assert.Equal(t, march(5), emp1.Issues[0].Date)

	emp2 := rows[1]
	assert.True(t, emp2.LateDeduction.IsZero())
	assert.True(t, emp2.OvertimePay.IsZero())
}

func TestEvaluate_EmployeeWithoutRecordsStillHasRow(t *testing.T) {
	rows := newEvaluator().Evaluate(
		[]generic.CompensationProfile{employee("emp-1", salaryForRate20)},
		nil,
		generic.MonthPeriod(2025, time.March),
	)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].RecordsEvaluated)
	assert.True(t, rows[0].OvertimePay.IsZero())
}
