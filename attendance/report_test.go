package attendance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
)

// March 2025 starts on a Saturday: 10 weekend days, 31 days in total.
func marchRecords() []generic.AttendanceRecord {
	withStatus := func(r generic.AttendanceRecord, s generic.AttendanceStatus) generic.AttendanceRecord {
		r.Status = s
		return r
	}
	return []generic.AttendanceRecord{
		record("emp-1", march(3), "08:00", "17:00", 60),
		record("emp-1", march(4), "08:25", "17:00", 60),                                   // late
		record("emp-1", march(5), "08:00", "19:00", 60),                                   // 2h overtime
		withStatus(record("emp-1", march(6), "08:00", "17:00", 60), generic.StatusRemote), // remote
		withStatus(record("emp-1", march(7), "", "", 0), generic.StatusLeave),
		record("emp-1", march(9), "09:00", "13:00", 0), // Sunday, 4 premium hours
		withStatus(record("emp-1", march(10), "", "", 0), generic.StatusSick),
		withStatus(record("emp-1", march(11), "", "", 0), generic.StatusAbsent),
		withStatus(record("emp-1", march(12), "", "", 0), generic.StatusOff),
		record("emp-2", march(13), "08:00", "17:00", 60), // another employee
	}
}

func TestBuildReport_Counters(t *testing.T) {
	// GIVEN: Monday March 17 is a holiday
	e := newEvaluator(generic.Holiday{Date: march(17), Name: "Founders Day"})

	// WHEN: Building the March report
	data := e.BuildReport("emp-1", 2025, time.March, marchRecords(), attendance.DefaultReportOptions())

	// THEN: Calendar counters
	assert.Equal(t, 31, data.TotalDays)
	assert.Equal(t, 1, data.DaysHoliday)
	assert.Equal(t, 10, data.DaysWeekend)
	assert.Equal(t, 20, data.RequiredWorkingDays)

	// AND: Status counters
	assert.Equal(t, 5, data.DaysPresent, "present and remote both count")
	assert.Equal(t, 1, data.DaysLeave)
	assert.Equal(t, 1, data.DaysSick)
	assert.Equal(t, 1, data.DaysAbsent)
	assert.Equal(t, 2, data.OffDays, "absent and off on workdays")
	assert.Equal(t, 1, data.LateArrivals)
	assert.True(t, data.OvertimeHours.Equal(dec("6")), "2 workday hours + 4 Sunday hours")

	// AND: 5 of 20 required days
	assert.Equal(t, "25.00", data.AttendancePercentage.StringFixed(2))
}

func TestBuildReport_PayableDaysSwitches(t *testing.T) {
	e := newEvaluator(generic.Holiday{Date: march(17), Name: "Founders Day"})
	records := marchRecords()

	tests := []struct {
		name string
		opts attendance.ReportOptions
		want int
	}{
		{"paid holidays only", attendance.ReportOptions{PaidHolidays: true}, 5 + 1 + 1},
		{"paid holidays and compensated weekends", attendance.ReportOptions{PaidHolidays: true, CompensatedWeekends: true}, 5 + 1 + 1 + 10},
		{"neither", attendance.ReportOptions{}, 5 + 1},
		{"compensated weekends only", attendance.ReportOptions{CompensatedWeekends: true}, 5 + 1 + 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := e.BuildReport("emp-1", 2025, time.March, records, tt.opts)
			assert.Equal(t, tt.want, data.PayableDays)
			assert.Equal(t, tt.opts.PaidHolidays, data.PaidHolidays)
			assert.Equal(t, tt.opts.CompensatedWeekends, data.CompensatedWeekends)
		})
	}
}

func TestBuildReport_HolidayOnWeekendCountsOnce(t *testing.T) {
	// GIVEN: Saturday March 22 is a holiday
	e := newEvaluator(generic.Holiday{Date: march(22), Name: "Saturday Holiday"})

	data := e.BuildReport("emp-1", 2025, time.March, nil, attendance.DefaultReportOptions())

	assert.Equal(t, 1, data.DaysHoliday)
	assert.Equal(t, 9, data.DaysWeekend)
	assert.Equal(t, 21, data.RequiredWorkingDays)
}

func TestBuildReport_EmptyMonth(t *testing.T) {
	data := newEvaluator().BuildReport("emp-1", 2025, time.February, nil, attendance.DefaultReportOptions())

	assert.Equal(t, 28, data.TotalDays)
	assert.Equal(t, 0, data.DaysPresent)
	assert.True(t, data.AttendancePercentage.IsZero())
	assert.Equal(t, 0, data.PayableDays)
}

func TestBuildReport_NoRequiredDays(t *testing.T) {
	// GIVEN: Every day of February is a holiday
	holidays := make([]generic.Holiday, 0, 28)
	for d := 1; d <= 28; d++ {
		holidays = append(holidays, generic.Holiday{Date: generic.NewTimePoint(2025, time.February, d)})
	}
	e := newEvaluator(holidays...)

	data := e.BuildReport("emp-1", 2025, time.February, nil, attendance.DefaultReportOptions())

	assert.Equal(t, 0, data.RequiredWorkingDays)
	assert.True(t, data.AttendancePercentage.IsZero(), "no division by zero")
	assert.Equal(t, 28, data.PayableDays)
}

func TestBuildReport_LateNeedsBothTimes(t *testing.T) {
	// GIVEN: A late check-in on Monday with no check-out, and a complete late day
	e := newEvaluator()
	incomplete := record("emp-1", march(3), "09:00", "", 0)
	records := []generic.AttendanceRecord{
		incomplete,
		record("emp-1", march(4), "08:30", "17:00", 60),
	}

	// WHEN: Building the report
	data := e.BuildReport("emp-1", 2025, time.March, records, attendance.DefaultReportOptions())

	// THEN: Only the complete day counts as late, matching the evaluator
	assert.Equal(t, 1, data.LateArrivals)
	assert.Equal(t, 2, data.DaysPresent)
	res := e.EvaluateRecord(incomplete, dec("20"))
	assert.Equal(t, 0, res.LateMinutes)
	assert.Error(t, res.Issue)
}
