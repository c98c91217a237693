package attendance

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// ReportData is the monthly attendance summary of one employee.
type ReportData struct {
	EmployeeID generic.EmployeeID
	Year       int
	Month      time.Month
	TotalDays  int

	DaysPresent  int // present + remote
	DaysLeave    int
	DaysSick     int
	DaysAbsent   int
	DaysHoliday  int // calendar holidays in the month
	DaysWeekend  int // calendar rest days in the month
	OffDays      int // off or absent on a workday, unpaid
	LateArrivals int

	OvertimeHours        decimal.Decimal
	RequiredWorkingDays  int
	AttendancePercentage decimal.Decimal
	PayableDays          int

	PaidHolidays        bool
	CompensatedWeekends bool
}

// BuildReport walks every day of the month and summarises the employee's
// attendance. Holiday and weekend counts come from the calendar; the other
// counters come from record statuses. Records of other employees or months
// are ignored, and a later record for a date replaces an earlier one.
func (e *Evaluator) BuildReport(employeeID generic.EmployeeID, year int, month time.Month, records []generic.AttendanceRecord, opts ReportOptions) ReportData {
	period := generic.MonthPeriod(year, month)

	byDate := make(map[generic.TimePoint]generic.AttendanceRecord, len(records))
	for _, rec := range records {
		if rec.EmployeeID == employeeID && period.Contains(rec.Date) {
			byDate[rec.Date] = rec
		}
	}

	data := ReportData{
		EmployeeID:          employeeID,
		Year:                year,
		Month:               month,
		OvertimeHours:       decimal.Zero,
		PaidHolidays:        opts.PaidHolidays,
		CompensatedWeekends: opts.CompensatedWeekends,
	}

	for _, day := range period.Days() {
		data.TotalDays++
		dayType := e.Calendar.Classify(day)
		switch dayType {
		case DayHoliday:
			data.DaysHoliday++
		case DayRestDay:
			data.DaysWeekend++
		}

		rec, ok := byDate[day]
		if !ok {
			continue
		}

		switch {
		case rec.Status.IsPresence():
			data.DaysPresent++
		case rec.Status == generic.StatusLeave:
			data.DaysLeave++
		case rec.Status == generic.StatusSick:
			data.DaysSick++
		case rec.Status == generic.StatusAbsent:
			data.DaysAbsent++
		}
		if dayType == DayWorkday && isUnpaid(rec.Status) {
			data.OffDays++
		}

		res := e.EvaluateRecord(rec, decimal.Zero)
		if res.LateMinutes > 0 {
			data.LateArrivals++
		}
		if res.Issue == nil {
			data.OvertimeHours = data.OvertimeHours.Add(res.OvertimeHours)
		}
	}

	data.RequiredWorkingDays = data.TotalDays - data.DaysHoliday - data.DaysWeekend
	data.AttendancePercentage = decimal.Zero
	if data.RequiredWorkingDays > 0 {
		data.AttendancePercentage = decimal.NewFromInt(int64(data.DaysPresent)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(data.RequiredWorkingDays))).
			Round(2)
	}

	data.PayableDays = data.DaysPresent + data.DaysLeave
	if opts.PaidHolidays {
		data.PayableDays += data.DaysHoliday
	}
	if opts.CompensatedWeekends {
		data.PayableDays += data.DaysWeekend
	}
	return data
}

// CountOffDays counts the employee's off or absent records that fall on
// workdays in period. These are the unpaid days of the payroll.
func (e *Evaluator) CountOffDays(employeeID generic.EmployeeID, records []generic.AttendanceRecord, period generic.Period) int {
	status := make(map[generic.TimePoint]generic.AttendanceStatus)
	for _, rec := range records {
		if rec.EmployeeID == employeeID && period.Contains(rec.Date) {
			status[rec.Date] = rec.Status
		}
	}
	n := 0
	for date, s := range status {
		if isUnpaid(s) && e.Calendar.Classify(date) == DayWorkday {
			n++
		}
	}
	return n
}

func isUnpaid(s generic.AttendanceStatus) bool {
	return s == generic.StatusAbsent || s == generic.StatusOff
}
