package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
)

// Adjustments are the manual monthly inputs: bonuses and allowances added to
// gross pay, owings deducted from it.
type Adjustments struct {
	Bonus decimal.Decimal
	Owing decimal.Decimal
	Note  string
}

// Calculator composes the attendance evaluator with the payroll settings.
type Calculator struct {
	Evaluator *attendance.Evaluator
	Settings  Settings
}

func NewCalculator(evaluator *attendance.Evaluator, settings Settings) *Calculator {
	return &Calculator{Evaluator: evaluator, Settings: settings}
}

// Compute runs the full pipeline for one employee and month. Employees that
// do not qualify return an error wrapping generic.ErrNotPayrollEligible.
func (c *Calculator) Compute(profile generic.CompensationProfile, year int, month time.Month, records []generic.AttendanceRecord, adj Adjustments) (Aggregate, attendance.EmployeeTotals, error) {
	if !profile.Qualifies() {
		return Aggregate{}, attendance.EmployeeTotals{},
			fmt.Errorf("%w: %s: %s", generic.ErrNotPayrollEligible, profile.EmployeeID, profile.SkipReason())
	}

	period := generic.MonthPeriod(year, month)
	totals := c.Evaluator.EvaluateEmployee(profile, records, period)

	agg := Compute(Input{
		EmployeeID:    profile.EmployeeID,
		Year:          year,
		Month:         month,
		BaseSalary:    profile.MonthlySalary,
		OvertimePay:   totals.OvertimePay,
		OvertimeHours: totals.OvertimeHours,
		Bonus:         adj.Bonus,
		LateDeduction: totals.LateDeduction,
		LateMinutes:   totals.LateMinutes,
		OffDays:       c.Evaluator.CountOffDays(profile.EmployeeID, records, period),
		Owing:         adj.Owing,
	}, c.Settings)
	return agg, totals, nil
}
