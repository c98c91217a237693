package payroll_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

func taxedSettings() payroll.Settings {
	s := payroll.DefaultSettings()
	s.PensionEnabled = true
	s.PensionPercentage = dec("8")
	s.PayeEnabled = true
	s.TaxBrackets = []payroll.TaxBracket{
		bracket("0", "1000", "0"),
		bracket("1000", "", "0.10"),
	}
	return s
}

func sampleInput() payroll.Input {
	return payroll.Input{
		EmployeeID:    "emp-1",
		Year:          2025,
		Month:         time.March,
		BaseSalary:    dec("3000"),
		OvertimePay:   dec("60"),
		OvertimeHours: dec("2"),
		Bonus:         dec("100"),
		LateDeduction: dec("6.666666666666667"),
		LateMinutes:   20,
		OffDays:       1,
		Owing:         dec("50"),
	}
}

// =============================================================================
// PENSION
// =============================================================================

func TestComputePension(t *testing.T) {
	s := payroll.DefaultSettings()
	s.PensionPercentage = dec("8")

	assert.True(t, payroll.ComputePension(dec("3000"), s).IsZero(), "disabled")

	s.PensionEnabled = true
	assert.True(t, payroll.ComputePension(dec("3000"), s).Equal(dec("240")))
	assert.True(t, payroll.ComputePension(decimal.Zero, s).IsZero())
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestCompute_FullPayslip(t *testing.T) {
	// GIVEN: Base 3000, overtime 60, bonus 100, 8% pension, 10% tax above 1000
	agg := payroll.Compute(sampleInput(), taxedSettings())

	// THEN: Components are rounded once
	assert.Equal(t, "6.67", agg.LateDeduction.StringFixed(2))
	assert.Equal(t, "136.36", agg.OffDeduction.StringFixed(2), "3000 / 22 days")
	assert.Equal(t, "240.00", agg.PensionDeduction.StringFixed(2))

	// AND: Gross and tax on gross
	assert.Equal(t, "3160.00", agg.GrossSalary.StringFixed(2))
	assert.Equal(t, "3160.00", agg.TaxableIncome.StringFixed(2))
	assert.Equal(t, "216.00", agg.TaxAmount.StringFixed(2))

	// AND: The payslip adds up
	assert.Equal(t, "649.03", agg.TotalDeductions.StringFixed(2))
	assert.Equal(t, "2510.97", agg.NetSalary.StringFixed(2))
	assert.True(t, agg.GrossSalary.Sub(agg.TotalDeductions).Equal(agg.NetSalary))
	assert.Equal(t, "USD", agg.Currency)
	assert.Equal(t, 20, agg.LateMinutes)
	assert.Equal(t, 1, agg.OffDays)
}

func TestCompute_TaxableBase(t *testing.T) {
	tests := []struct {
		base    payroll.TaxableBase
		taxable string
		tax     string
	}{
		{payroll.TaxableGross, "3160.00", "216.00"},
		{"", "3160.00", "216.00"},
		{payroll.TaxableBaseSalary, "3000.00", "200.00"},
		{payroll.TaxableGrossLessPension, "2920.00", "192.00"},
	}

	for _, tt := range tests {
		t.Run(string(tt.base), func(t *testing.T) {
			s := taxedSettings()
			s.TaxableBase = tt.base
			agg := payroll.Compute(sampleInput(), s)
			assert.Equal(t, tt.taxable, agg.TaxableIncome.StringFixed(2))
			assert.Equal(t, tt.tax, agg.TaxAmount.StringFixed(2))
		})
	}
}

func TestCompute_TaxOnFullPrecisionIncome(t *testing.T) {
	// GIVEN: Two sub-cent components that each round to zero
	s := payroll.DefaultSettings()
	s.PayeEnabled = true
	s.TaxBrackets = []payroll.TaxBracket{
		bracket("0", "1000", "0"),
		bracket("1000", "", "1"),
	}
	in := payroll.Input{
		EmployeeID:  "emp-1",
		Year:        2025,
		Month:       time.March,
		BaseSalary:  dec("1000"),
		OvertimePay: dec("0.004"),
		Bonus:       dec("0.004"),
	}

	// WHEN: Aggregating
	agg := payroll.Compute(in, s)

	// THEN: Tax sees 1000.008, so 0.008 is taxed and rounds to a cent
	assert.Equal(t, "0.00", agg.OvertimePay.StringFixed(2))
	assert.Equal(t, "0.00", agg.Bonus.StringFixed(2))
	assert.Equal(t, "1000.00", agg.GrossSalary.StringFixed(2))
	assert.Equal(t, "1000.01", agg.TaxableIncome.StringFixed(2))
	assert.Equal(t, "0.01", agg.TaxAmount.StringFixed(2))
	assert.Equal(t, "999.99", agg.NetSalary.StringFixed(2))
}

func TestCompute_NegativeNetIsNotClamped(t *testing.T) {
	// GIVEN: Owings larger than gross pay
	in := sampleInput()
	in.Owing = dec("5000")

	agg := payroll.Compute(in, taxedSettings())

	assert.True(t, agg.NetSalary.IsNegative())
	assert.True(t, agg.GrossSalary.Sub(agg.TotalDeductions).Equal(agg.NetSalary))
}

func TestCompute_Idempotent(t *testing.T) {
	a := payroll.Compute(sampleInput(), taxedSettings())
	b := payroll.Compute(sampleInput(), taxedSettings())
	assert.True(t, a.NetSalary.Equal(b.NetSalary))
	assert.True(t, a.TotalDeductions.Equal(b.TotalDeductions))
	assert.True(t, a.TaxAmount.Equal(b.TaxAmount))
}

func TestCompute_NoWorkingDaysMeansNoOffDeduction(t *testing.T) {
	s := taxedSettings()
	s.WorkingDaysPerMonth = decimal.Zero
	agg := payroll.Compute(sampleInput(), s)
	assert.True(t, agg.OffDeduction.IsZero())
}

// =============================================================================
// CALCULATOR
// =============================================================================

func TestCalculator_Compute(t *testing.T) {
	// GIVEN: Salary 3520 (20 per hour), one late day, one long day, one absence
	evaluator := attendance.NewEvaluator(attendance.DefaultWorkingHours(), attendance.DefaultOvertime(), nil)
	calc := payroll.NewCalculator(evaluator, payroll.DefaultSettings())
	profile := generic.CompensationProfile{
		EmployeeID:    "emp-1",
		MonthlySalary: dec("3520"),
		Role:          generic.RoleEmployee,
		Active:        true,
	}
	day := func(d int) generic.TimePoint { return generic.NewTimePoint(2025, time.March, d) }
	records := []generic.AttendanceRecord{
		{EmployeeID: "emp-1", Date: day(3), CheckIn: "08:20", CheckOut: "17:00", LunchBreakMinutes: 60, Status: generic.StatusPresent},
		{EmployeeID: "emp-1", Date: day(4), CheckIn: "08:00", CheckOut: "19:00", LunchBreakMinutes: 60, Status: generic.StatusPresent},
		{EmployeeID: "emp-1", Date: day(5), Status: generic.StatusAbsent},
	}

	// WHEN: Computing March with a bonus
	agg, totals, err := calc.Compute(profile, 2025, time.March, records, payroll.Adjustments{Bonus: dec("100")})

	// THEN
	require.NoError(t, err)
	assert.Equal(t, 20, totals.LateMinutes)
	assert.Equal(t, "6.67", agg.LateDeduction.StringFixed(2))
	assert.Equal(t, "60.00", agg.OvertimePay.StringFixed(2))
	assert.Equal(t, 1, agg.OffDays)
	assert.Equal(t, "160.00", agg.OffDeduction.StringFixed(2))
	assert.Equal(t, "3680.00", agg.GrossSalary.StringFixed(2))
	assert.Equal(t, "3513.33", agg.NetSalary.StringFixed(2))
	assert.True(t, agg.TaxAmount.IsZero(), "PAYE disabled by default")
}

func TestCalculator_NotEligible(t *testing.T) {
	evaluator := attendance.NewEvaluator(attendance.DefaultWorkingHours(), attendance.DefaultOvertime(), nil)
	calc := payroll.NewCalculator(evaluator, payroll.DefaultSettings())

	_, _, err := calc.Compute(generic.CompensationProfile{EmployeeID: "emp-x", Role: generic.RoleEmployee}, 2025, time.March, nil, payroll.Adjustments{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrNotPayrollEligible))
	assert.True(t, generic.IsSkippable(err))
}
