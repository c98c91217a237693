package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// Input is everything the aggregator needs for one employee and month.
// Money values may carry full precision; OffDays is a day count.
type Input struct {
	EmployeeID    generic.EmployeeID
	Year          int
	Month         time.Month
	BaseSalary    decimal.Decimal
	OvertimePay   decimal.Decimal
	OvertimeHours decimal.Decimal
	Bonus         decimal.Decimal
	LateDeduction decimal.Decimal
	LateMinutes   int
	OffDays       int
	Owing         decimal.Decimal
}

// Aggregate is the payroll result of one employee for one month.
// All money fields are rounded to currency precision. NetSalary may be
// negative when deductions exceed gross pay.
type Aggregate struct {
	EmployeeID generic.EmployeeID
	Year       int
	Month      time.Month
	Currency   string

	BaseSalary    decimal.Decimal
	OvertimePay   decimal.Decimal
	OvertimeHours decimal.Decimal
	Bonus         decimal.Decimal
	GrossSalary   decimal.Decimal

	LateMinutes      int
	LateDeduction    decimal.Decimal
	OffDays          int
	OffDeduction     decimal.Decimal
	OwingDeduction   decimal.Decimal
	PensionDeduction decimal.Decimal
	TaxableIncome    decimal.Decimal
	TaxAmount        decimal.Decimal
	TotalDeductions  decimal.Decimal

	NetSalary decimal.Decimal
}

// Compute aggregates one payroll. Tax is assessed on the full-precision
// taxable income and only its total is rounded. Every other component is
// rounded once, then gross, deductions and net are derived from the rounded
// components so the payslip adds up to the cent. Rounding is half away from
// zero, which equals half-up for the non-negative components rounded here.
// The function is pure: equal inputs give equal outputs.
func Compute(in Input, s Settings) Aggregate {
	agg := Aggregate{
		EmployeeID:       in.EmployeeID,
		Year:             in.Year,
		Month:            in.Month,
		Currency:         s.Currency,
		BaseSalary:       in.BaseSalary,
		OvertimePay:      in.OvertimePay,
		OvertimeHours:    in.OvertimeHours.Round(2),
		Bonus:            in.Bonus,
		LateMinutes:      in.LateMinutes,
		LateDeduction:    in.LateDeduction,
		OffDays:          in.OffDays,
		OffDeduction:     DailyRate(in.BaseSalary, s).Mul(decimal.NewFromInt(int64(in.OffDays))),
		OwingDeduction:   in.Owing,
		PensionDeduction: ComputePension(in.BaseSalary, s),
	}

	gross := agg.BaseSalary.Add(agg.OvertimePay).Add(agg.Bonus)
	switch s.TaxableBase {
	case TaxableBaseSalary:
		agg.TaxableIncome = agg.BaseSalary
	case TaxableGrossLessPension:
		agg.TaxableIncome = gross.Sub(agg.PensionDeduction)
	default:
		agg.TaxableIncome = gross
	}
	agg.TaxAmount = ComputeTax(agg.TaxableIncome, s.TaxBrackets, s.PayeEnabled)

	roundAll(&agg.BaseSalary, &agg.OvertimePay, &agg.Bonus, &agg.LateDeduction,
		&agg.OffDeduction, &agg.OwingDeduction, &agg.PensionDeduction, &agg.TaxableIncome)

	agg.GrossSalary = agg.BaseSalary.Add(agg.OvertimePay).Add(agg.Bonus)
	agg.TotalDeductions = agg.LateDeduction.
		Add(agg.OffDeduction).
		Add(agg.OwingDeduction).
		Add(agg.PensionDeduction).
		Add(agg.TaxAmount)
	agg.NetSalary = agg.GrossSalary.Sub(agg.TotalDeductions)
	return agg
}
