package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// TaxableBase selects the income the tax ladder is applied to.
type TaxableBase string

const (
	TaxableGross            TaxableBase = "gross"
	TaxableBaseSalary       TaxableBase = "base"
	TaxableGrossLessPension TaxableBase = "gross_less_pension"
)

func (b TaxableBase) IsValid() bool {
	switch b {
	case TaxableGross, TaxableBaseSalary, TaxableGrossLessPension:
		return true
	}
	return false
}

// Settings are the payroll parameters.
type Settings struct {
	WorkingDaysPerMonth decimal.Decimal // daily rate divisor for off days
	WorkingHoursPerDay  decimal.Decimal
	OvertimeMultiplier  decimal.Decimal
	Currency            string

	PensionEnabled    bool
	PensionPercentage decimal.Decimal // 0..100

	PayeEnabled bool
	TaxBrackets []TaxBracket
	TaxableBase TaxableBase // gross when empty
}

// DefaultSettings has pension and PAYE switched off.
func DefaultSettings() Settings {
	return Settings{
		WorkingDaysPerMonth: decimal.NewFromInt(22),
		WorkingHoursPerDay:  decimal.NewFromInt(8),
		OvertimeMultiplier:  decimal.RequireFromString("1.5"),
		Currency:            "USD",
		PensionPercentage:   decimal.Zero,
		TaxableBase:         TaxableGross,
	}
}

// ComputePension is base x percentage / 100 when enabled. Overtime and
// bonuses are not pensionable. The result is unrounded.
func ComputePension(baseSalary decimal.Decimal, s Settings) decimal.Decimal {
	if !s.PensionEnabled || !baseSalary.IsPositive() {
		return decimal.Zero
	}
	return baseSalary.Mul(s.PensionPercentage).Div(decimal.NewFromInt(100))
}

// DailyRate is the base salary of one working day, zero without a divisor.
func DailyRate(baseSalary decimal.Decimal, s Settings) decimal.Decimal {
	if !s.WorkingDaysPerMonth.IsPositive() {
		return decimal.Zero
	}
	return baseSalary.Div(s.WorkingDaysPerMonth)
}

func roundAll(values ...*decimal.Decimal) {
	for _, v := range values {
		*v = generic.RoundCurrency(*v)
	}
}
