/*
Package factory provides JSON to Go settings conversion.

PURPOSE:
  Converts the JSON settings document into the typed settings used by the
  attendance and payroll packages. Settings are validated here, when they
  are saved, so the computation code never has to reject a configuration.

JSON SCHEMA:
  {
    "working_hours": {
      "start_time": "08:00",
      "end_time": "17:00",
      "working_days": [1, 2, 3, 4, 5],
      "allowed_lunch_minutes": 60,
      "late_grace_minutes": 0
    },
    "overtime": {
      "normal_hours_per_week": 40,
      "average_work_days_per_month": 22,
      "overtime_multiplier": 1.5,
      "holiday_multiplier": 2,
      "rest_day_policy": "none"
    },
    "payroll": {
      "working_days_per_month": 22,
      "working_hours_per_day": 8,
      "overtime_multiplier": 1.5,
      "currency": "USD",
      "pension_enabled": true,
      "pension_percentage": 8,
      "paye_enabled": true,
      "taxable_base": "gross",
      "tax_brackets": [
        {"min": 0, "max": 5000, "rate": 0},
        {"min": 5000, "max": null, "rate": 0.2}
      ]
    },
    "reports": {
      "paid_holidays": true,
      "compensated_weekends": false,
      "include_payroll": true
    }
  }

  Weekdays are 0 (Sunday) to 6 (Saturday). Rates are fractions. Missing
  sections take the defaults of DefaultSettings.

USAGE:
  settings, err := factory.ParseSettings(jsonString)
  if err != nil {
      // errors.Is(err, generic.ErrInvalidSettings) or generic.ErrInvalidTaxBrackets
  }
  evaluator := settings.Evaluator(holidays)

SEE ALSO:
  - attendance/settings.go: Working hours and overtime settings
  - payroll/settings.go: Payroll settings
  - store/sqlite/settings.go: Persists the JSON document
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SettingsJSON is the JSON representation of all engine settings.
type SettingsJSON struct {
	WorkingHours *WorkingHoursJSON `json:"working_hours,omitempty"`
	Overtime     *OvertimeJSON     `json:"overtime,omitempty"`
	Payroll      *PayrollJSON      `json:"payroll,omitempty"`
	Reports      *ReportsJSON      `json:"reports,omitempty"`
}

// WorkingHoursJSON represents the nominal workday.
type WorkingHoursJSON struct {
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	WorkingDays         []int  `json:"working_days"`
	AllowedLunchMinutes int    `json:"allowed_lunch_minutes"`
	LateGraceMinutes    int    `json:"late_grace_minutes,omitempty"`
}

// OvertimeJSON represents rate derivation and premiums.
type OvertimeJSON struct {
	NormalHoursPerWeek      decimal.Decimal `json:"normal_hours_per_week"`
	AverageWorkDaysPerMonth decimal.Decimal `json:"average_work_days_per_month"`
	OvertimeMultiplier      decimal.Decimal `json:"overtime_multiplier"`
	HolidayMultiplier       decimal.Decimal `json:"holiday_multiplier"`
	RestDayPolicy           string          `json:"rest_day_policy,omitempty"`
}

// PayrollJSON represents payroll settings.
type PayrollJSON struct {
	WorkingDaysPerMonth decimal.Decimal `json:"working_days_per_month"`
	WorkingHoursPerDay  decimal.Decimal `json:"working_hours_per_day"`
	OvertimeMultiplier  decimal.Decimal `json:"overtime_multiplier"`
	Currency            string          `json:"currency"`
	PensionEnabled      bool            `json:"pension_enabled"`
	PensionPercentage   decimal.Decimal `json:"pension_percentage"`
	PayeEnabled         bool            `json:"paye_enabled"`
	TaxableBase         string          `json:"taxable_base,omitempty"`
	TaxBrackets         []BracketJSON   `json:"tax_brackets"`
}

// BracketJSON is one tax bracket. A null max is open-ended.
type BracketJSON struct {
	Min  decimal.Decimal  `json:"min"`
	Max  *decimal.Decimal `json:"max"`
	Rate decimal.Decimal  `json:"rate"`
}

// ReportsJSON represents the payable-day switches.
type ReportsJSON struct {
	PaidHolidays        bool `json:"paid_holidays"`
	CompensatedWeekends bool `json:"compensated_weekends"`
	IncludePayroll      bool `json:"include_payroll"`
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings bundles every setting the engine needs. It is passed explicitly to
// each operation; nothing is read from package state.
type Settings struct {
	WorkingHours attendance.WorkingHoursSettings
	Overtime     attendance.OvertimeSettings
	Payroll      payroll.Settings
	Reports      attendance.ReportOptions
}

// DefaultSettings returns the settings used until an administrator saves some.
func DefaultSettings() *Settings {
	return &Settings{
		WorkingHours: attendance.DefaultWorkingHours(),
		Overtime:     attendance.DefaultOvertime(),
		Payroll:      payroll.DefaultSettings(),
		Reports:      attendance.DefaultReportOptions(),
	}
}

// EffectiveOvertime fills unset overtime fields from the payroll settings:
// the overtime multiplier, and a weekly hour budget of WorkingHoursPerDay per
// working day.
func (s *Settings) EffectiveOvertime() attendance.OvertimeSettings {
	ot := s.Overtime
	if ot.OvertimeMultiplier.IsZero() {
		ot.OvertimeMultiplier = s.Payroll.OvertimeMultiplier
	}
	if ot.NormalHoursPerWeek.IsZero() {
		days := decimal.NewFromInt(int64(s.WorkingHours.WorkingDayCount()))
		ot.NormalHoursPerWeek = s.Payroll.WorkingHoursPerDay.Mul(days)
	}
	if ot.AverageWorkDaysPerMonth.IsZero() {
		ot.AverageWorkDaysPerMonth = s.Payroll.WorkingDaysPerMonth
	}
	if ot.RestDayPolicy == "" {
		ot.RestDayPolicy = attendance.RestDayNoPremium
	}
	return ot
}

// Evaluator builds the attendance evaluator for these settings.
func (s *Settings) Evaluator(holidays generic.HolidayCalendar) *attendance.Evaluator {
	return attendance.NewEvaluator(s.WorkingHours, s.EffectiveOvertime(), holidays)
}

// Calculator builds the payroll calculator for these settings.
func (s *Settings) Calculator(holidays generic.HolidayCalendar) *payroll.Calculator {
	return payroll.NewCalculator(s.Evaluator(holidays), s.Payroll)
}

// =============================================================================
// PARSING
// =============================================================================

// ParseSettings parses and validates a JSON settings document.
func ParseSettings(jsonStr string) (*Settings, error) {
	var sj SettingsJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return nil, fmt.Errorf("%w: %v", generic.ErrInvalidSettings, err)
	}
	return FromJSON(sj)
}

// FromJSON converts and validates the JSON representation.
func FromJSON(sj SettingsJSON) (*Settings, error) {
	s := DefaultSettings()

	if wh := sj.WorkingHours; wh != nil {
		days := make([]time.Weekday, 0, len(wh.WorkingDays))
		for _, d := range wh.WorkingDays {
			if d < 0 || d > 6 {
				return nil, invalid("working_hours.working_days", fmt.Sprintf("weekday %d is not between 0 and 6", d))
			}
			days = append(days, time.Weekday(d))
		}
		s.WorkingHours = attendance.WorkingHoursSettings{
			StartTime:           wh.StartTime,
			EndTime:             wh.EndTime,
			WorkingDays:         days,
			AllowedLunchMinutes: wh.AllowedLunchMinutes,
			LateGraceMinutes:    wh.LateGraceMinutes,
		}
	}

	if ot := sj.Overtime; ot != nil {
		s.Overtime = attendance.OvertimeSettings{
			NormalHoursPerWeek:      ot.NormalHoursPerWeek,
			AverageWorkDaysPerMonth: ot.AverageWorkDaysPerMonth,
			OvertimeMultiplier:      ot.OvertimeMultiplier,
			HolidayMultiplier:       ot.HolidayMultiplier,
			RestDayPolicy:           attendance.RestDayPolicy(ot.RestDayPolicy),
		}
		if s.Overtime.RestDayPolicy == "" {
			s.Overtime.RestDayPolicy = attendance.RestDayNoPremium
		}
	}

	if p := sj.Payroll; p != nil {
		brackets := make([]payroll.TaxBracket, len(p.TaxBrackets))
		for i, b := range p.TaxBrackets {
			brackets[i] = payroll.TaxBracket{Min: b.Min, Max: b.Max, Rate: b.Rate}
		}
		s.Payroll = payroll.Settings{
			WorkingDaysPerMonth: p.WorkingDaysPerMonth,
			WorkingHoursPerDay:  p.WorkingHoursPerDay,
			OvertimeMultiplier:  p.OvertimeMultiplier,
			Currency:            p.Currency,
			PensionEnabled:      p.PensionEnabled,
			PensionPercentage:   p.PensionPercentage,
			PayeEnabled:         p.PayeEnabled,
			TaxBrackets:         brackets,
			TaxableBase:         payroll.TaxableBase(p.TaxableBase),
		}
		if s.Payroll.TaxableBase == "" {
			s.Payroll.TaxableBase = payroll.TaxableGross
		}
	}

	if r := sj.Reports; r != nil {
		s.Reports = attendance.ReportOptions{
			PaidHolidays:        r.PaidHolidays,
			CompensatedWeekends: r.CompensatedWeekends,
			IncludePayroll:      r.IncludePayroll,
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every rule the computation relies on.
func (s *Settings) Validate() error {
	wh := s.WorkingHours
	if _, ok := generic.ParseClock(wh.StartTime); !ok {
		return invalid("working_hours.start_time", fmt.Sprintf("%q is not HH:MM", wh.StartTime))
	}
	if _, ok := generic.ParseClock(wh.EndTime); !ok {
		return invalid("working_hours.end_time", fmt.Sprintf("%q is not HH:MM", wh.EndTime))
	}
	if wh.AllowedLunchMinutes < 0 {
		return invalid("working_hours.allowed_lunch_minutes", "must not be negative")
	}
	if wh.LateGraceMinutes < 0 {
		return invalid("working_hours.late_grace_minutes", "must not be negative")
	}

	ot := s.EffectiveOvertime()
	if !ot.NormalHoursPerWeek.IsPositive() {
		return invalid("overtime.normal_hours_per_week", "must be positive")
	}
	if !ot.AverageWorkDaysPerMonth.IsPositive() {
		return invalid("overtime.average_work_days_per_month", "must be positive")
	}
	if ot.OvertimeMultiplier.IsNegative() {
		return invalid("overtime.overtime_multiplier", "must not be negative")
	}
	if ot.HolidayMultiplier.IsNegative() {
		return invalid("overtime.holiday_multiplier", "must not be negative")
	}
	if !ot.RestDayPolicy.IsValid() {
		return invalid("overtime.rest_day_policy", fmt.Sprintf("unknown policy %q", ot.RestDayPolicy))
	}

	p := s.Payroll
	if p.WorkingDaysPerMonth.IsNegative() {
		return invalid("payroll.working_days_per_month", "must not be negative")
	}
	if p.PensionPercentage.IsNegative() || p.PensionPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return invalid("payroll.pension_percentage", "must be between 0 and 100")
	}
	if !p.TaxableBase.IsValid() {
		return invalid("payroll.taxable_base", fmt.Sprintf("unknown base %q", p.TaxableBase))
	}
	if err := payroll.ValidateBrackets(p.TaxBrackets); err != nil {
		return err
	}
	return nil
}

func invalid(field, msg string) error {
	return &generic.ValidationError{Field: field, Message: msg}
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// ToJSON converts settings back to their JSON representation.
func ToJSON(s *Settings) SettingsJSON {
	days := make([]int, len(s.WorkingHours.WorkingDays))
	for i, d := range s.WorkingHours.WorkingDays {
		days[i] = int(d)
	}
	brackets := make([]BracketJSON, len(s.Payroll.TaxBrackets))
	for i, b := range s.Payroll.TaxBrackets {
		brackets[i] = BracketJSON{Min: b.Min, Max: b.Max, Rate: b.Rate}
	}

	return SettingsJSON{
		WorkingHours: &WorkingHoursJSON{
			StartTime:           s.WorkingHours.StartTime,
			EndTime:             s.WorkingHours.EndTime,
			WorkingDays:         days,
			AllowedLunchMinutes: s.WorkingHours.AllowedLunchMinutes,
			LateGraceMinutes:    s.WorkingHours.LateGraceMinutes,
		},
		Overtime: &OvertimeJSON{
			NormalHoursPerWeek:      s.Overtime.NormalHoursPerWeek,
			AverageWorkDaysPerMonth: s.Overtime.AverageWorkDaysPerMonth,
			OvertimeMultiplier:      s.Overtime.OvertimeMultiplier,
			HolidayMultiplier:       s.Overtime.HolidayMultiplier,
			RestDayPolicy:           string(s.Overtime.RestDayPolicy),
		},
		Payroll: &PayrollJSON{
			WorkingDaysPerMonth: s.Payroll.WorkingDaysPerMonth,
			WorkingHoursPerDay:  s.Payroll.WorkingHoursPerDay,
			OvertimeMultiplier:  s.Payroll.OvertimeMultiplier,
			Currency:            s.Payroll.Currency,
			PensionEnabled:      s.Payroll.PensionEnabled,
			PensionPercentage:   s.Payroll.PensionPercentage,
			PayeEnabled:         s.Payroll.PayeEnabled,
			TaxableBase:         string(s.Payroll.TaxableBase),
			TaxBrackets:         brackets,
		},
		Reports: &ReportsJSON{
			PaidHolidays:        s.Reports.PaidHolidays,
			CompensatedWeekends: s.Reports.CompensatedWeekends,
			IncludePayroll:      s.Reports.IncludePayroll,
		},
	}
}

// MarshalSettings renders settings as a JSON document.
func MarshalSettings(s *Settings) (string, error) {
	b, err := json.Marshal(ToJSON(s))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
