/*
Package generic provides the shared building blocks of the payroll engine.

PURPOSE:
  This package contains the domain-agnostic types used by every other
  package: quantities with units, day-granular time points, periods,
  attendance records, compensation profiles, holidays and the clock
  arithmetic used to turn "HH:MM" strings into worked minutes.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 8 hours, 20 minutes, 1500.00 currency)
  - AttendanceRecord: One employee's attendance on one calendar date
  - CompensationProfile: What payroll needs to know about an employee
  - EmployeeID: Type-safe identifier

DESIGN PRINCIPLES:
  1. Precision: Money and hours use decimal.Decimal, never float64
  2. Data, not globals: settings travel as explicit parameters
  3. No silent coercion: missing or malformed times are reported, not zeroed

USAGE:
  rec := generic.AttendanceRecord{
      EmployeeID: "emp-001",
      Date:       generic.NewTimePoint(2025, time.March, 3),
      CheckIn:    "08:20",
      CheckOut:   "17:00",
      Status:     generic.StatusPresent,
  }

SEE ALSO:
  - clock.go: Clock parsing and elapsed time
  - time.go: TimePoint and holiday calendar
  - store.go: Collaborator interfaces
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const (
	UnitHours   Unit = "hours"
	UnitMinutes Unit = "minutes"
)

func NewAmountFromInt(value int, unit Unit) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Unit: unit}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) IsZero() bool { return a.Value.IsZero() }

// Hours converts a minutes amount into hours. Other units are returned unchanged.
func (a Amount) Hours() Amount {
	if a.Unit != UnitMinutes {
		return a
	}
	return Amount{Value: a.Value.Div(decimal.NewFromInt(60)), Unit: UnitHours}
}

// =============================================================================
// CURRENCY ROUNDING
// =============================================================================

// CurrencyPlaces is the number of decimals used for currency-facing output.
const CurrencyPlaces = 2

// RoundCurrency rounds a money value half away from zero to CurrencyPlaces.
// Intermediate values are kept at full precision; only outputs are rounded.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// MaxDecimal returns the larger of a and b.
func MaxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

// =============================================================================
// ATTENDANCE RECORD
// =============================================================================

// AttendanceStatus is the administrative status of an attendance day.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusRemote  AttendanceStatus = "remote"
	StatusLeave   AttendanceStatus = "leave"
	StatusSick    AttendanceStatus = "sick"
	StatusAbsent  AttendanceStatus = "absent"
	StatusOff     AttendanceStatus = "off"
	StatusHoliday AttendanceStatus = "holiday"
)

func (s AttendanceStatus) IsValid() bool {
	switch s {
	case StatusPresent, StatusRemote, StatusLeave, StatusSick, StatusAbsent, StatusOff, StatusHoliday:
		return true
	}
	return false
}

// IsPresence reports whether the status counts as attending work.
func (s AttendanceStatus) IsPresence() bool {
	return s == StatusPresent || s == StatusRemote
}

// AttendanceRecord is one employee's attendance on one date.
// At most one record exists per (EmployeeID, Date); stores upsert on that key.
// Empty CheckIn or CheckOut means the time was not captured.
type AttendanceRecord struct {
	EmployeeID        EmployeeID
	Date              TimePoint
	CheckIn           string // "HH:MM"
	CheckOut          string // "HH:MM"
	LunchBreakMinutes int
	Status            AttendanceStatus
	Notes             string
}

// HasTimes reports whether both check-in and check-out were captured.
func (r AttendanceRecord) HasTimes() bool {
	return r.CheckIn != "" && r.CheckOut != ""
}

// Validate checks a record before it is stored. Times may be missing but,
// when present, must parse.
func (r AttendanceRecord) Validate() error {
	switch {
	case r.EmployeeID == "":
		return fmt.Errorf("%w: employee id is required", ErrInvalidRecord)
	case r.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidRecord)
	case !r.Status.IsValid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	case r.LunchBreakMinutes < 0:
		return fmt.Errorf("%w: lunch break must not be negative", ErrInvalidRecord)
	}
	for _, v := range []string{r.CheckIn, r.CheckOut} {
		if v == "" {
			continue
		}
		if _, ok := ParseClock(v); !ok {
			return fmt.Errorf("%w: %w", ErrInvalidRecord, &MalformedTimeError{Value: v})
		}
	}
	return nil
}

// =============================================================================
// COMPENSATION PROFILE
// =============================================================================

// RoleEmployee is the only role that qualifies for payroll computation.
const RoleEmployee = "employee"

// CompensationProfile is the payroll view of an employee.
// A zero MonthlySalary means no salary is configured.
type CompensationProfile struct {
	EmployeeID    EmployeeID
	Name          string
	Email         string
	MonthlySalary decimal.Decimal
	Role          string
	Active        bool
}

// Qualifies reports whether the employee takes part in payroll computation.
func (p CompensationProfile) Qualifies() bool {
	return p.Role == RoleEmployee && p.MonthlySalary.IsPositive()
}

// SkipReason explains why a profile does not qualify. Empty when it does.
func (p CompensationProfile) SkipReason() string {
	switch {
	case p.Role != RoleEmployee:
		return fmt.Sprintf("role %q is not payroll eligible", p.Role)
	case !p.MonthlySalary.IsPositive():
		return "no monthly salary configured"
	}
	return ""
}
