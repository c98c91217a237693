/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Data errors - Malformed clock values, breaks longer than the shift
  2. Validation errors - Settings and tax brackets rejected at save time
  3. Lifecycle errors - Missing reports, failed dispatch, ineligible employees
  4. Store errors - Missing employees and other lookups

USAGE:
  Domain packages can wrap generic errors:

    if errors.Is(err, generic.ErrNotPayrollEligible) {
        // record a skip, not a failure
    }

SEE ALSO:
  - clock.go: Produces MalformedTimeError and BreakExceedsWorkError
  - payroll/tax.go: Wraps ErrInvalidTaxBrackets
  - reports/controller.go: Classifies batch outcomes with these errors
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMalformedTime is returned when a clock string is not "HH:MM".
	ErrMalformedTime = errors.New("malformed time")

	// ErrBreakExceedsWork is returned when the lunch break is longer than the
	// span between check-in and check-out.
	ErrBreakExceedsWork = errors.New("break exceeds work duration")

	// ErrInvalidSettings is returned when settings fail save-time validation.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrInvalidTaxBrackets is returned when the tax ladder is malformed.
	ErrInvalidTaxBrackets = errors.New("invalid tax brackets")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrNotPayrollEligible is returned for employees without salary or with a
	// role other than employee. Batch operations record these as skips.
	ErrNotPayrollEligible = errors.New("employee not payroll eligible")

	// ErrReportNotFound is returned when sending a report that was never generated.
	ErrReportNotFound = errors.New("report not found")

	// ErrDispatchFailed is returned when the dispatch collaborator fails.
	// The report keeps its previous status.
	ErrDispatchFailed = errors.New("report dispatch failed")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInvalidRecord is returned when an attendance record fails validation.
	ErrInvalidRecord = errors.New("invalid attendance record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MalformedTimeError reports the clock value that could not be parsed.
type MalformedTimeError struct {
	Value string
}

func (e *MalformedTimeError) Error() string {
	return fmt.Sprintf("malformed time %q: expected HH:MM", e.Value)
}

func (e *MalformedTimeError) Unwrap() error {
	return ErrMalformedTime
}

// BreakExceedsWorkError provides details about a break longer than the shift.
type BreakExceedsWorkError struct {
	SpanMinutes  int
	BreakMinutes int
}

func (e *BreakExceedsWorkError) Error() string {
	return fmt.Sprintf("break of %d minutes exceeds work span of %d minutes",
		e.BreakMinutes, e.SpanMinutes)
}

func (e *BreakExceedsWorkError) Unwrap() error {
	return ErrBreakExceedsWork
}

// ValidationError names the settings field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid settings: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSettings
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMalformedTime) ||
		errors.Is(err, ErrBreakExceedsWork) ||
		errors.Is(err, ErrInvalidSettings) ||
		errors.Is(err, ErrInvalidTaxBrackets) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidRecord)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrReportNotFound)
}

// IsSkippable returns true if a batch should record the error as a skip
// rather than a failure.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrNotPayrollEligible) ||
		errors.Is(err, ErrReportNotFound)
}
