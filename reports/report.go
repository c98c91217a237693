/*
Package reports manages the lifecycle of monthly attendance reports.

PURPOSE:
  Generates a draft report per employee and month, dispatches it, and runs
  both operations across the roster as batches. Each employee's report and
  payroll aggregate are written atomically; one employee's failure never
  aborts the rest of a batch.

LIFECYCLE:
  (none) --Generate--> draft --Send--> sent --Send--> sent (re-dispatch)
                         ^                |
                         +---Generate-----+   (regeneration, audited)

  Reports are keyed by (employee, year, month). Generate is an upsert on
  that key and always stamps a new GeneratedAt. Send only changes the
  status after the dispatcher succeeded.

COLLABORATORS:
  generic.AttendanceStore, generic.RosterStore, generic.HolidayStore,
  generic.AuditLog, plus the interfaces declared in this file.

SEE ALSO:
  - controller.go: Generate and Send
  - batch.go: Batch Generate and Batch Send
  - store/sqlite/reports.go: Persistence
  - mailer/mailer.go: Dispatcher implementation
*/
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// Status is the lifecycle state of a report.
type Status string

const (
	StatusDraft Status = "draft"
	StatusSent  Status = "sent"
)

// Key identifies a report.
type Key struct {
	EmployeeID generic.EmployeeID
	Year       int
	Month      time.Month
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%04d-%02d", k.EmployeeID, k.Year, int(k.Month))
}

// Report is one employee's monthly attendance report.
type Report struct {
	EmployeeID  generic.EmployeeID
	Year        int
	Month       time.Month
	Status      Status
	Data        attendance.ReportData
	Payroll     *payroll.Aggregate // nil when payroll is not included
	GeneratedAt time.Time
	SentAt      *time.Time
	SendCount   int
}

func (r Report) Key() Key {
	return Key{EmployeeID: r.EmployeeID, Year: r.Year, Month: r.Month}
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// ReportStore persists reports.
type ReportStore interface {
	// UpsertReport writes the report and its payroll aggregate atomically,
	// replacing any report with the same key.
	UpsertReport(ctx context.Context, r Report) error

	// GetReport returns nil, nil when no report exists for the key.
	GetReport(ctx context.Context, key Key) (*Report, error)

	// ListReports returns the reports of a month ordered by employee.
	ListReports(ctx context.Context, year int, month time.Month) ([]Report, error)
}

// SettingsSource provides the current settings.
type SettingsSource interface {
	LoadSettings(ctx context.Context) (*factory.Settings, error)
}

// AdjustmentSource provides bonuses and owings. Missing adjustments are zero.
type AdjustmentSource interface {
	GetAdjustments(ctx context.Context, employeeID generic.EmployeeID, year int, month time.Month) (payroll.Adjustments, error)
}

// Dispatcher delivers a report to its employee.
type Dispatcher interface {
	Dispatch(ctx context.Context, r Report, employee generic.CompensationProfile) error
}
