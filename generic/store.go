/*
store.go - Collaborator interfaces between the computation core and storage

PURPOSE:
  Defines what the engine needs from the outside world: attendance records,
  the employee roster, holidays and an append-only audit log. The computation
  core is pure; everything it reads arrives through these interfaces and is
  passed down as plain data.

KEY INTERFACES:
  AttendanceStore: Attendance records per employee and date range
  RosterStore:     Active employees and their compensation profiles
  HolidayStore:    Holidays in a date range
  AuditLog:        Who did what when (append-only)

UNIQUENESS:
  Attendance is unique per (employee, date). SaveAttendance is an upsert on
  that key; a second save for the same day is an administrative correction.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - store/memory/memory.go: In-memory for testing

SEE ALSO:
  - reports/controller.go: Consumes these interfaces
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// COLLABORATOR STORES
// =============================================================================

// AttendanceStore persists attendance records.
type AttendanceStore interface {
	// SaveAttendance inserts or replaces the record for (EmployeeID, Date).
	SaveAttendance(ctx context.Context, rec AttendanceRecord) error

	// ListAttendance returns the employee's records in period, ordered by date.
	ListAttendance(ctx context.Context, employeeID EmployeeID, period Period) ([]AttendanceRecord, error)
}

// RosterStore provides employee compensation profiles.
type RosterStore interface {
	// ListActiveEmployees returns active employees ordered by ID.
	ListActiveEmployees(ctx context.Context) ([]CompensationProfile, error)

	// GetEmployee returns ErrEmployeeNotFound when the employee doesn't exist.
	GetEmployee(ctx context.Context, id EmployeeID) (CompensationProfile, error)
}

// HolidayStore provides holidays.
type HolidayStore interface {
	// ListHolidays returns holidays that fall in period, recurring ones included.
	ListHolidays(ctx context.Context, period Period) ([]Holiday, error)
}

// =============================================================================
// AUDIT LOG - Tracks who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	ActorID    string // who performed the action
	Action     AuditAction
	EmployeeID EmployeeID
	Year       int
	Month      time.Month
	Payload    map[string]any // action-specific data
}

type AuditAction string

const (
	AuditReportGenerated   AuditAction = "report_generated"
	AuditReportRegenerated AuditAction = "report_regenerated"
	AuditReportSent        AuditAction = "report_sent"
	AuditReportResent      AuditAction = "report_resent"
	AuditReportSendFailed  AuditAction = "report_send_failed"
	AuditSettingsChanged   AuditAction = "settings_changed"
	AuditAttendanceChanged AuditAction = "attendance_changed"
)

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	EmployeeID *EmployeeID
	ActorID    *string
	Actions    []AuditAction
	From       *time.Time
	To         *time.Time
}

// Matches reports whether entry passes the filter.
func (f AuditFilter) Matches(entry AuditEntry) bool {
	if f.EmployeeID != nil && entry.EmployeeID != *f.EmployeeID {
		return false
	}
	if f.ActorID != nil && entry.ActorID != *f.ActorID {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == entry.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && entry.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && entry.Timestamp.After(*f.To) {
		return false
	}
	return true
}
