/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface the report controller needs
  (attendance, roster, holidays, settings, adjustments, reports, audit log)
  plus the batch run history used by the scheduler.

INTERFACES IMPLEMENTED:
  generic.AttendanceStore:  Attendance records, unique per (employee, date)
  generic.RosterStore:      Employees and their compensation profiles
  generic.HolidayStore:     Fixed and recurring holidays
  generic.AuditLog:         Append-only audit entries
  reports.ReportStore:      Reports and their payroll aggregates
  reports.SettingsSource:   The JSON settings document
  reports.AdjustmentSource: Monthly bonuses and owings

KEY TABLES:
  employees:   Compensation profiles
  attendance:  One row per (employee_id, date); saves are upserts
  holidays:    Company holidays
  settings:    Single-row JSON document
  adjustments: Bonus and owing per (employee_id, year, month)
  reports:     Report status and attendance data per (employee_id, year, month)
  payroll:     Payroll aggregate per report, written in the same transaction
  audit_log:   Append-only; no UPDATE or DELETE statements
  batch_runs:  Scheduler and manual batch history

MONEY:
  Decimals are stored as TEXT and scanned back through decimal.Decimal's
  sql.Scanner implementation, so no value ever passes through float64.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  controller := reports.NewController(store, dispatcher)

SEE ALSO:
  - generic/store.go: Collaborator interfaces
  - reports/report.go: Report interfaces
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/payroll-engine/reports"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ reports.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every pooled connection to ":memory:" would see its own empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		monthly_salary TEXT NOT NULL DEFAULT '0',
		role TEXT NOT NULL DEFAULT 'employee',
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attendance (
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		check_in TEXT,
		check_out TEXT,
		lunch_break_minutes INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		notes TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_date
		ON attendance(date);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE(date, name)
	);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		config_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS adjustments (
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		bonus TEXT NOT NULL DEFAULT '0',
		owing TEXT NOT NULL DEFAULT '0',
		note TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, year, month)
	);

	CREATE TABLE IF NOT EXISTS reports (
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		status TEXT NOT NULL,
		data_json TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		sent_at TEXT,
		send_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (employee_id, year, month)
	);

	CREATE INDEX IF NOT EXISTS idx_reports_period
		ON reports(year, month);

	CREATE TABLE IF NOT EXISTS payroll (
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		currency TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		overtime_pay TEXT NOT NULL,
		overtime_hours TEXT NOT NULL,
		bonus TEXT NOT NULL,
		gross_salary TEXT NOT NULL,
		late_minutes INTEGER NOT NULL,
		late_deduction TEXT NOT NULL,
		off_days INTEGER NOT NULL,
		off_deduction TEXT NOT NULL,
		owing_deduction TEXT NOT NULL,
		pension_deduction TEXT NOT NULL,
		taxable_income TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		total_deductions TEXT NOT NULL,
		net_salary TEXT NOT NULL,
		PRIMARY KEY (employee_id, year, month),
		FOREIGN KEY (employee_id, year, month)
			REFERENCES reports(employee_id, year, month) ON DELETE CASCADE
	);

	-- Audit log (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		employee_id TEXT,
		year INTEGER,
		month INTEGER,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_employee
		ON audit_log(employee_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_action
		ON audit_log(action);

	CREATE TABLE IF NOT EXISTS batch_runs (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		status TEXT NOT NULL,
		triggered_by TEXT NOT NULL,
		succeeded INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batch_runs_period
		ON batch_runs(operation, year, month, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes all data (for testing/demo purposes).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payroll", "reports", "adjustments", "attendance", "holidays",
		"employees", "settings", "audit_log", "batch_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func scanNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
