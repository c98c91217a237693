package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// ROSTER (generic.RosterStore interface)
// =============================================================================

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, p generic.CompensationProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, email, monthly_salary, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			monthly_salary = excluded.monthly_salary,
			role = excluded.role,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, query,
		p.EmployeeID, p.Name, p.Email, p.MonthlySalary, p.Role, p.Active, now, now,
	)
	return err
}

// GetEmployee returns generic.ErrEmployeeNotFound when the employee doesn't exist.
func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (generic.CompensationProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, monthly_salary, role, active FROM employees WHERE id = ?", id)
	p, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return generic.CompensationProfile{}, fmt.Errorf("%w: %s", generic.ErrEmployeeNotFound, id)
	}
	return p, err
}

// ListActiveEmployees returns active employees ordered by ID.
func (s *Store) ListActiveEmployees(ctx context.Context) ([]generic.CompensationProfile, error) {
	return s.queryEmployees(ctx,
		"SELECT id, name, email, monthly_salary, role, active FROM employees WHERE active = 1 ORDER BY id")
}

// ListEmployees returns every employee, inactive ones included.
func (s *Store) ListEmployees(ctx context.Context) ([]generic.CompensationProfile, error) {
	return s.queryEmployees(ctx,
		"SELECT id, name, email, monthly_salary, role, active FROM employees ORDER BY id")
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]generic.CompensationProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []generic.CompensationProfile
	for rows.Next() {
		p, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, p)
	}
	return employees, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (generic.CompensationProfile, error) {
	var p generic.CompensationProfile
	var email sql.NullString
	err := row.Scan(&p.EmployeeID, &p.Name, &email, &p.MonthlySalary, &p.Role, &p.Active)
	p.Email = email.String
	return p, err
}

// =============================================================================
// ATTENDANCE (generic.AttendanceStore interface)
// =============================================================================

// SaveAttendance inserts or replaces the record for (employee, date).
func (s *Store) SaveAttendance(ctx context.Context, rec generic.AttendanceRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO attendance (employee_id, date, check_in, check_out, lunch_break_minutes, status, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, date) DO UPDATE SET
			check_in = excluded.check_in,
			check_out = excluded.check_out,
			lunch_break_minutes = excluded.lunch_break_minutes,
			status = excluded.status,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.EmployeeID,
		rec.Date.String(),
		nullString(rec.CheckIn),
		nullString(rec.CheckOut),
		rec.LunchBreakMinutes,
		rec.Status,
		nullString(rec.Notes),
		formatTime(time.Now()),
	)
	return err
}

// ListAttendance returns the employee's records in period, ordered by date.
func (s *Store) ListAttendance(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) ([]generic.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT employee_id, date, check_in, check_out, lunch_break_minutes, status, notes
		FROM attendance
		WHERE employee_id = ? AND date BETWEEN ? AND ?
		ORDER BY date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, employeeID, period.Start.String(), period.End.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []generic.AttendanceRecord
	for rows.Next() {
		var rec generic.AttendanceRecord
		var date string
		var checkIn, checkOut, notes sql.NullString
		if err := rows.Scan(&rec.EmployeeID, &date, &checkIn, &checkOut,
			&rec.LunchBreakMinutes, &rec.Status, &notes); err != nil {
			return nil, err
		}
		rec.Date, err = generic.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("attendance %s: %w", date, err)
		}
		rec.CheckIn = checkIn.String
		rec.CheckOut = checkOut.String
		rec.Notes = notes.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// HOLIDAYS (generic.HolidayStore interface)
// =============================================================================

// SaveHoliday inserts a holiday, or updates it when (date, name) exists.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, date, name, recurring, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date, name) DO UPDATE SET
			recurring = excluded.recurring
	`

	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.Date.String(), h.Name, h.Recurring, formatTime(time.Now()),
	)
	return err
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// ListHolidays returns holidays falling in period. Recurring holidays match
// on month and day in any year.
func (s *Store) ListHolidays(ctx context.Context, period generic.Period) ([]generic.Holiday, error) {
	all, err := s.queryHolidays(ctx, `
		SELECT id, date, name, recurring FROM holidays
		WHERE recurring = 1 OR date BETWEEN ? AND ?
		ORDER BY date ASC
	`, period.Start.String(), period.End.String())
	if err != nil {
		return nil, err
	}

	var holidays []generic.Holiday
	for _, h := range all {
		if !h.Recurring {
			holidays = append(holidays, h)
			continue
		}
		for _, day := range period.Days() {
			if h.Matches(day) {
				holidays = append(holidays, h)
				break
			}
		}
	}
	return holidays, nil
}

// GetAllHolidays returns all holidays (for admin UI).
func (s *Store) GetAllHolidays(ctx context.Context) ([]generic.Holiday, error) {
	return s.queryHolidays(ctx, "SELECT id, date, name, recurring FROM holidays ORDER BY date ASC")
}

func (s *Store) queryHolidays(ctx context.Context, query string, args ...any) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var h generic.Holiday
		var date string
		if err := rows.Scan(&h.ID, &date, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		h.Date, err = generic.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("holiday %s: %w", h.ID, err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}
