package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/reports"
)

// =============================================================================
// REPORT STORE (reports.ReportStore interface)
// =============================================================================

// UpsertReport writes the report row and its payroll aggregate in one
// transaction. A report without payroll removes any previous aggregate.
func (s *Store) UpsertReport(ctx context.Context, r reports.Report) error {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("failed to encode report data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (employee_id, year, month, status, data_json, generated_at, sent_at, send_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, year, month) DO UPDATE SET
			status = excluded.status,
			data_json = excluded.data_json,
			generated_at = excluded.generated_at,
			sent_at = excluded.sent_at,
			send_count = excluded.send_count
	`,
		r.EmployeeID, r.Year, int(r.Month), r.Status, string(data),
		formatTime(r.GeneratedAt), nullTime(r.SentAt), r.SendCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"DELETE FROM payroll WHERE employee_id = ? AND year = ? AND month = ?",
		r.EmployeeID, r.Year, int(r.Month),
	)
	if err != nil {
		return fmt.Errorf("failed to clear payroll: %w", err)
	}

	if p := r.Payroll; p != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payroll (employee_id, year, month, currency, base_salary, overtime_pay,
				overtime_hours, bonus, gross_salary, late_minutes, late_deduction, off_days,
				off_deduction, owing_deduction, pension_deduction, taxable_income, tax_amount,
				total_deductions, net_salary)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.EmployeeID, r.Year, int(r.Month), p.Currency, p.BaseSalary, p.OvertimePay,
			p.OvertimeHours, p.Bonus, p.GrossSalary, p.LateMinutes, p.LateDeduction, p.OffDays,
			p.OffDeduction, p.OwingDeduction, p.PensionDeduction, p.TaxableIncome, p.TaxAmount,
			p.TotalDeductions, p.NetSalary,
		)
		if err != nil {
			return fmt.Errorf("failed to save payroll: %w", err)
		}
	}

	return tx.Commit()
}

const reportColumns = `
	r.employee_id, r.year, r.month, r.status, r.data_json, r.generated_at, r.sent_at, r.send_count,
	p.currency, p.base_salary, p.overtime_pay, p.overtime_hours, p.bonus, p.gross_salary,
	p.late_minutes, p.late_deduction, p.off_days, p.off_deduction, p.owing_deduction,
	p.pension_deduction, p.taxable_income, p.tax_amount, p.total_deductions, p.net_salary
	FROM reports r
	LEFT JOIN payroll p
		ON p.employee_id = r.employee_id AND p.year = r.year AND p.month = r.month
`

// GetReport returns nil, nil when no report exists for the key.
func (s *Store) GetReport(ctx context.Context, key reports.Key) (*reports.Report, error) {
	list, err := s.queryReports(ctx,
		"SELECT "+reportColumns+" WHERE r.employee_id = ? AND r.year = ? AND r.month = ?",
		key.EmployeeID, key.Year, int(key.Month),
	)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListReports returns the reports of a month ordered by employee.
func (s *Store) ListReports(ctx context.Context, year int, month time.Month) ([]reports.Report, error) {
	return s.queryReports(ctx,
		"SELECT "+reportColumns+" WHERE r.year = ? AND r.month = ? ORDER BY r.employee_id",
		year, int(month),
	)
}

func (s *Store) queryReports(ctx context.Context, query string, args ...any) ([]reports.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []reports.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

// nullPayroll receives the LEFT JOINed payroll columns.
type nullPayroll struct {
	currency                                          sql.NullString
	base, overtimePay, overtimeHours, bonus, gross    sql.NullString
	lateMinutes, offDays                              sql.NullInt64
	lateDeduction, offDeduction, owing, pension       sql.NullString
	taxableIncome, taxAmount, totalDeductions, netPay sql.NullString
}

func scanReport(rows *sql.Rows) (reports.Report, error) {
	var r reports.Report
	var month int
	var data, generatedAt string
	var sentAt sql.NullString
	var p nullPayroll

	if err := rows.Scan(
		&r.EmployeeID, &r.Year, &month, &r.Status, &data, &generatedAt, &sentAt, &r.SendCount,
		&p.currency, &p.base, &p.overtimePay, &p.overtimeHours, &p.bonus, &p.gross,
		&p.lateMinutes, &p.lateDeduction, &p.offDays, &p.offDeduction, &p.owing,
		&p.pension, &p.taxableIncome, &p.taxAmount, &p.totalDeductions, &p.netPay,
	); err != nil {
		return r, err
	}

	r.Month = time.Month(month)
	r.GeneratedAt = parseTime(generatedAt)
	r.SentAt = scanNullTime(sentAt)
	if err := json.Unmarshal([]byte(data), &r.Data); err != nil {
		return r, fmt.Errorf("failed to decode report data: %w", err)
	}

	if p.currency.Valid {
		r.Payroll = &payroll.Aggregate{
			EmployeeID:       r.EmployeeID,
			Year:             r.Year,
			Month:            r.Month,
			Currency:         p.currency.String,
			BaseSalary:       generic.MustParseDecimal(p.base.String),
			OvertimePay:      generic.MustParseDecimal(p.overtimePay.String),
			OvertimeHours:    generic.MustParseDecimal(p.overtimeHours.String),
			Bonus:            generic.MustParseDecimal(p.bonus.String),
			GrossSalary:      generic.MustParseDecimal(p.gross.String),
			LateMinutes:      int(p.lateMinutes.Int64),
			LateDeduction:    generic.MustParseDecimal(p.lateDeduction.String),
			OffDays:          int(p.offDays.Int64),
			OffDeduction:     generic.MustParseDecimal(p.offDeduction.String),
			OwingDeduction:   generic.MustParseDecimal(p.owing.String),
			PensionDeduction: generic.MustParseDecimal(p.pension.String),
			TaxableIncome:    generic.MustParseDecimal(p.taxableIncome.String),
			TaxAmount:        generic.MustParseDecimal(p.taxAmount.String),
			TotalDeductions:  generic.MustParseDecimal(p.totalDeductions.String),
			NetSalary:        generic.MustParseDecimal(p.netPay.String),
		}
	}
	return r, nil
}

// =============================================================================
// AUDIT LOG (generic.AuditLog interface)
// =============================================================================

// Append adds an audit entry. Entries are never updated or deleted.
func (s *Store) Append(ctx context.Context, entry generic.AuditEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, employee_id, year, month, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID, formatTime(entry.Timestamp), entry.ActorID, entry.Action,
		nullString(string(entry.EmployeeID)), entry.Year, int(entry.Month), string(payload),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("audit entry %s already exists", entry.ID)
	}
	return err
}

// Query returns audit entries matching filter, oldest first.
func (s *Store) Query(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	var where []string
	var args []any
	if filter.EmployeeID != nil {
		where = append(where, "employee_id = ?")
		args = append(args, *filter.EmployeeID)
	}
	if filter.ActorID != nil {
		where = append(where, "actor_id = ?")
		args = append(args, *filter.ActorID)
	}
	if len(filter.Actions) > 0 {
		marks := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			marks[i] = "?"
			args = append(args, a)
		}
		where = append(where, "action IN ("+strings.Join(marks, ", ")+")")
	}
	if filter.From != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, formatTime(*filter.To))
	}

	query := "SELECT id, timestamp, actor_id, action, employee_id, year, month, payload_json FROM audit_log"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp ASC, rowid ASC"

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var e generic.AuditEntry
		var ts string
		var employeeID, payload sql.NullString
		var year, month sql.NullInt64
		if err := rows.Scan(&e.ID, &ts, &e.ActorID, &e.Action, &employeeID, &year, &month, &payload); err != nil {
			return nil, err
		}
		e.Timestamp = parseTime(ts)
		e.EmployeeID = generic.EmployeeID(employeeID.String)
		e.Year = int(year.Int64)
		e.Month = time.Month(month.Int64)
		if payload.Valid && payload.String != "" && payload.String != "null" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode audit payload: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
