package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// SETTINGS (reports.SettingsSource interface)
// =============================================================================

// SaveSettings validates and stores the settings document.
func (s *Store) SaveSettings(ctx context.Context, settings *factory.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	doc, err := factory.MarshalSettings(settings)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO settings (id, config_json, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, doc, formatTime(time.Now()))
	return err
}

// LoadSettings returns the stored settings, or the defaults when none were
// saved yet.
func (s *Store) LoadSettings(ctx context.Context) (*factory.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT config_json FROM settings WHERE id = 1").Scan(&doc)
	if err == sql.ErrNoRows {
		return factory.DefaultSettings(), nil
	}
	if err != nil {
		return nil, err
	}
	return factory.ParseSettings(doc)
}

// =============================================================================
// ADJUSTMENTS (reports.AdjustmentSource interface)
// =============================================================================

// SaveAdjustments stores the bonus and owing of one employee for one month.
func (s *Store) SaveAdjustments(ctx context.Context, employeeID generic.EmployeeID, year int, month time.Month, adj payroll.Adjustments) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO adjustments (employee_id, year, month, bonus, owing, note, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, year, month) DO UPDATE SET
			bonus = excluded.bonus,
			owing = excluded.owing,
			note = excluded.note,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		employeeID, year, int(month), adj.Bonus, adj.Owing, nullString(adj.Note), formatTime(time.Now()),
	)
	return err
}

// GetAdjustments returns zero adjustments when none were recorded.
func (s *Store) GetAdjustments(ctx context.Context, employeeID generic.EmployeeID, year int, month time.Month) (payroll.Adjustments, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var adj payroll.Adjustments
	var note sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT bonus, owing, note FROM adjustments WHERE employee_id = ? AND year = ? AND month = ?",
		employeeID, year, int(month),
	).Scan(&adj.Bonus, &adj.Owing, &note)
	if err == sql.ErrNoRows {
		return payroll.Adjustments{}, nil
	}
	if err != nil {
		return payroll.Adjustments{}, err
	}
	adj.Note = note.String
	return adj, nil
}
