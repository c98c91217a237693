// Package memory provides an in-memory implementation of every store
// interface the engine uses. It is meant for tests and local experiments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/reports"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	employees   map[generic.EmployeeID]generic.CompensationProfile
	attendance  map[attendanceKey]generic.AttendanceRecord
	holidays    []generic.Holiday
	settings    *factory.Settings
	adjustments map[reports.Key]payroll.Adjustments
	reports     map[reports.Key]reports.Report
	audit       []generic.AuditEntry

	// FailUpsert, when set, is returned by UpsertReport for matching keys.
	FailUpsert func(reports.Key) error
}

type attendanceKey struct {
	EmployeeID generic.EmployeeID
	Date       generic.TimePoint
}

func NewMemory() *Memory {
	return &Memory{
		employees:   make(map[generic.EmployeeID]generic.CompensationProfile),
		attendance:  make(map[attendanceKey]generic.AttendanceRecord),
		adjustments: make(map[reports.Key]payroll.Adjustments),
		reports:     make(map[reports.Key]reports.Report),
	}
}

// =============================================================================
// ROSTER
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, p generic.CompensationProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[p.EmployeeID] = p
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id generic.EmployeeID) (generic.CompensationProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.employees[id]
	if !ok {
		return generic.CompensationProfile{}, generic.ErrEmployeeNotFound
	}
	return p, nil
}

func (m *Memory) ListActiveEmployees(_ context.Context) ([]generic.CompensationProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.CompensationProfile
	for _, p := range m.employees {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (m *Memory) SaveAttendance(_ context.Context, rec generic.AttendanceRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance[attendanceKey{EmployeeID: rec.EmployeeID, Date: rec.Date}] = rec
	return nil
}

func (m *Memory) ListAttendance(_ context.Context, employeeID generic.EmployeeID, period generic.Period) ([]generic.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.AttendanceRecord
	for k, rec := range m.attendance {
		if k.EmployeeID == employeeID && period.Contains(k.Date) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// =============================================================================
// HOLIDAYS AND SETTINGS
// =============================================================================

func (m *Memory) AddHoliday(h generic.Holiday) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays = append(m.holidays, h)
}

func (m *Memory) ListHolidays(_ context.Context, period generic.Period) ([]generic.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.Holiday
	for _, h := range m.holidays {
		for _, day := range period.Days() {
			if h.Matches(day) {
				out = append(out, h)
				break
			}
		}
	}
	return out, nil
}

// SaveSettings stores already validated settings.
func (m *Memory) SaveSettings(_ context.Context, s *factory.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

func (m *Memory) LoadSettings(_ context.Context) (*factory.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return factory.DefaultSettings(), nil
	}
	return m.settings, nil
}

func (m *Memory) SaveAdjustments(_ context.Context, employeeID generic.EmployeeID, year int, month time.Month, adj payroll.Adjustments) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustments[reports.Key{EmployeeID: employeeID, Year: year, Month: month}] = adj
	return nil
}

func (m *Memory) GetAdjustments(_ context.Context, employeeID generic.EmployeeID, year int, month time.Month) (payroll.Adjustments, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adjustments[reports.Key{EmployeeID: employeeID, Year: year, Month: month}], nil
}

// =============================================================================
// REPORTS
// =============================================================================

func (m *Memory) UpsertReport(ctx context.Context, r reports.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailUpsert != nil {
		if err := m.FailUpsert(r.Key()); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.Key()] = copyReport(r)
	return nil
}

func (m *Memory) GetReport(_ context.Context, key reports.Key) (*reports.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[key]
	if !ok {
		return nil, nil
	}
	c := copyReport(r)
	return &c, nil
}

func (m *Memory) ListReports(_ context.Context, year int, month time.Month) ([]reports.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []reports.Report
	for k, r := range m.reports {
		if k.Year == year && k.Month == month {
			out = append(out, copyReport(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// copyReport detaches pointer fields from the caller.
func copyReport(r reports.Report) reports.Report {
	if r.Payroll != nil {
		agg := *r.Payroll
		r.Payroll = &agg
	}
	if r.SentAt != nil {
		t := *r.SentAt
		r.SentAt = &t
	}
	return r
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (m *Memory) Append(_ context.Context, entry generic.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) Query(_ context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.AuditEntry
	for _, e := range m.audit {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
