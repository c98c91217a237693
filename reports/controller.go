package reports

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// DefaultConcurrency bounds the number of employees processed at once in a batch.
const DefaultConcurrency = 4

// SystemActor is recorded in the audit log for unattended operations.
const SystemActor = "system"

// Controller runs the report lifecycle.
type Controller struct {
	Attendance  generic.AttendanceStore
	Roster      generic.RosterStore
	Holidays    generic.HolidayStore
	Settings    SettingsSource
	Adjustments AdjustmentSource // optional
	Reports     ReportStore
	Audit       generic.AuditLog // optional
	Dispatcher  Dispatcher

	Concurrency int
	Now         func() time.Time
	Log         *log.Entry

	locks sync.Map // Key -> *sync.Mutex
}

// Store is the storage a controller needs. Both store/sqlite and store/memory
// implement it.
type Store interface {
	generic.AttendanceStore
	generic.RosterStore
	generic.HolidayStore
	generic.AuditLog
	SettingsSource
	AdjustmentSource
	ReportStore
}

// NewController wires a controller to a single store.
func NewController(store Store, dispatcher Dispatcher) *Controller {
	return &Controller{
		Attendance:  store,
		Roster:      store,
		Holidays:    store,
		Settings:    store,
		Adjustments: store,
		Reports:     store,
		Audit:       store,
		Dispatcher:  dispatcher,
		Concurrency: DefaultConcurrency,
		Now:         time.Now,
		Log:         log.WithField("component", "reports"),
	}
}

func (c *Controller) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

func (c *Controller) logger() *log.Entry {
	if c.Log == nil {
		return log.WithField("component", "reports")
	}
	return c.Log
}

// lock serialises writes to one report key.
func (c *Controller) lock(key Key) func() {
	m, _ := c.locks.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// =============================================================================
// INPUTS
// =============================================================================

// monthInputs is everything loaded for one employee and month.
type monthInputs struct {
	profile  generic.CompensationProfile
	settings *factory.Settings
	holidays *generic.HolidaySet
	records  []generic.AttendanceRecord
}

func (c *Controller) load(ctx context.Context, employeeID generic.EmployeeID, year int, month time.Month) (*monthInputs, error) {
	if err := generic.ValidateMonth(year, month); err != nil {
		return nil, err
	}
	profile, err := c.Roster.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !profile.Qualifies() {
		return nil, fmt.Errorf("%w: %s: %s", generic.ErrNotPayrollEligible, employeeID, profile.SkipReason())
	}
	settings, err := c.Settings.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	period := generic.MonthPeriod(year, month)
	holidays, err := c.Holidays.ListHolidays(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	records, err := c.Attendance.ListAttendance(ctx, employeeID, period)
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	return &monthInputs{
		profile:  profile,
		settings: settings,
		holidays: generic.NewHolidaySet(holidays),
		records:  records,
	}, nil
}

func (c *Controller) adjustments(ctx context.Context, employeeID generic.EmployeeID, year int, month time.Month) (payroll.Adjustments, error) {
	if c.Adjustments == nil {
		return payroll.Adjustments{}, nil
	}
	return c.Adjustments.GetAdjustments(ctx, employeeID, year, month)
}

// =============================================================================
// GENERATE
// =============================================================================

// Generate builds the employee's report for the month and stores it as a
// draft, replacing any earlier report for the same key.
func (c *Controller) Generate(ctx context.Context, employeeID generic.EmployeeID, year int, month time.Month) (*Report, error) {
	in, err := c.load(ctx, employeeID, year, month)
	if err != nil {
		return nil, err
	}

	evaluator := in.settings.Evaluator(in.holidays)
	report := Report{
		EmployeeID: employeeID,
		Year:       year,
		Month:      month,
		Status:     StatusDraft,
		Data:       evaluator.BuildReport(employeeID, year, month, in.records, in.settings.Reports),
	}

	if in.settings.Reports.IncludePayroll {
		adj, err := c.adjustments(ctx, employeeID, year, month)
		if err != nil {
			return nil, fmt.Errorf("load adjustments: %w", err)
		}
		calc := payroll.NewCalculator(evaluator, in.settings.Payroll)
		agg, _, err := calc.Compute(in.profile, year, month, in.records, adj)
		if err != nil {
			return nil, err
		}
		report.Payroll = &agg
	}

	unlock := c.lock(report.Key())
	defer unlock()

	prev, err := c.Reports.GetReport(ctx, report.Key())
	if err != nil {
		return nil, fmt.Errorf("load previous report: %w", err)
	}
	action := generic.AuditReportGenerated
	payload := map[string]any{"payable_days": report.Data.PayableDays}
	if prev != nil {
		action = generic.AuditReportRegenerated
		report.SendCount = prev.SendCount
		report.SentAt = prev.SentAt
		payload["previous_status"] = string(prev.Status)
		payload["previous_generated_at"] = prev.GeneratedAt.Format(time.RFC3339)
	}
	report.GeneratedAt = c.now()

	if err := c.Reports.UpsertReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save report %s: %w", report.Key(), err)
	}

	c.audit(ctx, SystemActor, action, report, payload)
	c.logger().WithFields(log.Fields{
		"employee_id": employeeID,
		"period":      fmt.Sprintf("%04d-%02d", year, int(month)),
		"action":      action,
	}).Info("report generated")
	return &report, nil
}

// =============================================================================
// SEND
// =============================================================================

// Send dispatches an existing report. A failed dispatch leaves the report
// untouched and returns an error wrapping generic.ErrDispatchFailed.
func (c *Controller) Send(ctx context.Context, employeeID generic.EmployeeID, year int, month time.Month, actorID string) (*Report, error) {
	if err := generic.ValidateMonth(year, month); err != nil {
		return nil, err
	}
	key := Key{EmployeeID: employeeID, Year: year, Month: month}

	unlock := c.lock(key)
	defer unlock()

	report, err := c.Reports.GetReport(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", key, err)
	}
	if report == nil {
		return nil, fmt.Errorf("%w: %s", generic.ErrReportNotFound, key)
	}
	profile, err := c.Roster.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	logger := c.logger().WithFields(log.Fields{"employee_id": employeeID, "report": key.String()})

	if err := c.Dispatcher.Dispatch(ctx, *report, profile); err != nil {
		c.audit(ctx, actorID, generic.AuditReportSendFailed, *report, map[string]any{"error": err.Error()})
		logger.WithError(err).Warn("report dispatch failed")
		return nil, fmt.Errorf("%w: %s: %w", generic.ErrDispatchFailed, key, err)
	}

	action := generic.AuditReportSent
	if report.SendCount > 0 {
		action = generic.AuditReportResent
	}
	sentAt := c.now()
	report.Status = StatusSent
	report.SentAt = &sentAt
	report.SendCount++

	// The email is out: record it even if the caller gave up meanwhile.
	commitCtx := context.WithoutCancel(ctx)
	if err := c.Reports.UpsertReport(commitCtx, *report); err != nil {
		return nil, fmt.Errorf("save report %s: %w", key, err)
	}

	c.audit(commitCtx, actorID, action, *report, map[string]any{"send_count": report.SendCount})
	logger.WithField("send_count", report.SendCount).Info("report sent")
	return report, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns a stored report.
func (c *Controller) Get(ctx context.Context, key Key) (*Report, error) {
	report, err := c.Reports.GetReport(ctx, key)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("%w: %s", generic.ErrReportNotFound, key)
	}
	return report, nil
}

// PreviewPayroll computes the payroll aggregate without storing anything.
func (c *Controller) PreviewPayroll(ctx context.Context, employeeID generic.EmployeeID, year int, month time.Month) (*payroll.Aggregate, error) {
	in, err := c.load(ctx, employeeID, year, month)
	if err != nil {
		return nil, err
	}
	adj, err := c.adjustments(ctx, employeeID, year, month)
	if err != nil {
		return nil, fmt.Errorf("load adjustments: %w", err)
	}
	agg, _, err := in.settings.Calculator(in.holidays).Compute(in.profile, year, month, in.records, adj)
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// OvertimeRows evaluates late and overtime for every active employee over an
// arbitrary period. Employees that do not qualify are left out.
func (c *Controller) OvertimeRows(ctx context.Context, period generic.Period) ([]attendance.EmployeeTotals, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	settings, err := c.Settings.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	holidays, err := c.Holidays.ListHolidays(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	profiles, err := c.Roster.ListActiveEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	var records []generic.AttendanceRecord
	for _, p := range profiles {
		if !p.Qualifies() {
			continue
		}
		recs, err := c.Attendance.ListAttendance(ctx, p.EmployeeID, period)
		if err != nil {
			return nil, fmt.Errorf("load attendance for %s: %w", p.EmployeeID, err)
		}
		records = append(records, recs...)
	}

	return settings.Evaluator(generic.NewHolidaySet(holidays)).Evaluate(profiles, records, period), nil
}

// =============================================================================
// AUDIT
// =============================================================================

// audit appends an entry after the report write has committed. An audit
// failure is logged and does not undo the write.
func (c *Controller) audit(ctx context.Context, actorID string, action generic.AuditAction, r Report, payload map[string]any) {
	if c.Audit == nil {
		return
	}
	if actorID == "" {
		actorID = SystemActor
	}
	entry := generic.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  c.now(),
		ActorID:    actorID,
		Action:     action,
		EmployeeID: r.EmployeeID,
		Year:       r.Year,
		Month:      r.Month,
		Payload:    payload,
	}
	if err := c.Audit.Append(context.WithoutCancel(ctx), entry); err != nil {
		c.logger().WithError(err).WithField("action", action).Error("failed to append audit entry")
	}
}
