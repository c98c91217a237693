package reports_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/reports"
	"github.com/warp/payroll-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var clockStart = time.Date(2025, time.April, 2, 9, 0, 0, 0, time.UTC)

type fakeDispatcher struct {
	mu       sync.Mutex
	sent     []reports.Key
	failFor  map[generic.EmployeeID]error
	panicFor generic.EmployeeID
}

func (d *fakeDispatcher) Dispatch(_ context.Context, r reports.Report, employee generic.CompensationProfile) error {
	if employee.EmployeeID == d.panicFor {
		panic("dispatcher exploded")
	}
	if err := d.failFor[employee.EmployeeID]; err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, r.Key())
	return nil
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type fixture struct {
	store      *memory.Memory
	dispatcher *fakeDispatcher
	controller *reports.Controller
	clock      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      memory.NewMemory(),
		dispatcher: &fakeDispatcher{failFor: map[generic.EmployeeID]error{}},
		clock:      clockStart,
	}
	f.controller = reports.NewController(f.store, f.dispatcher)
	f.controller.Now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) addEmployee(t *testing.T, id string, salary string) {
	t.Helper()
	p := generic.CompensationProfile{
		EmployeeID: generic.EmployeeID(id),
		Name:       "Employee " + id,
		Email:      id + "@example.com",
		Role:       generic.RoleEmployee,
		Active:     true,
	}
	if salary != "" {
		p.MonthlySalary = decimal.RequireFromString(salary)
	}
	require.NoError(t, f.store.SaveEmployee(context.Background(), p))
}

func (f *fixture) addAttendance(t *testing.T, id string, day int, in, out string) {
	t.Helper()
	require.NoError(t, f.store.SaveAttendance(context.Background(), generic.AttendanceRecord{
		EmployeeID:        generic.EmployeeID(id),
		Date:              generic.NewTimePoint(2025, time.March, day),
		CheckIn:           in,
		CheckOut:          out,
		LunchBreakMinutes: 60,
		Status:            generic.StatusPresent,
	}))
}

func (f *fixture) auditActions(t *testing.T, id string) []generic.AuditAction {
	t.Helper()
	emp := generic.EmployeeID(id)
	entries, err := f.store.Query(context.Background(), generic.AuditFilter{EmployeeID: &emp})
	require.NoError(t, err)
	actions := make([]generic.AuditAction, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	return actions
}

func marchKey(id string) reports.Key {
	return reports.Key{EmployeeID: generic.EmployeeID(id), Year: 2025, Month: time.March}
}

// =============================================================================
// GENERATE
// =============================================================================

func TestGenerate_CreatesDraft(t *testing.T) {
	// GIVEN: An employee earning 20 per hour who was late once
	f := newFixture(t)
	ctx := context.Background()
	f.addEmployee(t, "emp-1", "3520")
	f.addAttendance(t, "emp-1", 3, "08:20", "17:00")
	f.addAttendance(t, "emp-1", 4, "08:00", "19:00")
	require.NoError(t, f.store.SaveAdjustments(ctx, "emp-1", 2025, time.March, payroll.Adjustments{Bonus: decimal.NewFromInt(100)}))

	// WHEN: Generating March
	report, err := f.controller.Generate(ctx, "emp-1", 2025, time.March)

	// THEN: A draft with attendance data and payroll
	require.NoError(t, err)
	assert.Equal(t, reports.StatusDraft, report.Status)
	assert.Equal(t, clockStart, report.GeneratedAt)
	assert.Equal(t, 2, report.Data.DaysPresent)
	assert.Equal(t, 1, report.Data.LateArrivals)
	require.NotNil(t, report.Payroll)
	assert.Equal(t, "6.67", report.Payroll.LateDeduction.StringFixed(2))
	assert.Equal(t, "60.00", report.Payroll.OvertimePay.StringFixed(2))
	assert.Equal(t, "100.00", report.Payroll.Bonus.StringFixed(2))

	// AND: It is stored and audited
	stored, err := f.store.GetReport(ctx, marchKey("emp-1"))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, reports.StatusDraft, stored.Status)
	assert.Equal(t, []generic.AuditAction{generic.AuditReportGenerated}, f.auditActions(t, "emp-1"))
}

func TestGenerate_WithoutPayroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addEmployee(t, "emp-1", "3000")

	settings, err := f.store.LoadSettings(ctx)
	require.NoError(t, err)
	settings.Reports.IncludePayroll = false
	require.NoError(t, f.store.SaveSettings(ctx, settings))

	report, err := f.controller.Generate(ctx, "emp-1", 2025, time.March)
	require.NoError(t, err)
	assert.Nil(t, report.Payroll)
}

func TestGenerate_RegenerateAfterSend(t *testing.T) {
	// GIVEN: A report that was already sent
	f := newFixture(t)
	ctx := context.Background()
	f.addEmployee(t, "emp-1", "3000")
	_, err := f.controller.Generate(ctx, "emp-1", 2025, time.March)
	require.NoError(t, err)
	_, err = f.controller.Send(ctx, "emp-1", 2025, time.March, "admin-1")
	require.NoError(t, err)

	// WHEN: Regenerating an hour later after a correction
	f.clock = clockStart.Add(time.Hour)
	f.addAttendance(t, "emp-1", 3, "08:00", "17:00")
	report, err := f.controller.Generate(ctx, "emp-1", 2025, time.March)

	// THEN: Back to draft with a new timestamp and the send history kept
	require.NoError(t, err)
	assert.Equal(t, reports.StatusDraft, report.Status)
	assert.Equal(t, clockStart.Add(time.Hour), report.GeneratedAt)
	assert.Equal(t, 1, report.SendCount)
	assert.Equal(t, 1, report.Data.DaysPresent)
	assert.Equal(t, []generic.AuditAction{
		generic.AuditReportGenerated,
		generic.AuditReportSent,
		generic.AuditReportRegenerated,
	}, f.auditActions(t, "emp-1"))
}

func TestGenerate_RegenerateIsIdempotent(t *testing.T) {
	// GIVEN: A draft built from unchanged attendance
	f := newFixture(t)
	ctx := context.Background()
	f.addEmployee(t, "emp-1", "3520")
	f.addAttendance(t, "emp-1", 3, "08:20", "17:00")
	f.addAttendance(t, "emp-1", 4, "08:00", "19:00")
	first, err := f.controller.Generate(ctx, "emp-1", 2025, time.March)
	require.NoError(t, err)

	// WHEN: Regenerating later without any change
	f.clock = clockStart.Add(30 * time.Minute)
	second, err := f.controller.Generate(ctx, "emp-1", 2025, time.March)

	// THEN: Same figures, only the timestamp moves
	require.NoError(t, err)
	assert.Equal(t, first.Data, second.Data)
	require.NotNil(t, first.Payroll)
	require.NotNil(t, second.Payroll)
	assert.True(t, first.Payroll.NetSalary.Equal(second.Payroll.NetSalary))
	assert.Equal(t, clockStart, first.GeneratedAt)
	assert.Equal(t, clockStart.Add(30*time.Minute), second.GeneratedAt)
	assert.Equal(t, reports.StatusDraft, second.Status)
	assert.Equal(t, []generic.AuditAction{
		generic.AuditReportGenerated,
		generic.AuditReportRegenerated,
	}, f.auditActions(t, "emp-1"))
}

func TestGenerate_NotEligible(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-nosalary", "")

	_, err := f.controller.Generate(context.Background(), "emp-nosalary", 2025, time.March)

	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrNotPayrollEligible))
	stored, _ := f.store.GetReport(context.Background(), marchKey("emp-nosalary"))
	assert.Nil(t, stored)
}

func TestGenerate_UnknownEmployeeAndBadMonth(t *testing.T) {
	f := newFixture(t)

	_, err := f.controller.Generate(context.Background(), "ghost", 2025, time.March)
	assert.True(t, errors.Is(err, generic.ErrEmployeeNotFound))

	_, err = f.controller.Generate(context.Background(), "ghost", 2025, time.Month(13))
	assert.True(t, errors.Is(err, generic.ErrInvalidPeriod))
}

// =============================================================================
// SEND
// =============================================================================

func TestSend_FirstSendAndResend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addEmployee(t, "emp-1", "3000")
	_, err := f.controller.Generate(ctx, "emp-1", 2025, time.March)
	require.NoError(t, err)

	// WHEN: Sending twice
	first, err := f.controller.Send(ctx, "emp-1", 2025, time.March, "admin-1")
	require.NoError(t, err)
	f.clock = clockStart.Add(time.Minute)
	second, err := f.controller.Send(ctx, "emp-1", 2025, time.March, "admin-1")
	require.NoError(t, err)

	// THEN: Both dispatched, the second is audited as a re-dispatch
	assert.Equal(t, reports.StatusSent, first.Status)
	assert.Equal(t, 1, first.SendCount)
	assert.Equal(t, 2, second.SendCount)
	require.NotNil(t, second.SentAt)
	assert.Equal(t, clockStart.Add(time.Minute), *second.SentAt)
	assert.Equal(t, 2, f.dispatcher.count())
	assert.Equal(t, []generic.AuditAction{
		generic.AuditReportGenerated,
		generic.AuditReportSent,
		generic.AuditReportResent,
	}, f.auditActions(t, "emp-1"))
}

func TestSend_WithoutReport(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "3000")

	_, err := f.controller.Send(context.Background(), "emp-1", 2025, time.March, "admin-1")

	assert.True(t, errors.Is(err, generic.ErrReportNotFound))
	assert.Equal(t, 0, f.dispatcher.count())
}

func TestSend_DispatchFailureKeepsStatus(t *testing.T) {
	// GIVEN: A draft and a failing dispatcher
	f := newFixture(t)
	ctx := context.Background()
	f.addEmployee(t, "emp-1", "3000")
	_, err := f.controller.Generate(ctx, "emp-1", 2025, time.March)
	require.NoError(t, err)
	smtpDown := errors.New("smtp: connection refused")
	f.dispatcher.failFor["emp-1"] = smtpDown

	// WHEN: Sending
	_, err = f.controller.Send(ctx, "emp-1", 2025, time.March, "admin-1")

	// THEN: The error carries both causes and the report is still a draft
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrDispatchFailed))
	assert.True(t, errors.Is(err, smtpDown))

	stored, err := f.store.GetReport(ctx, marchKey("emp-1"))
	require.NoError(t, err)
	assert.Equal(t, reports.StatusDraft, stored.Status)
	assert.Equal(t, 0, stored.SendCount)
	assert.Nil(t, stored.SentAt)
	assert.Contains(t, f.auditActions(t, "emp-1"), generic.AuditReportSendFailed)
}

// =============================================================================
// READS
// =============================================================================

func TestPreviewPayroll_DoesNotStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addEmployee(t, "emp-1", "3520")
	f.addAttendance(t, "emp-1", 4, "08:00", "19:00")

	agg, err := f.controller.PreviewPayroll(ctx, "emp-1", 2025, time.March)
	require.NoError(t, err)
	assert.Equal(t, "3580.00", agg.GrossSalary.StringFixed(2))

	stored, _ := f.store.GetReport(ctx, marchKey("emp-1"))
	assert.Nil(t, stored)
}

func TestOvertimeRows(t *testing.T) {
	f := newFixture(t)
	f.addEmployee(t, "emp-1", "3520")
	f.addEmployee(t, "emp-2", "")
	f.addAttendance(t, "emp-1", 4, "08:00", "19:00")
	f.addAttendance(t, "emp-2", 4, "08:00", "19:00")

	rows, err := f.controller.OvertimeRows(context.Background(), generic.MonthPeriod(2025, time.March))

	require.NoError(t, err)
	require.Len(t, rows, 1, "employees without salary are left out")
	assert.Equal(t, generic.EmployeeID("emp-1"), rows[0].EmployeeID)
	assert.True(t, rows[0].OvertimePay.Equal(decimal.NewFromInt(60)))
}
