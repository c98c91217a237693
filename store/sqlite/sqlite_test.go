package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/reports"
	"github.com/warp/payroll-engine/store/sqlite"
)

// entrypoint for test
func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(storeSuite))
}

type storeSuite struct {
	suite.Suite

	ctx   context.Context
	store *sqlite.Store
}

func (s *storeSuite) SetupTest() {
	store, err := sqlite.New(":memory:")
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
}

func (s *storeSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *storeSuite) march(day int) generic.TimePoint {
	return generic.NewTimePoint(2025, time.March, day)
}

// =============================================================================
// ROSTER AND ATTENDANCE
// =============================================================================

func (s *storeSuite) TestEmployees() {
	s.Require().NoError(s.store.SaveEmployee(s.ctx, generic.CompensationProfile{
		EmployeeID: "emp-2", Name: "Bea", MonthlySalary: decimal.RequireFromString("3000.50"),
		Role: generic.RoleEmployee, Active: true,
	}))
	s.Require().NoError(s.store.SaveEmployee(s.ctx, generic.CompensationProfile{
		EmployeeID: "emp-1", Name: "Ann", Email: "ann@example.com", Role: generic.RoleEmployee, Active: true,
	}))
	s.Require().NoError(s.store.SaveEmployee(s.ctx, generic.CompensationProfile{
		EmployeeID: "emp-3", Name: "Cal", Role: generic.RoleEmployee, Active: false,
	}))

	got, err := s.store.GetEmployee(s.ctx, "emp-2")
	s.Require().NoError(err)
	s.Equal("3000.5", got.MonthlySalary.String())
	s.True(got.Active)

	active, err := s.store.ListActiveEmployees(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal(generic.EmployeeID("emp-1"), active[0].EmployeeID)
	s.Equal("ann@example.com", active[0].Email)

	all, err := s.store.ListEmployees(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 3)

	_, err = s.store.GetEmployee(s.ctx, "ghost")
	s.True(errors.Is(err, generic.ErrEmployeeNotFound))
}

func (s *storeSuite) TestAttendanceUpsert() {
	// GIVEN: A record saved twice for the same day
	rec := generic.AttendanceRecord{
		EmployeeID: "emp-1", Date: s.march(3), CheckIn: "08:20", CheckOut: "17:00",
		LunchBreakMinutes: 60, Status: generic.StatusPresent,
	}
	s.Require().NoError(s.store.SaveAttendance(s.ctx, rec))
	rec.CheckIn = "08:00"
	rec.Notes = "badge reader fixed"
	s.Require().NoError(s.store.SaveAttendance(s.ctx, rec))
	s.Require().NoError(s.store.SaveAttendance(s.ctx, generic.AttendanceRecord{
		EmployeeID: "emp-1", Date: s.march(4), Status: generic.StatusSick,
	}))
	s.Require().NoError(s.store.SaveAttendance(s.ctx, generic.AttendanceRecord{
		EmployeeID: "emp-1", Date: generic.NewTimePoint(2025, time.April, 1), Status: generic.StatusPresent,
	}))

	// WHEN: Listing March
	records, err := s.store.ListAttendance(s.ctx, "emp-1", generic.MonthPeriod(2025, time.March))

	// THEN: The correction replaced the first save
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("08:00", records[0].CheckIn)
	s.Equal("badge reader fixed", records[0].Notes)
	s.Equal(s.march(3), records[0].Date)
	s.Equal(generic.StatusSick, records[1].Status)
	s.Empty(records[1].CheckIn)
}

func (s *storeSuite) TestAttendanceRejectsInvalid() {
	err := s.store.SaveAttendance(s.ctx, generic.AttendanceRecord{
		EmployeeID: "emp-1", Date: s.march(3), CheckIn: "8h", Status: generic.StatusPresent,
	})
	s.True(errors.Is(err, generic.ErrInvalidRecord))
}

func (s *storeSuite) TestHolidays() {
	s.Require().NoError(s.store.SaveHoliday(s.ctx, generic.Holiday{
		Date: generic.NewTimePoint(2020, time.March, 8), Name: "Women's Day", Recurring: true,
	}))
	s.Require().NoError(s.store.SaveHoliday(s.ctx, generic.Holiday{
		ID: "h-2", Date: s.march(17), Name: "Founders Day",
	}))
	s.Require().NoError(s.store.SaveHoliday(s.ctx, generic.Holiday{
		ID: "h-3", Date: generic.NewTimePoint(2025, time.May, 1), Name: "Labour Day",
	}))

	march, err := s.store.ListHolidays(s.ctx, generic.MonthPeriod(2025, time.March))
	s.Require().NoError(err)
	s.Len(march, 2)

	set := generic.NewHolidaySet(march)
	s.True(set.IsHoliday(s.march(8)))
	s.True(set.IsHoliday(s.march(17)))

	s.Require().NoError(s.store.DeleteHoliday(s.ctx, "h-2"))
	all, err := s.store.GetAllHolidays(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}

// =============================================================================
// SETTINGS AND ADJUSTMENTS
// =============================================================================

func (s *storeSuite) TestSettingsRoundTrip() {
	loaded, err := s.store.LoadSettings(s.ctx)
	s.Require().NoError(err)
	s.Equal(factory.DefaultSettings(), loaded, "defaults until saved")

	settings := factory.DefaultSettings()
	settings.WorkingHours.LateGraceMinutes = 5
	settings.Payroll.PayeEnabled = true
	settings.Payroll.TaxBrackets = []payroll.TaxBracket{
		{Min: decimal.Zero, Max: decPtr("5000"), Rate: decimal.Zero},
		{Min: decimal.NewFromInt(5000), Rate: decimal.RequireFromString("0.2")},
	}
	s.Require().NoError(s.store.SaveSettings(s.ctx, settings))

	loaded, err = s.store.LoadSettings(s.ctx)
	s.Require().NoError(err)
	s.Equal(5, loaded.WorkingHours.LateGraceMinutes)
	s.True(loaded.Payroll.PayeEnabled)
	s.Require().Len(loaded.Payroll.TaxBrackets, 2)
	s.True(loaded.Payroll.TaxBrackets[1].IsOpenEnded())
}

func (s *storeSuite) TestSettingsValidatedOnSave() {
	settings := factory.DefaultSettings()
	settings.WorkingHours.StartTime = "8 o'clock"

	err := s.store.SaveSettings(s.ctx, settings)

	s.True(errors.Is(err, generic.ErrInvalidSettings))
	loaded, _ := s.store.LoadSettings(s.ctx)
	s.Equal("08:00", loaded.WorkingHours.StartTime)
}

func (s *storeSuite) TestAdjustments() {
	adj, err := s.store.GetAdjustments(s.ctx, "emp-1", 2025, time.March)
	s.Require().NoError(err)
	s.True(adj.Bonus.IsZero())

	s.Require().NoError(s.store.SaveAdjustments(s.ctx, "emp-1", 2025, time.March, payroll.Adjustments{
		Bonus: decimal.RequireFromString("150.25"), Owing: decimal.NewFromInt(40), Note: "advance",
	}))

	adj, err = s.store.GetAdjustments(s.ctx, "emp-1", 2025, time.March)
	s.Require().NoError(err)
	s.Equal("150.25", adj.Bonus.String())
	s.Equal("40", adj.Owing.String())
	s.Equal("advance", adj.Note)
}

// =============================================================================
// REPORTS AND AUDIT
// =============================================================================

func (s *storeSuite) sampleReport() reports.Report {
	return reports.Report{
		EmployeeID: "emp-1", Year: 2025, Month: time.March, Status: reports.StatusDraft,
		Data: attendance.ReportData{
			EmployeeID: "emp-1", Year: 2025, Month: time.March, TotalDays: 31, DaysPresent: 20,
			OvertimeHours: decimal.RequireFromString("6.5"), AttendancePercentage: decimal.RequireFromString("95.24"),
			PayableDays: 21, PaidHolidays: true,
		},
		Payroll: &payroll.Aggregate{
			EmployeeID: "emp-1", Year: 2025, Month: time.March, Currency: "USD",
			BaseSalary: decimal.NewFromInt(3000), GrossSalary: decimal.RequireFromString("3160.00"),
			LateMinutes: 20, LateDeduction: decimal.RequireFromString("6.67"),
			NetSalary: decimal.RequireFromString("2510.97"),
		},
		GeneratedAt: time.Date(2025, time.April, 1, 6, 0, 0, 0, time.UTC),
	}
}

func (s *storeSuite) TestReportUpsertAndGet() {
	missing, err := s.store.GetReport(s.ctx, reports.Key{EmployeeID: "emp-1", Year: 2025, Month: time.March})
	s.Require().NoError(err)
	s.Nil(missing)

	r := s.sampleReport()
	s.Require().NoError(s.store.UpsertReport(s.ctx, r))

	got, err := s.store.GetReport(s.ctx, r.Key())
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(reports.StatusDraft, got.Status)
	s.Equal(r.GeneratedAt, got.GeneratedAt)
	s.Nil(got.SentAt)
	s.Equal(20, got.Data.DaysPresent)
	s.Equal("95.24", got.Data.AttendancePercentage.String())
	s.Require().NotNil(got.Payroll)
	s.Equal("2510.97", got.Payroll.NetSalary.StringFixed(2))
	s.Equal(20, got.Payroll.LateMinutes)

	// WHEN: Marked as sent without payroll
	sentAt := r.GeneratedAt.Add(time.Hour)
	r.Status = reports.StatusSent
	r.SentAt = &sentAt
	r.SendCount = 1
	r.Payroll = nil
	s.Require().NoError(s.store.UpsertReport(s.ctx, r))

	got, err = s.store.GetReport(s.ctx, r.Key())
	s.Require().NoError(err)
	s.Equal(reports.StatusSent, got.Status)
	s.Equal(1, got.SendCount)
	s.Require().NotNil(got.SentAt)
	s.Equal(sentAt, *got.SentAt)
	s.Nil(got.Payroll)
}

func (s *storeSuite) TestListReports() {
	a := s.sampleReport()
	b := s.sampleReport()
	b.EmployeeID = "emp-0"
	c := s.sampleReport()
	c.Month = time.April
	for _, r := range []reports.Report{a, b, c} {
		s.Require().NoError(s.store.UpsertReport(s.ctx, r))
	}

	list, err := s.store.ListReports(s.ctx, 2025, time.March)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(generic.EmployeeID("emp-0"), list[0].EmployeeID)
}

func (s *storeSuite) TestAuditQuery() {
	base := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	entries := []generic.AuditEntry{
		{ID: "a1", Timestamp: base, ActorID: "system", Action: generic.AuditReportGenerated, EmployeeID: "emp-1", Year: 2025, Month: time.March},
		{ID: "a2", Timestamp: base.Add(time.Minute), ActorID: "admin", Action: generic.AuditReportSent, EmployeeID: "emp-1", Year: 2025, Month: time.March,
			Payload: map[string]any{"send_count": 1}},
		{ID: "a3", Timestamp: base.Add(2 * time.Minute), ActorID: "admin", Action: generic.AuditSettingsChanged},
	}
	for _, e := range entries {
		s.Require().NoError(s.store.Append(s.ctx, e))
	}

	emp := generic.EmployeeID("emp-1")
	got, err := s.store.Query(s.ctx, generic.AuditFilter{EmployeeID: &emp})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("a1", got[0].ID)
	s.Equal(float64(1), got[1].Payload["send_count"])

	actor := "admin"
	got, err = s.store.Query(s.ctx, generic.AuditFilter{ActorID: &actor, Actions: []generic.AuditAction{generic.AuditSettingsChanged}})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("a3", got[0].ID)

	from := base.Add(30 * time.Second)
	got, err = s.store.Query(s.ctx, generic.AuditFilter{From: &from})
	s.Require().NoError(err)
	s.Len(got, 2)

	s.Error(s.store.Append(s.ctx, entries[0]), "entries are append-only")
}

// =============================================================================
// BATCH RUNS
// =============================================================================

func (s *storeSuite) TestBatchRuns() {
	started := time.Date(2025, time.April, 1, 2, 0, 0, 0, time.UTC)
	run := sqlite.BatchRun{
		ID: "run-1", Operation: "generate", Year: 2025, Month: time.March,
		Status: sqlite.RunRunning, TriggeredBy: "scheduler", StartedAt: &started, CreatedAt: started,
	}
	s.Require().NoError(s.store.SaveBatchRun(s.ctx, run))

	done, err := s.store.IsBatchComplete(s.ctx, "generate", 2025, time.March)
	s.Require().NoError(err)
	s.False(done)

	completed := started.Add(time.Minute)
	run.Status = sqlite.RunCompleted
	run.Succeeded = 4
	run.Skipped = 1
	run.CompletedAt = &completed
	s.Require().NoError(s.store.SaveBatchRun(s.ctx, run))

	done, err = s.store.IsBatchComplete(s.ctx, "generate", 2025, time.March)
	s.Require().NoError(err)
	s.True(done)

	runs, err := s.store.GetBatchRuns(s.ctx, "")
	s.Require().NoError(err)
	s.Require().Len(runs, 1)
	s.Equal(4, runs[0].Succeeded)
	s.Equal(time.March, runs[0].Month)
	s.Require().NotNil(runs[0].CompletedAt)
	s.Equal(completed, *runs[0].CompletedAt)
}

// =============================================================================
// CONTROLLER INTEGRATION
// =============================================================================

type okDispatcher struct{}

func (okDispatcher) Dispatch(context.Context, reports.Report, generic.CompensationProfile) error {
	return nil
}

func (s *storeSuite) TestControllerOverSQLite() {
	// GIVEN: A salaried employee with one late day
	s.Require().NoError(s.store.SaveEmployee(s.ctx, generic.CompensationProfile{
		EmployeeID: "emp-1", Name: "Ann", MonthlySalary: decimal.NewFromInt(3520),
		Role: generic.RoleEmployee, Active: true,
	}))
	s.Require().NoError(s.store.SaveAttendance(s.ctx, generic.AttendanceRecord{
		EmployeeID: "emp-1", Date: s.march(3), CheckIn: "08:20", CheckOut: "17:00",
		LunchBreakMinutes: 60, Status: generic.StatusPresent,
	}))
	controller := reports.NewController(s.store, okDispatcher{})

	// WHEN: Generating then sending
	_, err := controller.Generate(s.ctx, "emp-1", 2025, time.March)
	s.Require().NoError(err)
	_, err = controller.Send(s.ctx, "emp-1", 2025, time.March, "admin")
	s.Require().NoError(err)

	// THEN: Both writes persisted with the payroll aggregate
	got, err := s.store.GetReport(s.ctx, reports.Key{EmployeeID: "emp-1", Year: 2025, Month: time.March})
	s.Require().NoError(err)
	s.Equal(reports.StatusSent, got.Status)
	s.Require().NotNil(got.Payroll)
	s.Equal("6.67", got.Payroll.LateDeduction.StringFixed(2))

	audit, err := s.store.Query(s.ctx, generic.AuditFilter{})
	s.Require().NoError(err)
	s.Len(audit, 2)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
