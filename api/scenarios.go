/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a roster, holidays,
	settings and a month of attendance (March 2025) that demonstrate
	specific features.

AVAILABLE SCENARIOS:

	standard-month:     Default settings, late arrivals, overtime, sick and off days
	payroll-deductions: Pension, PAYE brackets and an owing deduction
	weekend-work:       Rest day and holiday work paid at the holiday rate

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save settings
 3. Create employees, including ones that are not payroll eligible
 4. Add holidays
 5. Add one attendance record per workday, then the exceptions
 6. Optionally add bonuses and owings

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "payroll-deductions"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - factory/settings.go: Settings defaults
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// Scenarios seed this month.
const (
	scenarioYear  = 2025
	scenarioMonth = time.March
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-month",
		Name:        "Standard Month",
		Description: "Default settings with late arrivals, overtime, sick and off days",
	},
	{
		ID:          "payroll-deductions",
		Name:        "Payroll Deductions",
		Description: "5% pension, PAYE brackets on gross less pension, and an owing",
	},
	{
		ID:          "weekend-work",
		Name:        "Weekend Work",
		Description: "Saturday, Sunday and holiday work paid at the holiday rate",
	},
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: h.currentScenario, Name: h.currentScenario})
}

// LoadScenario loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	loader, ok := h.scenarioLoader(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := loader(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	h.Log.WithField("scenario", req.ScenarioID).Info("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) scenarioLoader(id string) (func(context.Context) error, bool) {
	switch id {
	case "standard-month":
		return h.loadStandardMonthScenario, true
	case "payroll-deductions":
		return h.loadPayrollDeductionsScenario, true
	case "weekend-work":
		return h.loadWeekendWorkScenario, true
	}
	return nil, false
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadStandardMonthScenario: two salaried employees, a manager and an
// employee without salary. Ann arrives late three times and takes a day
// off; Ben works late twice, is sick once and earns a bonus.
func (h *Handler) loadStandardMonthScenario(ctx context.Context) error {
	if err := h.Store.SaveSettings(ctx, factory.DefaultSettings()); err != nil {
		return err
	}
	if err := h.seedRoster(ctx); err != nil {
		return err
	}

	exceptions := map[generic.EmployeeID]map[int]dayEntry{
		"emp-ann": {
			4:  {in: "08:20", out: "17:00"},
			12: {in: "08:45", out: "17:30"},
			19: {in: "08:10", out: "17:00"},
			25: {status: generic.StatusOff},
		},
		"emp-ben": {
			5:  {in: "08:00", out: "19:00"},
			20: {in: "07:30", out: "18:30"},
			27: {status: generic.StatusSick},
		},
	}
	if err := h.seedAttendance(ctx, exceptions); err != nil {
		return err
	}
	return h.Store.SaveAdjustments(ctx, "emp-ben", scenarioYear, scenarioMonth, payroll.Adjustments{
		Bonus: decimal.NewFromInt(200),
		Note:  "Quarter-end bonus",
	})
}

// loadPayrollDeductionsScenario: the standard month with pension and PAYE
// switched on, and an owing for Ann.
func (h *Handler) loadPayrollDeductionsScenario(ctx context.Context) error {
	settings := factory.DefaultSettings()
	settings.Payroll.PensionEnabled = true
	settings.Payroll.PensionPercentage = decimal.NewFromInt(5)
	settings.Payroll.PayeEnabled = true
	settings.Payroll.TaxableBase = payroll.TaxableGrossLessPension
	settings.Payroll.TaxBrackets = []payroll.TaxBracket{
		{Min: decimal.Zero, Max: decPtr(1000), Rate: decimal.Zero},
		{Min: decimal.NewFromInt(1000), Max: decPtr(3000), Rate: decimal.RequireFromString("0.10")},
		{Min: decimal.NewFromInt(3000), Rate: decimal.RequireFromString("0.20")},
	}
	if err := h.Store.SaveSettings(ctx, settings); err != nil {
		return err
	}
	if err := h.seedRoster(ctx); err != nil {
		return err
	}

	exceptions := map[generic.EmployeeID]map[int]dayEntry{
		"emp-ann": {
			11: {in: "08:30", out: "17:00"},
		},
		"emp-ben": {
			6: {in: "08:00", out: "20:00"},
		},
	}
	if err := h.seedAttendance(ctx, exceptions); err != nil {
		return err
	}
	return h.Store.SaveAdjustments(ctx, "emp-ann", scenarioYear, scenarioMonth, payroll.Adjustments{
		Owing: decimal.NewFromInt(150),
		Note:  "Salary advance repayment",
	})
}

// loadWeekendWorkScenario: rest days earn the holiday rate. Ben works the
// first Saturday, the second Sunday and the holiday.
func (h *Handler) loadWeekendWorkScenario(ctx context.Context) error {
	settings := factory.DefaultSettings()
	settings.Overtime.RestDayPolicy = attendance.RestDayHolidayRate
	settings.Reports.CompensatedWeekends = true
	if err := h.Store.SaveSettings(ctx, settings); err != nil {
		return err
	}
	if err := h.seedRoster(ctx); err != nil {
		return err
	}

	exceptions := map[generic.EmployeeID]map[int]dayEntry{
		"emp-ben": {
			1:  {in: "10:00", out: "14:00", lunch: ptrInt(0)},
			9:  {in: "10:00", out: "15:00", lunch: ptrInt(0)},
			17: {in: "09:00", out: "13:00", lunch: ptrInt(0)},
		},
	}
	return h.seedAttendance(ctx, exceptions)
}

// =============================================================================
// SEED HELPERS
// =============================================================================

// dayEntry overrides the default workday record. A zero entry on a rest
// day or holiday creates a record.
type dayEntry struct {
	in, out string
	status  generic.AttendanceStatus
	lunch   *int
}

var scenarioRoster = []generic.CompensationProfile{
	{EmployeeID: "emp-ann", Name: "Ann Lee", Email: "ann@example.com", MonthlySalary: decimal.NewFromInt(3520), Role: generic.RoleEmployee, Active: true},
	{EmployeeID: "emp-ben", Name: "Ben Okafor", Email: "ben@example.com", MonthlySalary: decimal.NewFromInt(4400), Role: generic.RoleEmployee, Active: true},
	{EmployeeID: "mgr-cara", Name: "Cara Diaz", Email: "cara@example.com", MonthlySalary: decimal.NewFromInt(6000), Role: "manager", Active: true},
	{EmployeeID: "emp-dan", Name: "Dan Moss", Email: "dan@example.com", Role: generic.RoleEmployee, Active: true},
}

var scenarioHolidays = []generic.Holiday{
	{ID: "hol-womens-day", Date: generic.NewTimePoint(2024, time.March, 8), Name: "Women's Day", Recurring: true},
	{ID: "hol-founders-day", Date: generic.NewTimePoint(scenarioYear, scenarioMonth, 17), Name: "Founders Day"},
}

func (h *Handler) seedRoster(ctx context.Context) error {
	for _, p := range scenarioRoster {
		if err := h.Store.SaveEmployee(ctx, p); err != nil {
			return fmt.Errorf("save employee %s: %w", p.EmployeeID, err)
		}
	}
	for _, hol := range scenarioHolidays {
		if err := h.Store.SaveHoliday(ctx, hol); err != nil {
			return fmt.Errorf("save holiday %s: %w", hol.Name, err)
		}
	}
	return nil
}

// seedAttendance gives every salaried employee an 08:00-17:00 record on each
// workday of the month, then applies the exceptions by day of month.
func (h *Handler) seedAttendance(ctx context.Context, exceptions map[generic.EmployeeID]map[int]dayEntry) error {
	settings, err := h.Store.LoadSettings(ctx)
	if err != nil {
		return err
	}
	period := generic.MonthPeriod(scenarioYear, scenarioMonth)
	holidays, err := h.Store.ListHolidays(ctx, period)
	if err != nil {
		return err
	}
	calendar := attendance.Calendar{
		WorkingHours: settings.WorkingHours,
		Holidays:     generic.NewHolidaySet(holidays),
	}

	for _, p := range scenarioRoster {
		if !p.MonthlySalary.IsPositive() {
			continue
		}
		for _, day := range period.Days() {
			entry, override := exceptions[p.EmployeeID][day.Day()]
			if !override && calendar.Classify(day) != attendance.DayWorkday {
				continue
			}
			rec := generic.AttendanceRecord{
				EmployeeID:        p.EmployeeID,
				Date:              day,
				CheckIn:           "08:00",
				CheckOut:          "17:00",
				LunchBreakMinutes: 60,
				Status:            generic.StatusPresent,
			}
			if override {
				if entry.status != "" {
					rec.Status = entry.status
				}
				if entry.status != "" && !entry.status.IsPresence() {
					rec.CheckIn, rec.CheckOut, rec.LunchBreakMinutes = "", "", 0
				}
				if entry.in != "" {
					rec.CheckIn, rec.CheckOut = entry.in, entry.out
				}
				if entry.lunch != nil {
					rec.LunchBreakMinutes = *entry.lunch
				}
			}
			if err := h.Store.SaveAttendance(ctx, rec); err != nil {
				return fmt.Errorf("save attendance %s %s: %w", p.EmployeeID, day, err)
			}
		}
	}
	return nil
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func ptrInt(v int) *int { return &v }
