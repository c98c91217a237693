/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes attendance evaluation, payroll computation and the report
  lifecycle via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the reports controller and the store.

ENDPOINTS:
  Settings:
    GET    /api/settings                              Current settings
    PUT    /api/settings                              Replace settings (validated)

  Employees:
    GET    /api/employees                             List all employees
    POST   /api/employees                             Create or update employee
    GET    /api/employees/{id}                        Get employee details
    GET    /api/employees/{id}/attendance             Records with evaluation (?from&to)
    PUT    /api/employees/{id}/attendance             Upsert one record
    GET    /api/employees/{id}/adjustments/{y}/{m}    Bonus and owing
    PUT    /api/employees/{id}/adjustments/{y}/{m}    Set bonus and owing
    GET    /api/employees/{id}/payroll/{y}/{m}        Payroll preview (not stored)

  Holidays:
    GET    /api/holidays                              List holidays
    POST   /api/holidays                              Create holiday
    DELETE /api/holidays/{id}                         Delete holiday

  Overtime:
    GET    /api/overtime                              Late and overtime rows (?from&to)

  Reports:
    GET    /api/reports/{y}/{m}                       Reports of a month
    POST   /api/reports/{y}/{m}/batch/generate        Batch generate
    POST   /api/reports/{y}/{m}/batch/send            Batch send
    GET    /api/reports/{y}/{m}/{id}                  One report
    POST   /api/reports/{y}/{m}/{id}/generate         Generate one report
    POST   /api/reports/{y}/{m}/{id}/send             Send one report
    GET    /api/reports/{y}/{m}/{id}/export           Report as .xlsx

  Admin:
    GET    /api/audit                                 Audit log (?employee_id&actor_id&action&from&to)
    GET    /api/batch-runs                            Batch run history (?status)

  Scenarios:
    GET    /api/scenarios                             List demo scenarios
    POST   /api/scenarios/load                        Load a demo scenario

ACTOR:
  The X-Actor-ID header names who performed a write. It is recorded in the
  audit log and defaults to "admin".

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, malformed times or periods
  - 404: Employee or report not found
  - 409: Employee not payroll eligible
  - 502: Report dispatch failed
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - reports.go: Report and batch handlers
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/reports"
	"github.com/warp/payroll-engine/store/sqlite"
)

// ActorHeader names the actor of a write request.
const ActorHeader = "X-Actor-ID"

const defaultActor = "admin"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Controller *reports.Controller
	Runner     *BatchRunner
	Scheduler  *MonthlyScheduler // optional, reports the next automatic check
	Log        *log.Entry

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler over the store and controller.
func NewHandler(store *sqlite.Store, controller *reports.Controller) *Handler {
	return &Handler{
		Store:      store,
		Controller: controller,
		Runner:     NewBatchRunner(store, controller),
		Log:        log.WithField("component", "api"),
	}
}

func actorFrom(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
		return actor
	}
	return defaultActor
}

// audit records a write made through the API. Failures are logged only.
func (h *Handler) audit(ctx context.Context, entry generic.AuditEntry) {
	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now().UTC()
	if err := h.Store.Append(context.WithoutCancel(ctx), entry); err != nil {
		h.Log.WithError(err).WithField("action", entry.Action).Error("failed to append audit entry")
	}
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the current settings.
// GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Store.LoadSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToJSON(settings))
}

// UpdateSettings validates and replaces the settings.
// PUT /api/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req factory.SettingsJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	settings, err := factory.FromJSON(req)
	if err != nil {
		writeDomainError(w, "Invalid settings", err)
		return
	}
	if err := h.Store.SaveSettings(r.Context(), settings); err != nil {
		writeDomainError(w, "Failed to save settings", err)
		return
	}

	h.audit(r.Context(), generic.AuditEntry{
		ActorID: actorFrom(r),
		Action:  generic.AuditSettingsChanged,
	})
	writeJSON(w, http.StatusOK, factory.ToJSON(settings))
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees, inactive ones included.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": dtos})
}

// CreateEmployee creates or updates an employee.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	if req.MonthlySalary.IsNegative() {
		writeError(w, http.StatusBadRequest, "monthly_salary cannot be negative", nil)
		return
	}
	if req.Role == "" {
		req.Role = generic.RoleEmployee
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	profile := generic.CompensationProfile{
		EmployeeID:    generic.EmployeeID(req.ID),
		Name:          req.Name,
		Email:         req.Email,
		MonthlySalary: req.MonthlySalary,
		Role:          req.Role,
		Active:        active,
	}
	if err := h.Store.SaveEmployee(r.Context(), profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(profile))
}

// GetEmployee returns one employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Store.GetEmployee(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(profile))
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// ListAttendance returns the employee's records over a period, each with its
// evaluation under the current settings. The period defaults to the current
// month.
// GET /api/employees/{id}/attendance?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	period, err := periodFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}
	profile, err := h.Store.GetEmployee(ctx, generic.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	records, err := h.Store.ListAttendance(ctx, profile.EmployeeID, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attendance", err)
		return
	}
	settings, err := h.Store.LoadSettings(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	holidays, err := h.Store.ListHolidays(ctx, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	evaluator := settings.Evaluator(generic.NewHolidaySet(holidays))
	rate := evaluator.HourlyRate(profile.MonthlySalary)

	dtos := make([]AttendanceDTO, len(records))
	for i, rec := range records {
		dtos[i] = toAttendanceDTO(rec, evaluator.EvaluateRecord(rec, rate))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id": profile.EmployeeID,
		"period":      period.String(),
		"hourly_rate": rate.StringFixed(2),
		"records":     dtos,
	})
}

// UpsertAttendance inserts or replaces the record for one date.
// PUT /api/employees/{id}/attendance
func (h *Handler) UpsertAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID := generic.EmployeeID(chi.URLParam(r, "id"))

	var req AttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if _, err := h.Store.GetEmployee(ctx, employeeID); err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}

	rec := generic.AttendanceRecord{
		EmployeeID:        employeeID,
		Date:              date,
		CheckIn:           strings.TrimSpace(req.CheckIn),
		CheckOut:          strings.TrimSpace(req.CheckOut),
		LunchBreakMinutes: req.LunchBreakMinutes,
		Status:            generic.AttendanceStatus(req.Status),
		Notes:             req.Notes,
	}
	if err := h.Store.SaveAttendance(ctx, rec); err != nil {
		writeDomainError(w, "Failed to save attendance", err)
		return
	}

	h.audit(ctx, generic.AuditEntry{
		ActorID:    actorFrom(r),
		Action:     generic.AuditAttendanceChanged,
		EmployeeID: employeeID,
		Year:       date.Year(),
		Month:      date.Month(),
		Payload: map[string]any{
			"date":      date.String(),
			"status":    string(rec.Status),
			"check_in":  rec.CheckIn,
			"check_out": rec.CheckOut,
		},
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "saved", "date": date.String()})
}

// =============================================================================
// ADJUSTMENT AND PAYROLL HANDLERS
// =============================================================================

// GetAdjustments returns the bonus and owing of a month. Missing means zero.
// GET /api/employees/{id}/adjustments/{year}/{month}
func (h *Handler) GetAdjustments(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthFromPath(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	adj, err := h.Store.GetAdjustments(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get adjustments", err)
		return
	}
	writeJSON(w, http.StatusOK, AdjustmentsDTO{Bonus: adj.Bonus, Owing: adj.Owing, Note: adj.Note})
}

// SetAdjustments replaces the bonus and owing of a month.
// PUT /api/employees/{id}/adjustments/{year}/{month}
func (h *Handler) SetAdjustments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employeeID := generic.EmployeeID(chi.URLParam(r, "id"))

	year, month, err := monthFromPath(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	var req AdjustmentsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Bonus.IsNegative() || req.Owing.IsNegative() {
		writeError(w, http.StatusBadRequest, "bonus and owing cannot be negative", nil)
		return
	}
	if _, err := h.Store.GetEmployee(ctx, employeeID); err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}

	adj := payroll.Adjustments{Bonus: req.Bonus, Owing: req.Owing, Note: req.Note}
	if err := h.Store.SaveAdjustments(ctx, employeeID, year, month, adj); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save adjustments", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// PreviewPayroll computes the payroll of a month without storing it.
// GET /api/employees/{id}/payroll/{year}/{month}
func (h *Handler) PreviewPayroll(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthFromPath(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	agg, err := h.Controller.PreviewPayroll(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")), year, month)
	if err != nil {
		writeDomainError(w, "Failed to compute payroll", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollDTO(agg))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns all holidays.
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.GetAllHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{
			ID:        hol.ID,
			Date:      hol.Date.String(),
			Name:      hol.Name,
			Recurring: hol.Recurring,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday creates a holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	holiday := generic.Holiday{
		ID:        req.ID,
		Date:      date,
		Name:      req.Name,
		Recurring: req.Recurring,
	}
	if holiday.ID == "" {
		holiday.ID = uuid.NewString()
	}
	if err := h.Store.SaveHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}

	req.ID = holiday.ID
	req.Date = date.String()
	writeJSON(w, http.StatusCreated, req)
}

// DeleteHoliday deletes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// OVERTIME HANDLERS
// =============================================================================

// OvertimeRows returns late and overtime totals of every qualifying employee.
// GET /api/overtime?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) OvertimeRows(w http.ResponseWriter, r *http.Request) {
	period, err := periodFromQuery(r)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}
	rows, err := h.Controller.OvertimeRows(r.Context(), period)
	if err != nil {
		writeDomainError(w, "Failed to evaluate overtime", err)
		return
	}

	dtos := make([]OvertimeRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toOvertimeRowDTO(row)
	}
	writeJSON(w, http.StatusOK, map[string]any{"period": period.String(), "rows": dtos})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// QueryAudit returns audit entries, oldest first.
// GET /api/audit?employee_id=&actor_id=&action=a,b&from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter generic.AuditFilter

	if v := q.Get("employee_id"); v != "" {
		id := generic.EmployeeID(v)
		filter.EmployeeID = &id
	}
	if v := q.Get("actor_id"); v != "" {
		filter.ActorID = &v
	}
	if v := q.Get("action"); v != "" {
		for _, a := range strings.Split(v, ",") {
			filter.Actions = append(filter.Actions, generic.AuditAction(strings.TrimSpace(a)))
		}
	}
	if v := q.Get("from"); v != "" {
		from, err := generic.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
		filter.From = &from.Time
	}
	if v := q.Get("to"); v != "" {
		to, err := generic.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
		end := to.AddDays(1).Time.Add(-time.Nanosecond)
		filter.To = &end
	}

	entries, err := h.Store.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query audit log", err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": dtos})
}

// ListBatchRuns returns the batch run history, newest first, with the time of
// the next scheduled check while the scheduler runs.
// GET /api/batch-runs?status=completed
func (h *Handler) ListBatchRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.GetBatchRuns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get batch runs", err)
		return
	}

	dtos := make([]BatchRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toBatchRunDTO(run)
	}
	resp := map[string]any{"runs": dtos}
	if h.Scheduler != nil {
		if next, ok := h.Scheduler.GetNextRunTime(); ok {
			resp["next_check_at"] = next
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

// monthFromPath reads the {year} and {month} URL parameters.
func monthFromPath(r *http.Request) (int, time.Month, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: year %q", generic.ErrInvalidPeriod, chi.URLParam(r, "year"))
	}
	m, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: month %q", generic.ErrInvalidPeriod, chi.URLParam(r, "month"))
	}
	month := time.Month(m)
	if err := generic.ValidateMonth(year, month); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// periodFromQuery reads ?from and ?to. Either one missing defaults to the
// bounds of the current month.
func periodFromQuery(r *http.Request) (generic.Period, error) {
	today := generic.Today()
	period := generic.MonthPeriod(today.Year(), today.Month())

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		from, err := generic.ParseDate(v)
		if err != nil {
			return generic.Period{}, fmt.Errorf("%w: from %q", generic.ErrInvalidPeriod, v)
		}
		period.Start = from
	}
	if v := q.Get("to"); v != "" {
		to, err := generic.ParseDate(v)
		if err != nil {
			return generic.Period{}, fmt.Errorf("%w: to %q", generic.ErrInvalidPeriod, v)
		}
		period.End = to
	}
	return period, period.Validate()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrNotPayrollEligible):
		return http.StatusConflict
	case errors.Is(err, generic.ErrDispatchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
