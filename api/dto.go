/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Money and hour figures are rendered as fixed two-decimal strings so
  clients never parse a float.

VALIDATION:
  Validation is done in handlers and domain types, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/settings.go: SettingsJSON, the settings document
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/attendance"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/reports"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	MonthlySalary string `json:"monthly_salary"`
	Role          string `json:"role"`
	Active        bool   `json:"active"`
	Eligible      bool   `json:"payroll_eligible"`
}

// CreateEmployeeRequest is the body of POST /api/employees.
type CreateEmployeeRequest struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
	Role          string          `json:"role"`
	Active        *bool           `json:"active"`
}

func toEmployeeDTO(p generic.CompensationProfile) EmployeeDTO {
	return EmployeeDTO{
		ID:            string(p.EmployeeID),
		Name:          p.Name,
		Email:         p.Email,
		MonthlySalary: p.MonthlySalary.StringFixed(2),
		Role:          p.Role,
		Active:        p.Active,
		Eligible:      p.Qualifies(),
	}
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// AttendanceRequest is the body of PUT /api/employees/{id}/attendance.
type AttendanceRequest struct {
	Date              string `json:"date"`
	CheckIn           string `json:"check_in"`
	CheckOut          string `json:"check_out"`
	LunchBreakMinutes int    `json:"lunch_break_minutes"`
	Status            string `json:"status"`
	Notes             string `json:"notes"`
}

// AttendanceDTO is a stored record with its evaluation.
type AttendanceDTO struct {
	Date              string `json:"date"`
	CheckIn           string `json:"check_in,omitempty"`
	CheckOut          string `json:"check_out,omitempty"`
	LunchBreakMinutes int    `json:"lunch_break_minutes"`
	Status            string `json:"status"`
	Notes             string `json:"notes,omitempty"`

	DayType       string `json:"day_type"`
	WorkedHours   string `json:"worked_hours"`
	LateMinutes   int    `json:"late_minutes"`
	LateDeduction string `json:"late_deduction"`
	OvertimeHours string `json:"overtime_hours"`
	OvertimePay   string `json:"overtime_pay"`
	Issue         string `json:"issue,omitempty"`
}

func toAttendanceDTO(rec generic.AttendanceRecord, res attendance.RecordResult) AttendanceDTO {
	dto := AttendanceDTO{
		Date:              rec.Date.String(),
		CheckIn:           rec.CheckIn,
		CheckOut:          rec.CheckOut,
		LunchBreakMinutes: rec.LunchBreakMinutes,
		Status:            string(rec.Status),
		Notes:             rec.Notes,
		DayType:           string(res.DayType),
		WorkedHours:       res.Worked.Hours().Value.StringFixed(2),
		LateMinutes:       res.LateMinutes,
		LateDeduction:     res.LateDeduction.StringFixed(2),
		OvertimeHours:     res.OvertimeHours.StringFixed(2),
		OvertimePay:       res.OvertimePay.StringFixed(2),
	}
	if res.Issue != nil {
		dto.Issue = res.Issue.Error()
	}
	return dto
}

// =============================================================================
// HOLIDAYS AND ADJUSTMENTS
// =============================================================================

// HolidayDTO represents a holiday.
type HolidayDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// AdjustmentsDTO is the body and response of the adjustments endpoints.
type AdjustmentsDTO struct {
	Bonus decimal.Decimal `json:"bonus"`
	Owing decimal.Decimal `json:"owing"`
	Note  string          `json:"note,omitempty"`
}

// =============================================================================
// OVERTIME AND PAYROLL
// =============================================================================

// OvertimeRowDTO is one employee's late and overtime totals.
type OvertimeRowDTO struct {
	EmployeeID       string   `json:"employee_id"`
	Name             string   `json:"name"`
	HourlyRate       string   `json:"hourly_rate"`
	LateMinutes      int      `json:"late_minutes"`
	LateDeduction    string   `json:"late_deduction"`
	OvertimeHours    string   `json:"overtime_hours"`
	OvertimePay      string   `json:"overtime_pay"`
	RecordsEvaluated int      `json:"records_evaluated"`
	Issues           []string `json:"issues,omitempty"`
}

func toOvertimeRowDTO(t attendance.EmployeeTotals) OvertimeRowDTO {
	dto := OvertimeRowDTO{
		EmployeeID:       string(t.EmployeeID),
		Name:             t.Name,
		HourlyRate:       t.HourlyRate.StringFixed(2),
		LateMinutes:      t.LateMinutes,
		LateDeduction:    t.LateDeduction.StringFixed(2),
		OvertimeHours:    t.OvertimeHours.StringFixed(2),
		OvertimePay:      t.OvertimePay.StringFixed(2),
		RecordsEvaluated: t.RecordsEvaluated,
	}
	for _, issue := range t.Issues {
		dto.Issues = append(dto.Issues, issue.Date.String()+": "+issue.Err.Error())
	}
	return dto
}

// PayrollDTO is a payroll aggregate.
type PayrollDTO struct {
	Currency         string `json:"currency"`
	BaseSalary       string `json:"base_salary"`
	OvertimeHours    string `json:"overtime_hours"`
	OvertimePay      string `json:"overtime_pay"`
	Bonus            string `json:"bonus"`
	GrossSalary      string `json:"gross_salary"`
	LateMinutes      int    `json:"late_minutes"`
	LateDeduction    string `json:"late_deduction"`
	OffDays          int    `json:"off_days"`
	OffDeduction     string `json:"off_deduction"`
	OwingDeduction   string `json:"owing_deduction"`
	PensionDeduction string `json:"pension_deduction"`
	TaxableIncome    string `json:"taxable_income"`
	TaxAmount        string `json:"tax_amount"`
	TotalDeductions  string `json:"total_deductions"`
	NetSalary        string `json:"net_salary"`
}

func toPayrollDTO(a *payroll.Aggregate) *PayrollDTO {
	if a == nil {
		return nil
	}
	return &PayrollDTO{
		Currency:         a.Currency,
		BaseSalary:       a.BaseSalary.StringFixed(2),
		OvertimeHours:    a.OvertimeHours.StringFixed(2),
		OvertimePay:      a.OvertimePay.StringFixed(2),
		Bonus:            a.Bonus.StringFixed(2),
		GrossSalary:      a.GrossSalary.StringFixed(2),
		LateMinutes:      a.LateMinutes,
		LateDeduction:    a.LateDeduction.StringFixed(2),
		OffDays:          a.OffDays,
		OffDeduction:     a.OffDeduction.StringFixed(2),
		OwingDeduction:   a.OwingDeduction.StringFixed(2),
		PensionDeduction: a.PensionDeduction.StringFixed(2),
		TaxableIncome:    a.TaxableIncome.StringFixed(2),
		TaxAmount:        a.TaxAmount.StringFixed(2),
		TotalDeductions:  a.TotalDeductions.StringFixed(2),
		NetSalary:        a.NetSalary.StringFixed(2),
	}
}

// =============================================================================
// REPORTS
// =============================================================================

// ReportDataDTO is the attendance part of a report.
type ReportDataDTO struct {
	TotalDays            int    `json:"total_days"`
	DaysPresent          int    `json:"days_present"`
	DaysLeave            int    `json:"days_leave"`
	DaysSick             int    `json:"days_sick"`
	DaysAbsent           int    `json:"days_absent"`
	DaysHoliday          int    `json:"days_holiday"`
	DaysWeekend          int    `json:"days_weekend"`
	OffDays              int    `json:"off_days"`
	LateArrivals         int    `json:"late_arrivals"`
	OvertimeHours        string `json:"overtime_hours"`
	RequiredWorkingDays  int    `json:"required_working_days"`
	AttendancePercentage string `json:"attendance_percentage"`
	PayableDays          int    `json:"payable_days"`
	PaidHolidays         bool   `json:"paid_holidays"`
	CompensatedWeekends  bool   `json:"compensated_weekends"`
}

// ReportDTO is a stored report.
type ReportDTO struct {
	EmployeeID  string        `json:"employee_id"`
	Year        int           `json:"year"`
	Month       int           `json:"month"`
	Status      string        `json:"status"`
	Data        ReportDataDTO `json:"data"`
	Payroll     *PayrollDTO   `json:"payroll,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	SentAt      string        `json:"sent_at,omitempty"`
	SendCount   int           `json:"send_count"`
}

func toReportDTO(r reports.Report) ReportDTO {
	d := r.Data
	dto := ReportDTO{
		EmployeeID: string(r.EmployeeID),
		Year:       r.Year,
		Month:      int(r.Month),
		Status:     string(r.Status),
		Data: ReportDataDTO{
			TotalDays:            d.TotalDays,
			DaysPresent:          d.DaysPresent,
			DaysLeave:            d.DaysLeave,
			DaysSick:             d.DaysSick,
			DaysAbsent:           d.DaysAbsent,
			DaysHoliday:          d.DaysHoliday,
			DaysWeekend:          d.DaysWeekend,
			OffDays:              d.OffDays,
			LateArrivals:         d.LateArrivals,
			OvertimeHours:        d.OvertimeHours.StringFixed(2),
			RequiredWorkingDays:  d.RequiredWorkingDays,
			AttendancePercentage: d.AttendancePercentage.StringFixed(2),
			PayableDays:          d.PayableDays,
			PaidHolidays:         d.PaidHolidays,
			CompensatedWeekends:  d.CompensatedWeekends,
		},
		Payroll:     toPayrollDTO(r.Payroll),
		GeneratedAt: r.GeneratedAt.Format(time.RFC3339),
		SendCount:   r.SendCount,
	}
	if r.SentAt != nil {
		dto.SentAt = r.SentAt.Format(time.RFC3339)
	}
	return dto
}

// OutcomeDTO is one employee's batch result.
type OutcomeDTO struct {
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason,omitempty"`
}

// BatchResultDTO summarises a batch operation.
type BatchResultDTO struct {
	RunID     string       `json:"run_id,omitempty"`
	Year      int          `json:"year"`
	Month     int          `json:"month"`
	Total     int          `json:"total"`
	Succeeded []OutcomeDTO `json:"succeeded"`
	Skipped   []OutcomeDTO `json:"skipped"`
	Failed    []OutcomeDTO `json:"failed"`
	Cancelled []OutcomeDTO `json:"cancelled"`
}

func toOutcomeDTOs(list []reports.Outcome) []OutcomeDTO {
	dtos := make([]OutcomeDTO, 0, len(list))
	for _, o := range list {
		dtos = append(dtos, OutcomeDTO{EmployeeID: string(o.EmployeeID), Reason: o.Reason})
	}
	return dtos
}

func toBatchResultDTO(runID string, res reports.BatchResult) BatchResultDTO {
	return BatchResultDTO{
		RunID:     runID,
		Year:      res.Year,
		Month:     int(res.Month),
		Total:     res.Total(),
		Succeeded: toOutcomeDTOs(res.Succeeded),
		Skipped:   toOutcomeDTOs(res.Skipped),
		Failed:    toOutcomeDTOs(res.Failed),
		Cancelled: toOutcomeDTOs(res.Cancelled),
	}
}

// =============================================================================
// AUDIT AND RUNS
// =============================================================================

// AuditEntryDTO is an audit log entry.
type AuditEntryDTO struct {
	ID         string         `json:"id"`
	Timestamp  string         `json:"timestamp"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EmployeeID string         `json:"employee_id,omitempty"`
	Year       int            `json:"year,omitempty"`
	Month      int            `json:"month,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func toAuditEntryDTO(e generic.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:         e.ID,
		Timestamp:  e.Timestamp.Format(time.RFC3339),
		ActorID:    e.ActorID,
		Action:     string(e.Action),
		EmployeeID: string(e.EmployeeID),
		Year:       e.Year,
		Month:      int(e.Month),
		Payload:    e.Payload,
	}
}

// BatchRunDTO is a recorded batch run.
type BatchRunDTO struct {
	ID          string `json:"id"`
	Operation   string `json:"operation"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Status      string `json:"status"`
	TriggeredBy string `json:"triggered_by"`
	Succeeded   int    `json:"succeeded"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
	Cancelled   int    `json:"cancelled"`
	Error       string `json:"error,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

func toBatchRunDTO(run sqlite.BatchRun) BatchRunDTO {
	dto := BatchRunDTO{
		ID:          run.ID,
		Operation:   run.Operation,
		Year:        run.Year,
		Month:       int(run.Month),
		Status:      run.Status,
		TriggeredBy: run.TriggeredBy,
		Succeeded:   run.Succeeded,
		Skipped:     run.Skipped,
		Failed:      run.Failed,
		Cancelled:   run.Cancelled,
		Error:       run.Error,
	}
	if run.CompletedAt != nil {
		dto.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
