package api

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/mailer"
	"github.com/warp/payroll-engine/reports"
)

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ListReports returns every stored report of a month.
// GET /api/reports/{year}/{month}
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthFromPath(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	list, err := h.Store.ListReports(r.Context(), year, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list reports", err)
		return
	}

	dtos := make([]ReportDTO, len(list))
	for i, rep := range list {
		dtos[i] = toReportDTO(rep)
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": dtos})
}

// GetReport returns one report.
// GET /api/reports/{year}/{month}/{id}
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	key, err := reportKey(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	rep, err := h.Controller.Get(r.Context(), key)
	if err != nil {
		writeDomainError(w, "Failed to get report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(*rep))
}

// GenerateReport generates or regenerates one report as a draft.
// POST /api/reports/{year}/{month}/{id}/generate
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	key, err := reportKey(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	rep, err := h.Controller.Generate(r.Context(), key.EmployeeID, key.Year, key.Month)
	if err != nil {
		writeDomainError(w, "Failed to generate report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(*rep))
}

// SendReport dispatches one report. Sending a sent report dispatches it again.
// POST /api/reports/{year}/{month}/{id}/send
func (h *Handler) SendReport(w http.ResponseWriter, r *http.Request) {
	key, err := reportKey(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	rep, err := h.Controller.Send(r.Context(), key.EmployeeID, key.Year, key.Month, actorFrom(r))
	if err != nil {
		writeDomainError(w, "Failed to send report", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(*rep))
}

// ExportReport returns the report as the workbook that is emailed.
// GET /api/reports/{year}/{month}/{id}/export
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := reportKey(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	rep, err := h.Controller.Get(ctx, key)
	if err != nil {
		writeDomainError(w, "Failed to get report", err)
		return
	}
	profile, err := h.Store.GetEmployee(ctx, key.EmployeeID)
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}

	var buf bytes.Buffer
	if err := mailer.WriteWorkbook(&buf, *rep, profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+mailer.WorkbookName(*rep)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// BATCH HANDLERS
// =============================================================================

// BatchGenerate generates the month's report for every active employee.
// POST /api/reports/{year}/{month}/batch/generate
func (h *Handler) BatchGenerate(w http.ResponseWriter, r *http.Request) {
	h.runBatch(w, r, OpGenerate)
}

// BatchSend dispatches the month's report of every active employee.
// POST /api/reports/{year}/{month}/batch/send
func (h *Handler) BatchSend(w http.ResponseWriter, r *http.Request) {
	h.runBatch(w, r, OpSend)
}

func (h *Handler) runBatch(w http.ResponseWriter, r *http.Request, op string) {
	year, month, err := monthFromPath(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	runID, result, err := h.Runner.Run(r.Context(), op, year, month, actorFrom(r))
	if err != nil {
		writeDomainError(w, "Batch "+op+" failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResultDTO(runID, result))
}

func reportKey(r *http.Request) (reports.Key, error) {
	year, month, err := monthFromPath(r)
	if err != nil {
		return reports.Key{}, err
	}
	return reports.Key{
		EmployeeID: generic.EmployeeID(chi.URLParam(r, "id")),
		Year:       year,
		Month:      month,
	}, nil
}
