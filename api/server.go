/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend (origins from config)

ROUTE GROUPS:
  /api/settings         Engine settings
  /api/employees/*      Roster, attendance, adjustments, payroll preview
  /api/holidays/*       Holiday calendar
  /api/overtime         Late and overtime rows
  /api/reports/*        Report lifecycle and batches
  /api/audit            Audit log
  /api/batch-runs       Batch run history
  /api/scenarios/*      Demo scenarios
  /*                    Static files (frontend)

STATIC FILE SERVING:
  Serves the built frontend from web/dist/ when present.
  Falls back to index.html for client-side routing.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/attendance", h.ListAttendance)
			r.Put("/{id}/attendance", h.UpsertAttendance)
			r.Get("/{id}/adjustments/{year}/{month}", h.GetAdjustments)
			r.Put("/{id}/adjustments/{year}/{month}", h.SetAdjustments)
			r.Get("/{id}/payroll/{year}/{month}", h.PreviewPayroll)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		r.Get("/overtime", h.OvertimeRows)

		// Report routes
		r.Route("/reports/{year}/{month}", func(r chi.Router) {
			r.Get("/", h.ListReports)
			r.Post("/batch/generate", h.BatchGenerate)
			r.Post("/batch/send", h.BatchSend)
			r.Get("/{id}", h.GetReport)
			r.Post("/{id}/generate", h.GenerateReport)
			r.Post("/{id}/send", h.SendReport)
			r.Get("/{id}/export", h.ExportReport)
		})

		// Admin routes
		r.Get("/audit", h.QueryAudit)
		r.Get("/batch-runs", h.ListBatchRuns)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	// Serve static files
	// First try ./web/dist (development), then relative to the executable
	staticDir := "./web/dist"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		exe, _ := os.Executable()
		staticDir = filepath.Join(filepath.Dir(exe), "web", "dist")
	}

	if _, err := os.Stat(staticDir); err == nil {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			path := filepath.Join(staticDir, r.URL.Path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Payroll Engine</title></head>
<body>
<h1>Payroll Engine API</h1>
<p>Frontend not built. The API is served under <code>/api</code>.</p>
<ul>
<li><a href="/api/employees">/api/employees</a></li>
<li><a href="/api/settings">/api/settings</a></li>
<li><a href="/api/scenarios">/api/scenarios</a></li>
</ul>
</body>
</html>`))
		})
	}

	return r
}
