/*
Package mailer delivers monthly reports by email.

PURPOSE:
  Implements reports.Dispatcher. Each report is sent to the employee's
  address with a short text summary and the full report attached as an
  .xlsx workbook.

MODES:
  - SMTP: gomail over the configured server (EMAIL_ENABLED=true, SMTP_HOST set)
  - Noop: logs and succeeds, so report lifecycles work on a dev machine

SEE ALSO:
  - workbook.go: The attachment
  - reports/controller.go: Send, which calls Dispatch
  - config/config.go: SMTP settings
*/
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/reports"
	"gopkg.in/gomail.v2"
)

// ErrNoRecipient is returned when the employee has no email address.
var ErrNoRecipient = errors.New("employee has no email address")

// Config holds the SMTP settings.
type Config struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// New returns the SMTP mailer, or a noop dispatcher when email is disabled.
func New(cfg Config) reports.Dispatcher {
	if !cfg.Enabled || cfg.Host == "" {
		log.WithField("component", "mailer").Info("email disabled, reports will not be delivered")
		return Noop{}
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &Mailer{
		From: cfg.From,
		open: func() (gomail.SendCloser, error) { return d.Dial() },
	}
}

// NewWithSender builds a mailer on an existing sender. Tests pass a
// gomail.SendFunc.
func NewWithSender(from string, sender gomail.Sender) *Mailer {
	return &Mailer{
		From: from,
		open: func() (gomail.SendCloser, error) { return nopCloser{sender}, nil },
	}
}

// Mailer sends reports through gomail.
type Mailer struct {
	From string
	open func() (gomail.SendCloser, error)
}

type nopCloser struct{ gomail.Sender }

func (nopCloser) Close() error { return nil }

// Dispatch emails the report to the employee.
func (m *Mailer) Dispatch(ctx context.Context, r reports.Report, employee generic.CompensationProfile) error {
	contextLogger := log.WithContext(ctx).WithFields(log.Fields{
		"component":   "mailer",
		"employee_id": employee.EmployeeID,
		"report":      r.Key().String(),
	})

	to := strings.TrimSpace(employee.Email)
	if to == "" {
		return fmt.Errorf("%w: %s", ErrNoRecipient, employee.EmployeeID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", Subject(r))
	msg.SetBody("text/plain", Body(r, employee))
	msg.Attach(WorkbookName(r), gomail.SetCopyFunc(func(w io.Writer) error {
		return WriteWorkbook(w, r, employee)
	}))

	sender, err := m.open()
	if err != nil {
		contextLogger.WithError(err).Error("Error when connecting to SMTP server")
		return fmt.Errorf("connect: %w", err)
	}
	defer sender.Close()

	if err := gomail.Send(sender, msg); err != nil {
		contextLogger.WithError(err).Error("Error when sending email")
		return err
	}
	contextLogger.Info("report emailed")
	return nil
}

// Subject is the email subject of a report.
func Subject(r reports.Report) string {
	return fmt.Sprintf("Attendance report %04d-%02d", r.Year, int(r.Month))
}

// Body is the plain-text summary of a report.
func Body(r reports.Report, employee generic.CompensationProfile) string {
	d := r.Data
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", employee.Name)
	fmt.Fprintf(&b, "Your attendance report for %04d-%02d is attached.\n\n", r.Year, int(r.Month))
	fmt.Fprintf(&b, "Days present:   %d of %d required\n", d.DaysPresent, d.RequiredWorkingDays)
	fmt.Fprintf(&b, "Late arrivals:  %d\n", d.LateArrivals)
	fmt.Fprintf(&b, "Overtime hours: %s\n", d.OvertimeHours.StringFixed(2))
	fmt.Fprintf(&b, "Payable days:   %d\n", d.PayableDays)
	if p := r.Payroll; p != nil {
		fmt.Fprintf(&b, "\nGross salary:   %s %s\n", p.GrossSalary.StringFixed(2), p.Currency)
		fmt.Fprintf(&b, "Deductions:     %s %s\n", p.TotalDeductions.StringFixed(2), p.Currency)
		fmt.Fprintf(&b, "Net salary:     %s %s\n", p.NetSalary.StringFixed(2), p.Currency)
	}
	return b.String()
}

// =============================================================================
// NOOP DISPATCHER
// =============================================================================

// Noop accepts every report without delivering it.
type Noop struct{}

func (Noop) Dispatch(ctx context.Context, r reports.Report, employee generic.CompensationProfile) error {
	log.WithContext(ctx).WithFields(log.Fields{
		"component":   "mailer",
		"employee_id": employee.EmployeeID,
		"report":      r.Key().String(),
	}).Info("email disabled, report not delivered")
	return nil
}
