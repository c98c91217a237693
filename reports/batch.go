package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/warp/payroll-engine/generic"
	"golang.org/x/sync/errgroup"
)

// OutcomeStatus is the result of one employee in a batch.
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// Outcome is one employee's result. Reason is empty on success.
type Outcome struct {
	EmployeeID generic.EmployeeID
	Status     OutcomeStatus
	Reason     string
}

// BatchResult summarises a batch. Succeeded lists exactly the employees whose
// write committed. Cancelled lists employees never processed because the
// context was cancelled.
type BatchResult struct {
	Year      int
	Month     time.Month
	Succeeded []Outcome
	Skipped   []Outcome
	Failed    []Outcome
	Cancelled []Outcome
}

// Total is the number of employees considered.
func (r BatchResult) Total() int {
	return len(r.Succeeded) + len(r.Skipped) + len(r.Failed) + len(r.Cancelled)
}

func (r *BatchResult) add(o Outcome) {
	switch o.Status {
	case OutcomeSucceeded:
		r.Succeeded = append(r.Succeeded, o)
	case OutcomeSkipped:
		r.Skipped = append(r.Skipped, o)
	case OutcomeCancelled:
		r.Cancelled = append(r.Cancelled, o)
	default:
		r.Failed = append(r.Failed, o)
	}
}

func (r *BatchResult) sort() {
	for _, list := range [][]Outcome{r.Succeeded, r.Skipped, r.Failed, r.Cancelled} {
		sort.Slice(list, func(i, j int) bool { return list[i].EmployeeID < list[j].EmployeeID })
	}
}

// =============================================================================
// BATCH OPERATIONS
// =============================================================================

// BatchGenerate generates the month's report for every active employee.
func (c *Controller) BatchGenerate(ctx context.Context, year int, month time.Month) (BatchResult, error) {
	return c.runBatch(ctx, "generate", year, month, func(ctx context.Context, id generic.EmployeeID) error {
		_, err := c.Generate(ctx, id, year, month)
		return err
	})
}

// BatchSend dispatches the month's report of every active employee.
// Employees without a generated report are skipped.
func (c *Controller) BatchSend(ctx context.Context, year int, month time.Month, actorID string) (BatchResult, error) {
	return c.runBatch(ctx, "send", year, month, func(ctx context.Context, id generic.EmployeeID) error {
		_, err := c.Send(ctx, id, year, month, actorID)
		return err
	})
}

// runBatch applies fn to every active employee with bounded parallelism.
// Errors are recorded per employee and never stop the batch; only a
// cancelled context stops scheduling. Work already committed stays committed.
func (c *Controller) runBatch(ctx context.Context, op string, year int, month time.Month, fn func(context.Context, generic.EmployeeID) error) (BatchResult, error) {
	result := BatchResult{Year: year, Month: month}
	if err := generic.ValidateMonth(year, month); err != nil {
		return result, err
	}

	employees, err := c.Roster.ListActiveEmployees(ctx)
	if err != nil {
		return result, fmt.Errorf("list employees: %w", err)
	}

	logger := c.logger().WithFields(log.Fields{
		"operation": op,
		"period":    fmt.Sprintf("%04d-%02d", year, int(month)),
		"employees": len(employees),
	})
	logger.Info("batch started")

	var mu sync.Mutex
	record := func(o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		result.add(o)
	}

	limit := c.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)

	for _, emp := range employees {
		id := emp.EmployeeID
		if ctx.Err() != nil {
			record(Outcome{EmployeeID: id, Status: OutcomeCancelled, Reason: ctx.Err().Error()})
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				record(Outcome{EmployeeID: id, Status: OutcomeCancelled, Reason: ctx.Err().Error()})
				return nil
			}
			err := protect(func() error { return fn(ctx, id) })
			o := classify(id, err)
			if o.Status == OutcomeFailed {
				logger.WithError(err).WithField("employee_id", id).Warn("batch item failed")
			}
			record(o)
			return nil
		})
	}
	_ = g.Wait()

	result.sort()
	logger.WithFields(log.Fields{
		"succeeded": len(result.Succeeded),
		"skipped":   len(result.Skipped),
		"failed":    len(result.Failed),
		"cancelled": len(result.Cancelled),
	}).Info("batch finished")
	return result, nil
}

// protect turns a panic in fn into an error so one employee cannot take the
// whole batch down.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func classify(id generic.EmployeeID, err error) Outcome {
	switch {
	case err == nil:
		return Outcome{EmployeeID: id, Status: OutcomeSucceeded}
	case generic.IsSkippable(err):
		return Outcome{EmployeeID: id, Status: OutcomeSkipped, Reason: err.Error()}
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return Outcome{EmployeeID: id, Status: OutcomeCancelled, Reason: err.Error()}
	default:
		return Outcome{EmployeeID: id, Status: OutcomeFailed, Reason: err.Error()}
	}
}
