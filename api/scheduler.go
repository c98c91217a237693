/*
scheduler.go - Automated month-end report generation

PURPOSE:
  Periodically checks whether the previous month's reports have been
  generated and, if not, runs Batch Generate for it. Every batch, manual
  or scheduled, is recorded as a batch run for audit and UI display.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Targets the month before the current one
  - Skips months whose generate run already completed
  - A run with failed or cancelled employees is recorded as failed, so
    the next tick retries the month
  - Stop cancels an in-flight batch; committed reports stay committed

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewMonthlyScheduler(runner, store)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - reports.go: BatchGenerate and BatchSend endpoints (manual runs)
  - reports/batch.go: Batch semantics
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/reports"
	"github.com/warp/payroll-engine/store/sqlite"
)

// Batch operations.
const (
	OpGenerate = "generate"
	OpSend     = "send"
)

// SchedulerActor is the trigger recorded for scheduled runs.
const SchedulerActor = "scheduler"

// =============================================================================
// BATCH RUNNER
// =============================================================================

// BatchRunner runs a batch operation and records it as a batch run.
type BatchRunner struct {
	Store      *sqlite.Store
	Controller *reports.Controller
	Now        func() time.Time
}

func NewBatchRunner(store *sqlite.Store, controller *reports.Controller) *BatchRunner {
	return &BatchRunner{Store: store, Controller: controller, Now: time.Now}
}

func (b *BatchRunner) now() time.Time {
	if b.Now == nil {
		return time.Now().UTC()
	}
	return b.Now().UTC()
}

// Run executes op for the month and returns the run ID with the result.
// The error is non-nil only when the batch could not start.
func (b *BatchRunner) Run(ctx context.Context, op string, year int, month time.Month, triggeredBy string) (string, reports.BatchResult, error) {
	if err := generic.ValidateMonth(year, month); err != nil {
		return "", reports.BatchResult{}, err
	}

	startTime := b.now()
	run := sqlite.BatchRun{
		ID:          uuid.NewString(),
		Operation:   op,
		Year:        year,
		Month:       month,
		Status:      sqlite.RunRunning,
		TriggeredBy: triggeredBy,
		StartedAt:   &startTime,
		CreatedAt:   startTime,
	}
	// Run records are written even when ctx is cancelled.
	recordCtx := context.WithoutCancel(ctx)
	if err := b.Store.SaveBatchRun(recordCtx, run); err != nil {
		return "", reports.BatchResult{}, fmt.Errorf("failed to save run record: %w", err)
	}

	var result reports.BatchResult
	var err error
	switch op {
	case OpGenerate:
		result, err = b.Controller.BatchGenerate(ctx, year, month)
	case OpSend:
		result, err = b.Controller.BatchSend(ctx, year, month, triggeredBy)
	default:
		err = fmt.Errorf("unknown batch operation %q", op)
	}

	completedTime := b.now()
	run.CompletedAt = &completedTime
	run.Succeeded = len(result.Succeeded)
	run.Skipped = len(result.Skipped)
	run.Failed = len(result.Failed)
	run.Cancelled = len(result.Cancelled)
	switch {
	case err != nil:
		run.Status = sqlite.RunFailed
		run.Error = err.Error()
	case run.Failed > 0 || run.Cancelled > 0:
		run.Status = sqlite.RunFailed
		run.Error = fmt.Sprintf("%d failed, %d cancelled", run.Failed, run.Cancelled)
	default:
		run.Status = sqlite.RunCompleted
	}

	if saveErr := b.Store.SaveBatchRun(recordCtx, run); saveErr != nil {
		log.WithError(saveErr).WithField("run_id", run.ID).Error("failed to update run record")
	}
	return run.ID, result, err
}

// =============================================================================
// MONTHLY SCHEDULER
// =============================================================================

// MonthlyScheduler generates the previous month's reports once.
type MonthlyScheduler struct {
	Runner        *BatchRunner
	Store         *sqlite.Store
	CheckInterval time.Duration
	Enabled       bool
	Now           func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex

	// guarded by stateMu
	stateMu   sync.Mutex
	running   bool
	lastCheck time.Time
}

// NewMonthlyScheduler creates a new scheduler.
func NewMonthlyScheduler(runner *BatchRunner, store *sqlite.Store) *MonthlyScheduler {
	return &MonthlyScheduler{
		Runner:        runner,
		Store:         store,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Now:           time.Now,
	}
}

func (s *MonthlyScheduler) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *MonthlyScheduler) markCheck(running bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.running = running
	s.lastCheck = s.now()
}

func (s *MonthlyScheduler) logger() *log.Entry {
	return log.WithField("component", "scheduler")
}

// Start begins the scheduler.
func (s *MonthlyScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger().Info("Disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stop = make(chan struct{})
	s.ticker = time.NewTicker(s.CheckInterval)
	s.markCheck(true)
	s.wg.Add(1)

	go s.run(ctx)

	s.logger().WithField("interval", s.CheckInterval).Info("Started")
}

// Stop stops the scheduler and waits for an in-flight batch to wind down.
func (s *MonthlyScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.cancel()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil

	s.stateMu.Lock()
	s.running = false
	s.stateMu.Unlock()
	s.logger().Info("Stopped")
}

func (s *MonthlyScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	// Run immediately on start
	s.checkAndProcess(ctx)

	for {
		select {
		case <-s.ticker.C:
			s.markCheck(true)
			s.checkAndProcess(ctx)
		case <-s.stop:
			return
		}
	}
}

// checkAndProcess reports whether a batch was run.
func (s *MonthlyScheduler) checkAndProcess(ctx context.Context) bool {
	year, month := generic.PreviousMonth(generic.FromTime(s.now()))
	logger := s.logger().WithField("period", fmt.Sprintf("%04d-%02d", year, int(month)))

	done, err := s.Store.IsBatchComplete(ctx, OpGenerate, year, month)
	if err != nil {
		logger.WithError(err).Error("Error checking batch status")
		return false
	}
	if done {
		logger.Debug("Already generated, skipping")
		return false
	}

	runID, result, err := s.Runner.Run(ctx, OpGenerate, year, month, SchedulerActor)
	if err != nil {
		logger.WithError(err).Error("Batch generate failed")
		return true
	}
	logger.WithFields(log.Fields{
		"run_id":    runID,
		"succeeded": len(result.Succeeded),
		"skipped":   len(result.Skipped),
		"failed":    len(result.Failed),
		"cancelled": len(result.Cancelled),
	}).Info("Batch generate completed")
	return true
}

// RunNow triggers an immediate check (for testing/admin).
func (s *MonthlyScheduler) RunNow(ctx context.Context) bool {
	return s.checkAndProcess(ctx)
}

// GetNextRunTime returns when the next scheduled check will occur.
// ok is false while the scheduler is not running.
func (s *MonthlyScheduler) GetNextRunTime() (next time.Time, ok bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if !s.running {
		return time.Time{}, false
	}
	return s.lastCheck.Add(s.CheckInterval), true
}
