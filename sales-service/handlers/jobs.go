package handlers

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/vehiclemarket/sales-system/sales-service/application"
	"github.com/vehiclemarket/sales-system/shared/logging"
)

const DefaultRecoverySchedule = "*/5 * * * *"

// SagaRecoverer runs one recovery sweep
type SagaRecoverer interface {
	Execute(ctx context.Context) (*application.RecoveryReport, error)
}

// RecoveryJob runs the saga recovery sweep on a cron schedule. Sweeps never overlap.
type RecoveryJob struct {
	recoverer SagaRecoverer
	schedule  cron.Schedule
	logger    *logging.Logger

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRecoveryJob parses a five field cron expression
func NewRecoveryJob(recoverer SagaRecoverer, expr string, logger *logging.Logger) (*RecoveryJob, error) {
	if expr == "" {
		expr = DefaultRecoverySchedule
	}
	if logger == nil {
		logger = logging.Nop()
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid recovery schedule %q", expr)
	}

	return &RecoveryJob{
		recoverer: recoverer,
		schedule:  schedule,
		logger:    logger.WithField("job", "saga_recovery"),
	}, nil
}

// Start runs one sweep right away and then follows the schedule until Stop or ctx ends
func (j *RecoveryJob) Start(ctx context.Context) {
	j.mu.Lock()
	if j.cron != nil {
		j.mu.Unlock()
		return
	}
	j.ctx, j.cancel = context.WithCancel(ctx)
	j.cron = cron.New()
	j.cron.Schedule(j.schedule, cron.FuncJob(j.Run))
	j.cron.Start()
	j.mu.Unlock()

	go j.Run()
}

// Stop halts the schedule and waits for a running sweep to finish
func (j *RecoveryJob) Stop() {
	j.mu.Lock()
	c, cancel := j.cron, j.cancel
	j.cron = nil
	j.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	cancel()
}

// Run performs a single sweep unless one is already in progress
func (j *RecoveryJob) Run() {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		j.logger.Debug("previous recovery sweep still running")
		return
	}
	j.running = true
	ctx := j.ctx
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	report, err := j.recoverer.Execute(ctx)
	if err != nil {
		j.logger.WithContext(ctx).WithError(err).Error("saga recovery sweep failed")
		return
	}
	j.logger.WithContext(ctx).Infof("saga recovery sweep", map[string]interface{}{
		"scanned":     report.Scanned,
		"compensated": report.Compensated,
		"timed_out":   report.TimedOut,
		"exhausted":   report.Exhausted,
		"skipped":     report.Skipped,
	})
}
