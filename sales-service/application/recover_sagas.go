package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/saga"
	"github.com/vehiclemarket/sales-system/shared/telemetry"
)

const (
	sagaTimedOut               = "saga timed out"
	recoveryAttemptsExhausted  = "recovery attempts exhausted"
	defaultRecoveryStaleAfter  = 15 * time.Minute
	recoveryCompensationReason = "recovery"
)

// RecoveryReport summarizes one recovery sweep
type RecoveryReport struct {
	Scanned     int `json:"scanned"`
	Compensated int `json:"compensated"`
	TimedOut    int `json:"timed_out"`
	Exhausted   int `json:"exhausted"`
	Skipped     int `json:"skipped"`
}

// RecoverSagas finishes sagas left behind by a crash or a lost request
type RecoverSagas struct {
	orchestrator *SagaOrchestrator
	staleAfter   time.Duration
}

// NewRecoverSagas creates a new RecoverSagas use case. Sagas that have not moved
// for staleAfter and never stored a sale are compensated.
func NewRecoverSagas(orchestrator *SagaOrchestrator, staleAfter time.Duration) *RecoverSagas {
	if staleAfter <= 0 {
		staleAfter = defaultRecoveryStaleAfter
	}
	return &RecoverSagas{
		orchestrator: orchestrator,
		staleAfter:   staleAfter,
	}
}

// Execute sweeps every active saga once
func (uc *RecoverSagas) Execute(ctx context.Context) (*RecoveryReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "RecoverSagas.Execute")
	defer span.End()

	start := time.Now()
	status := "success"
	defer func() {
		telemetry.RecordOperation(ctx, "recover_sagas", status, start)
	}()

	o := uc.orchestrator
	active, err := o.sagaRepository.FindActive(ctx)
	if err != nil {
		status = "error"
		return nil, errors.Wrap(err, "failed to find active sagas")
	}

	report := &RecoveryReport{Scanned: len(active)}
	for _, found := range active {
		if ctx.Err() != nil {
			status = "cancelled"
			return report, ctx.Err()
		}
		uc.recover(ctx, *found, report)
	}

	if report.Compensated+report.TimedOut+report.Exhausted > 0 {
		o.logger.WithContext(ctx).Infof("saga recovery sweep finished", map[string]interface{}{
			"scanned":     report.Scanned,
			"compensated": report.Compensated,
			"timed_out":   report.TimedOut,
			"exhausted":   report.Exhausted,
		})
	}

	return report, nil
}

func (uc *RecoverSagas) recover(ctx context.Context, s domain.SagaInstance, report *RecoveryReport) {
	o := uc.orchestrator

	switch s.Status {
	case saga.StatusCompensating:
	case saga.StatusStarted, saga.StatusInProgress:
		// sales that reached the gateway wait for its notification
		if s.Compensation.Sale != nil || o.clock().Sub(s.Timestamps.UpdatedAt) < uc.staleAfter {
			report.Skipped++
			return
		}
	default:
		report.Skipped++
		return
	}

	if s.RetriesExhausted() {
		s = s.FailCompensation(recoveryAttemptsExhausted, o.clock())
		_ = o.save(ctx, s)
		o.record(ctx, domain.NewSagaEvent(s, saga.EventSagaFailed, o.stepName(s, s.CurrentStep), o.clock()).WithError(s.LastError))
		o.log(ctx, s).Error("giving up on saga recovery")
		report.Exhausted++
		return
	}

	s = s.IncrementRetry(o.clock())
	if err := o.save(ctx, s); err != nil {
		report.Skipped++
		return
	}

	if s.Status == saga.StatusCompensating {
		o.log(ctx, s).Info("resuming saga compensation")
		o.compensate(ctx, s, recoveryCompensationReason)
		report.Compensated++
		return
	}

	o.log(ctx, s).Warn("compensating stale saga")
	o.handleFailure(ctx, s, errors.New(sagaTimedOut))
	report.TimedOut++
}
