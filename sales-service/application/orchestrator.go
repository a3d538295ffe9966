package application

import (
	"context"
	"time"

	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/logging"
	"github.com/vehiclemarket/sales-system/shared/saga"
	"github.com/vehiclemarket/sales-system/shared/telemetry"
)

// SagaOrchestrator runs sale saga steps and their compensations. Every
// transition is persisted before the next one starts.
type SagaOrchestrator struct {
	buyerRepository   domain.BuyerRepository
	vehicleRepository domain.VehicleRepository
	saleRepository    domain.SaleRepository
	sagaRepository    domain.SagaRepository
	paymentGateway    domain.PaymentGateway
	eventPublisher    events.Publisher
	logger            *logging.Logger
	now               func() time.Time
}

// OrchestratorOption customizes a SagaOrchestrator
type OrchestratorOption func(*SagaOrchestrator)

// WithClock replaces time.Now
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *SagaOrchestrator) {
		o.now = now
	}
}

// WithLogger sets the orchestrator logger
func WithLogger(logger *logging.Logger) OrchestratorOption {
	return func(o *SagaOrchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewSagaOrchestrator creates a new SagaOrchestrator
func NewSagaOrchestrator(
	buyerRepository domain.BuyerRepository,
	vehicleRepository domain.VehicleRepository,
	saleRepository domain.SaleRepository,
	sagaRepository domain.SagaRepository,
	paymentGateway domain.PaymentGateway,
	eventPublisher events.Publisher,
	opts ...OrchestratorOption,
) *SagaOrchestrator {
	o := &SagaOrchestrator{
		buyerRepository:   buyerRepository,
		vehicleRepository: vehicleRepository,
		saleRepository:    saleRepository,
		sagaRepository:    sagaRepository,
		paymentGateway:    paymentGateway,
		eventPublisher:    eventPublisher,
		logger:            logging.Nop(),
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

func (o *SagaOrchestrator) clock() time.Time {
	return o.now().UTC()
}

func (o *SagaOrchestrator) log(ctx context.Context, s domain.SagaInstance) *logging.Logger {
	return o.logger.WithContext(ctx).
		WithField("saga_id", s.ID.String()).
		WithField("sale_id", s.SaleID.String())
}

// save persists s; failures are logged because the caller keeps going either way
func (o *SagaOrchestrator) save(ctx context.Context, s domain.SagaInstance) error {
	if err := o.sagaRepository.Save(ctx, &s); err != nil {
		o.log(ctx, s).WithError(err).Error("failed to persist saga")
		return err
	}
	return nil
}

// record appends to the saga audit log, best effort
func (o *SagaOrchestrator) record(ctx context.Context, event domain.SagaEvent) {
	telemetry.RecordSagaTransition(ctx, event.Type.String(), event.Step.String())
	if err := o.sagaRepository.AddEvent(ctx, event); err != nil {
		o.logger.WithContext(ctx).WithError(err).
			WithField("saga_id", event.SagaID.String()).
			WithField("event_type", event.Type.String()).
			Warn("failed to record saga event")
	}
}

// publish sends integration events, best effort
func (o *SagaOrchestrator) publish(ctx context.Context, evts ...*events.Event) {
	if o.eventPublisher == nil || len(evts) == 0 {
		return
	}
	if err := o.eventPublisher.Publish(ctx, evts...); err != nil {
		o.logger.WithContext(ctx).WithError(err).Warn("failed to publish sale events")
	}
}

func (o *SagaOrchestrator) stepName(s domain.SagaInstance, index int) domain.SagaStep {
	step, _ := s.Step(index)
	return step
}

// runSteps executes steps from the current one while the index is below until
func (o *SagaOrchestrator) runSteps(ctx context.Context, s domain.SagaInstance, until int) (domain.SagaInstance, error) {
	for s.CurrentStep < until && s.Status != saga.StatusCompleted {
		step := o.stepName(s, s.CurrentStep)
		o.record(ctx, domain.NewSagaEvent(s, saga.EventStepStarted, step, o.clock()))

		next, err := o.executeStep(ctx, s, step)
		if err != nil {
			return s, err
		}

		next = next.Advance(o.clock())
		if err := o.save(ctx, next); err != nil {
			return next, err
		}
		s = next

		o.record(ctx, domain.NewSagaEvent(s, saga.EventStepCompleted, step, o.clock()))
	}
	return s, nil
}
