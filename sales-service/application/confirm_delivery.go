package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/models"
	"github.com/vehiclemarket/sales-system/shared/saga"
	"github.com/vehiclemarket/sales-system/shared/telemetry"
)

// ConfirmDeliveryCommand represents the command to confirm a vehicle hand over
type ConfirmDeliveryCommand struct {
	SaleID string `json:"sale_id"`
}

// ConfirmDelivery resumes the saga of a paid sale through the delivery steps
type ConfirmDelivery struct {
	orchestrator *SagaOrchestrator
}

// NewConfirmDelivery creates a new ConfirmDelivery use case
func NewConfirmDelivery(orchestrator *SagaOrchestrator) *ConfirmDelivery {
	return &ConfirmDelivery{
		orchestrator: orchestrator,
	}
}

// Execute runs the remaining steps from where the saga stopped, so a failed
// delivery can be retried
func (uc *ConfirmDelivery) Execute(ctx context.Context, cmd *ConfirmDeliveryCommand) (*domain.Sale, error) {
	ctx, span := telemetry.StartSpan(ctx, "ConfirmDelivery.Execute")
	defer span.End()

	start := time.Now()
	status := "success"
	defer func() {
		telemetry.RecordOperation(ctx, "confirm_delivery", status, start)
	}()

	saleID, err := models.NewID(cmd.SaleID)
	if err != nil {
		status = "invalid"
		return nil, errors.Wrap(err, "invalid sale ID")
	}

	o := uc.orchestrator
	sale, err := o.saleRepository.FindByID(ctx, saleID)
	if err != nil {
		status = "error"
		return nil, errors.Wrap(err, "failed to find sale")
	}
	if sale == nil {
		status = "not_found"
		return nil, domain.ErrSaleNotFound
	}

	switch sale.Status {
	case domain.SaleStatusCompleted:
		status = "unchanged"
		return sale, nil
	case domain.SaleStatusPaymentApproved, domain.SaleStatusVehicleDelivered:
	default:
		status = "rejected"
		return nil, domain.NewInvalidSaleState(sale.Status, "confirm delivery of")
	}

	found, err := o.sagaRepository.FindBySaleID(ctx, sale.ID)
	if err != nil {
		status = "error"
		return nil, errors.Wrap(err, "failed to find saga")
	}
	if found == nil {
		status = "error"
		return nil, domain.ErrSagaNotFound
	}
	s := *found

	if s.Status != saga.StatusCompleted {
		if s.Status != saga.StatusInProgress {
			status = "rejected"
			return nil, errors.Wrapf(domain.ErrInvalidSaleState, "saga of sale %s is %s", sale.ID, s.Status)
		}

		s, err = o.runSteps(ctx, s.WithSale(sale, o.clock()), len(s.Steps))
		if err != nil {
			status = "error"
			step := o.stepName(s, s.CurrentStep)
			o.record(ctx, domain.NewSagaEvent(s, saga.EventStepFailed, step, o.clock()).WithError(err.Error()))
			return nil, errors.Wrapf(err, "delivery stopped at step %s", step)
		}
		o.record(ctx, domain.NewSagaEvent(s, saga.EventSagaCompleted, "", o.clock()))
	}

	sale, err = o.loadSale(ctx, s)
	if err != nil {
		status = "error"
		return nil, err
	}
	if sale.Status == domain.SaleStatusPaymentApproved {
		sale.MarkDelivered(o.clock())
	}
	if err := sale.Complete(o.clock()); err != nil {
		status = "error"
		return nil, err
	}
	if err := o.saleRepository.Update(ctx, sale); err != nil {
		status = "error"
		return nil, errors.Wrap(err, "failed to update sale")
	}

	o.publish(ctx,
		events.NewEvent(s.ID, events.SagaCompletedEvent, NewSagaView(s)).WithCorrelationID(sale.ID),
		events.NewEvent(sale.ID, events.SaleCompletedEvent, NewSaleView(sale)).WithCorrelationID(s.ID),
	)

	return sale, nil
}
