package application

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/saga"
	"github.com/vehiclemarket/sales-system/shared/telemetry"
)

// SagaFailedData is the payload of the saga.failed integration event
type SagaFailedData struct {
	SagaID string `json:"saga_id"`
	SaleID string `json:"sale_id"`
	Error  string `json:"error"`
}

// handleFailure marks the current step failed and undoes every completed step
func (o *SagaOrchestrator) handleFailure(ctx context.Context, s domain.SagaInstance, cause error) domain.SagaInstance {
	return o.handleFailureAt(ctx, s, s.CurrentStep, cause)
}

// handleFailureAt is handleFailure with the failure recorded against step
func (o *SagaOrchestrator) handleFailureAt(ctx context.Context, s domain.SagaInstance, step int, cause error) domain.SagaInstance {
	ctx, span := telemetry.StartSpan(ctx, "saga.handle_failure")
	defer span.End()
	span.RecordError(cause)

	failedStep := o.stepName(s, step)
	o.log(ctx, s).WithError(cause).WithField("step", failedStep.String()).Warn("saga step failed")

	s = s.MarkFailedAt(step, cause.Error(), o.clock())
	o.record(ctx, domain.NewSagaEvent(s, saga.EventStepFailed, failedStep, o.clock()).WithError(cause.Error()))

	s = s.BeginCompensation(o.clock())
	_ = o.save(ctx, s)

	return o.compensate(ctx, s, cause.Error())
}

// compensate runs the compensation loop of a COMPENSATING saga until nothing is left
// or a compensation fails
func (o *SagaOrchestrator) compensate(ctx context.Context, s domain.SagaInstance, reason string) domain.SagaInstance {
	for {
		index, ok := s.NextCompensationStep()
		if !ok {
			break
		}
		step := o.stepName(s, index)

		o.record(ctx, domain.NewSagaEvent(s, saga.EventCompensationStarted, step, o.clock()).WithReason(reason))

		next, err := o.compensateStep(ctx, s, step, reason)
		if err != nil {
			failure := domain.NewCompensationFailure(step, err)
			o.log(ctx, s).WithError(failure).Error("saga compensation failed")

			s = s.FailCompensation(failure.Error(), o.clock())
			o.record(ctx, domain.NewSagaEvent(s, saga.EventCompensationFailed, step, o.clock()).WithError(failure.Error()))
			_ = o.save(ctx, s)
			o.publishSagaFailed(ctx, s)
			return s
		}

		s = next.CompleteCompensationStep(index, o.clock())
		_ = o.save(ctx, s)
		o.record(ctx, domain.NewSagaEvent(s, saga.EventCompensationCompleted, step, o.clock()))
	}

	if s.Status == saga.StatusCompensating {
		s = s.EndCompensation(o.clock())
		_ = o.save(ctx, s)
	}

	o.record(ctx, domain.NewSagaEvent(s, saga.EventSagaFailed, o.stepName(s, s.CurrentStep), o.clock()).WithError(s.LastError))
	o.publishSagaFailed(ctx, s)
	return s
}

func (o *SagaOrchestrator) publishSagaFailed(ctx context.Context, s domain.SagaInstance) {
	o.publish(ctx, events.NewEvent(s.ID, events.SagaFailedEvent, SagaFailedData{
		SagaID: s.ID.String(),
		SaleID: s.SaleID.String(),
		Error:  s.LastError,
	}).WithCorrelationID(s.SaleID))
}

func (o *SagaOrchestrator) compensateStep(ctx context.Context, s domain.SagaInstance, step domain.SagaStep, reason string) (domain.SagaInstance, error) {
	ctx, span := telemetry.StartSpan(ctx, "saga.compensate."+step.String())
	defer span.End()

	switch step {
	case domain.StepReserveVehicle:
		return o.releaseVehicle(ctx, s)
	case domain.StepCreatePayment:
		return o.cancelPayment(ctx, s, reason)
	default:
		return s, nil
	}
}

func (o *SagaOrchestrator) releaseVehicle(ctx context.Context, s domain.SagaInstance) (domain.SagaInstance, error) {
	if s.Compensation.Vehicle == nil {
		return s, nil
	}

	released := s.Compensation.Vehicle.WithStatus(domain.VehicleStatusAvailable, o.clock())
	if err := o.vehicleRepository.Update(ctx, &released, domain.VehicleStatusReserved); err != nil {
		if !errors.Is(err, domain.ErrReservationConflict) {
			return s, errors.Wrap(err, "failed to release vehicle")
		}
		// no longer reserved, there is nothing to undo
		o.log(ctx, s).WithField("vehicle_id", s.VehicleID.String()).Warn("vehicle was not reserved during compensation")
		return s, nil
	}

	return s.WithVehicle(released, o.clock()), nil
}

func (o *SagaOrchestrator) cancelPayment(ctx context.Context, s domain.SagaInstance, reason string) (domain.SagaInstance, error) {
	payment := s.Compensation.Payment
	if payment != nil && payment.Status == domain.PaymentStatusPending {
		if payment.TransactionID != "" {
			if _, err := o.paymentGateway.CancelPayment(ctx, payment.TransactionID); err != nil {
				return s, domain.NewGatewayFailure(err)
			}
		}

		cancelled := *payment
		if err := cancelled.Cancel(reason, o.clock()); err != nil {
			return s, err
		}
		s = s.WithPayment(cancelled, o.clock())
	}

	if s.Compensation.Sale != nil {
		sale := s.Compensation.Sale.Clone()
		if !sale.Status.IsClosed() {
			if err := sale.Cancel(reason, o.clock()); err != nil {
				return s, err
			}
			if err := o.saleRepository.Update(ctx, sale); err != nil {
				return s, errors.Wrap(err, "failed to cancel sale")
			}
			o.publish(ctx, events.NewEvent(sale.ID, events.SaleCancelledEvent, NewSaleView(sale)).WithCorrelationID(s.ID))
		}
		s = s.WithSale(sale, o.clock())
	}

	return s, nil
}
