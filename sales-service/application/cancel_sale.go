package application

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/models"
	"github.com/vehiclemarket/sales-system/shared/saga"
	"github.com/vehiclemarket/sales-system/shared/telemetry"
)

const defaultCancelReason = "cancelled by request"

// CancelSaleCommand represents the command to cancel a sale
type CancelSaleCommand struct {
	SaleID string `json:"sale_id"`
	Reason string `json:"reason"`
}

// CancelSale cancels an open sale, its gateway payment and the vehicle reservation
type CancelSale struct {
	orchestrator *SagaOrchestrator
}

// NewCancelSale creates a new CancelSale use case
func NewCancelSale(orchestrator *SagaOrchestrator) *CancelSale {
	return &CancelSale{
		orchestrator: orchestrator,
	}
}

// Execute executes the cancel sale use case
func (uc *CancelSale) Execute(ctx context.Context, cmd *CancelSaleCommand) (*domain.Sale, error) {
	ctx, span := telemetry.StartSpan(ctx, "CancelSale.Execute")
	defer span.End()

	start := time.Now()
	status := "success"
	defer func() {
		telemetry.RecordOperation(ctx, "cancel_sale", status, start)
	}()

	saleID, err := models.NewID(cmd.SaleID)
	if err != nil {
		status = "invalid"
		return nil, errors.Wrap(err, "invalid sale ID")
	}

	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = defaultCancelReason
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
	if sale.Status.IsClosed() {
		status = "rejected"
		return nil, domain.NewInvalidSaleState(sale.Status, "cancel")
	}

	if sale.Payment.Status.IsOpen() && sale.Payment.TransactionID != "" {
		if _, err := o.paymentGateway.CancelPayment(ctx, sale.Payment.TransactionID); err != nil {
			status = "error"
			return nil, domain.NewGatewayFailure(err)
		}
	}

	if err := uc.releaseVehicle(ctx, sale.VehicleID); err != nil {
		status = "error"
		return nil, err
	}

	if err := sale.Cancel(reason, o.clock()); err != nil {
		status = "rejected"
		return nil, err
	}

	if err := o.saleRepository.Update(ctx, sale); err != nil {
		status = "error"
		return nil, errors.Wrap(err, "failed to update sale")
	}

	uc.closeSaga(ctx, sale, reason)
	o.publish(ctx, events.NewEvent(sale.ID, events.SaleCancelledEvent, NewSaleView(sale)))

	return sale, nil
}

// releaseVehicle moves a reserved vehicle back to available; a vehicle that is
// not reserved is left alone
func (uc *CancelSale) releaseVehicle(ctx context.Context, vehicleID models.ID) error {
	o := uc.orchestrator

	vehicle, err := o.vehicleRepository.FindByID(ctx, vehicleID)
	if err != nil {
		return errors.Wrap(err, "failed to load vehicle")
	}
	if vehicle == nil {
		return nil
	}

	released := vehicle.WithStatus(domain.VehicleStatusAvailable, o.clock())
	if err := o.vehicleRepository.Update(ctx, &released, domain.VehicleStatusReserved); err != nil {
		if errors.Is(err, domain.ErrReservationConflict) {
			return nil
		}
		return errors.Wrap(err, "failed to release vehicle")
	}
	return nil
}

// closeSaga fails the sale's saga if it is still waiting on the payment, best effort
func (uc *CancelSale) closeSaga(ctx context.Context, sale *domain.Sale, reason string) {
	o := uc.orchestrator

	s, err := o.sagaRepository.FindBySaleID(ctx, sale.ID)
	if err != nil || s == nil || s.Status.IsTerminal() {
		if err != nil {
			o.logger.WithContext(ctx).WithError(err).WithField("sale_id", sale.ID.String()).Warn("failed to load saga of cancelled sale")
		}
		return
	}

	closed := s.WithSale(sale, o.clock()).MarkFailed("sale cancelled: "+reason, o.clock())
	if err := o.save(ctx, closed); err != nil {
		return
	}
	o.record(ctx, domain.NewSagaEvent(closed, saga.EventSagaFailed, o.stepName(closed, closed.CurrentStep), o.clock()).WithError(closed.LastError))
}
