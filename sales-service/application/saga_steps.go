package application

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/telemetry"
)

func (o *SagaOrchestrator) executeStep(ctx context.Context, s domain.SagaInstance, step domain.SagaStep) (domain.SagaInstance, error) {
	ctx, span := telemetry.StartSpan(ctx, "saga.step."+step.String())
	defer span.End()

	var (
		next domain.SagaInstance
		err  error
	)

	switch step {
	case domain.StepValidateBuyer:
		next, err = o.validateBuyer(ctx, s)
	case domain.StepValidateVehicle:
		next, err = o.validateVehicle(ctx, s)
	case domain.StepReserveVehicle:
		next, err = o.reserveVehicle(ctx, s)
	case domain.StepCreatePayment:
		next, err = o.createPayment(ctx, s)
	case domain.StepUpdateInventory:
		next, err = o.updateInventory(ctx, s)
	case domain.StepGenerateDocuments:
		next, err = o.generateDocuments(ctx, s)
	case domain.StepNotifyParties:
		next, err = o.notifyParties(ctx, s)
	default:
		err = errors.Errorf("unknown saga step %q", step)
	}

	if err != nil {
		span.RecordError(err)
	}
	return next, err
}

func (o *SagaOrchestrator) validateBuyer(ctx context.Context, s domain.SagaInstance) (domain.SagaInstance, error) {
	buyer, err := o.buyerRepository.FindByID(ctx, s.BuyerID)
	if err != nil {
		return s, errors.Wrap(err, "failed to load buyer")
	}
	if buyer == nil {
		return s, domain.NewValidationFailure("buyer %s not found", s.BuyerID)
	}
	return s.WithBuyer(*buyer, o.clock()), nil
}

func (o *SagaOrchestrator) validateVehicle(ctx context.Context, s domain.SagaInstance) (domain.SagaInstance, error) {
	vehicle, err := o.vehicleRepository.FindByID(ctx, s.VehicleID)
	if err != nil {
		return s, errors.Wrap(err, "failed to load vehicle")
	}
	if vehicle == nil || !vehicle.IsAvailable() {
		return s, domain.NewVehicleUnavailable(s.VehicleID, nil)
	}
	return s.WithVehicle(*vehicle, o.clock()), nil
}

func (o *SagaOrchestrator) reserveVehicle(ctx context.Context, s domain.SagaInstance) (domain.SagaInstance, error) {
	if s.Compensation.Vehicle == nil {
		return s, errors.New("vehicle was not validated")
	}

	reserved := s.Compensation.Vehicle.WithStatus(domain.VehicleStatusReserved, o.clock())
	if err := o.vehicleRepository.Update(ctx, &reserved, domain.VehicleStatusAvailable); err != nil {
		if errors.Is(err, domain.ErrReservationConflict) {
			return s, domain.NewVehicleUnavailable(s.VehicleID, err)
		}
		return s, errors.Wrap(err, "failed to reserve vehicle")
	}

	return s.WithVehicle(reserved, o.clock()), nil
}

func (o *SagaOrchestrator) createPayment(ctx context.Context, s domain.SagaInstance) (domain.SagaInstance, error) {
	if s.Compensation.Buyer == nil {
		return s, errors.New("buyer was not validated")
	}

	payment, err := domain.NewPayment(s.Price, s.PaymentMethod, o.clock())
	if err != nil {
		return s, domain.NewValidationFailure("invalid payment: %s", err)
	}

	gatewayPayment, err := o.paymentGateway.CreatePayment(ctx, domain.PaymentGatewayRequest{
		Amount:            s.Price,
		Method:            s.PaymentMethod,
		Buyer:             *s.Compensation.Buyer,
		ExternalReference: s.SaleID.String(),
	})
	if err != nil {
		return s, domain.NewGatewayFailure(err)
	}

	payment.AttachGatewayPayment(gatewayPayment, o.clock())
	return s.WithPayment(*payment, o.clock()), nil
}

// persistSale stores the pending sale built from the saga and stashes it for compensation
func (o *SagaOrchestrator) persistSale(ctx context.Context, s domain.SagaInstance) (domain.SagaInstance, *domain.Sale, error) {
	sale := domain.NewSaleFromSaga(s, o.clock())
	if err := o.saleRepository.Save(ctx, sale); err != nil {
		return s, nil, errors.Wrap(err, "failed to save sale")
	}

	s = s.WithSale(sale, o.clock())
	if err := o.save(ctx, s); err != nil {
		return s, sale, errors.Wrap(err, "failed to save saga")
	}
	return s, sale, nil
}

// loadSale returns the stored sale of s, falling back to the stashed copy
func (o *SagaOrchestrator) loadSale(ctx context.Context, s domain.SagaInstance) (*domain.Sale, error) {
	sale, err := o.saleRepository.FindByID(ctx, s.SaleID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load sale")
	}
	if sale == nil {
		if s.Compensation.Sale == nil {
			return nil, domain.ErrSaleNotFound
		}
		sale = s.Compensation.Sale.Clone()
	}
	return sale, nil
}

func (o *SagaOrchestrator) updateInventory(ctx context.Context, s domain.SagaInstance) (domain.SagaInstance, error) {
	vehicle := s.Compensation.Vehicle
	if vehicle == nil {
		found, err := o.vehicleRepository.FindByID(ctx, s.VehicleID)
		if err != nil {
			return s, errors.Wrap(err, "failed to load vehicle")
		}
		if found == nil {
			return s, errors.Errorf("vehicle %s not found", s.VehicleID)
		}
		vehicle = found
	}

	sold := vehicle.WithStatus(domain.VehicleStatusSold, o.clock())
	if err := o.vehicleRepository.Update(ctx, &sold, domain.VehicleStatusReserved); err != nil {
		if !errors.Is(err, domain.ErrReservationConflict) {
			return s, errors.Wrap(err, "failed to mark vehicle as sold")
		}
		// a retried delivery finds the vehicle already sold
		current, findErr := o.vehicleRepository.FindByID(ctx, s.VehicleID)
		if findErr != nil || current == nil || current.Status != domain.VehicleStatusSold {
			return s, errors.Wrapf(err, "vehicle %s is no longer reserved", s.VehicleID)
		}
		sold = *current
	}

	sale, err := o.loadSale(ctx, s)
	if err != nil {
		return s, err
	}
	if sale.Status == domain.SaleStatusPaymentApproved {
		sale.MarkDelivered(o.clock())
		if err := o.saleRepository.Update(ctx, sale); err != nil {
			return s, errors.Wrap(err, "failed to update sale")
		}
	}

	return s.WithVehicle(sold, o.clock()).WithSale(sale, o.clock()), nil
}

// DocumentReference is the reference of the transfer documents issued for a sale
func DocumentReference(s domain.SagaInstance) string {
	return "DOC-" + s.SaleID.String()
}

func (o *SagaOrchestrator) generateDocuments(ctx context.Context, s domain.SagaInstance) (domain.SagaInstance, error) {
	sale, err := o.loadSale(ctx, s)
	if err != nil {
		return s, err
	}

	note := "transfer documents generated: " + DocumentReference(s)
	if !sale.HasNote(note) {
		sale.AppendNote(note)
		if err := o.saleRepository.Update(ctx, sale); err != nil {
			return s, errors.Wrap(err, "failed to update sale")
		}
	}

	return s.WithSale(sale, o.clock()), nil
}

// PartiesNotifiedData is the payload of the sale.parties.notified event
type PartiesNotifiedData struct {
	SaleID            string `json:"sale_id"`
	VehicleID         string `json:"vehicle_id"`
	BuyerID           string `json:"buyer_id"`
	BuyerEmail        string `json:"buyer_email,omitempty"`
	DocumentReference string `json:"document_reference"`
}

func (o *SagaOrchestrator) notifyParties(ctx context.Context, s domain.SagaInstance) (domain.SagaInstance, error) {
	if o.eventPublisher == nil {
		return s, nil
	}

	data := PartiesNotifiedData{
		SaleID:            s.SaleID.String(),
		VehicleID:         s.VehicleID.String(),
		BuyerID:           s.BuyerID.String(),
		DocumentReference: DocumentReference(s),
	}
	if s.Compensation.Buyer != nil {
		data.BuyerEmail = s.Compensation.Buyer.Email
	}

	event := events.NewEvent(s.SaleID, events.SalePartiesNotifiedEvent, data).WithCorrelationID(s.ID)
	if err := o.eventPublisher.Publish(ctx, event); err != nil {
		return s, errors.Wrap(err, fmt.Sprintf("failed to notify parties of sale %s", s.SaleID))
	}
	return s, nil
}
