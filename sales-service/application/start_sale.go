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
	"go.opentelemetry.io/otel/attribute"
)

// StartSaleCommand represents the command to start a vehicle sale
type StartSaleCommand struct {
	VehicleID     string `json:"vehicle_id"`
	BuyerID       string `json:"buyer_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
}

// StartSale runs a new sale saga up to the pending payment
type StartSale struct {
	orchestrator *SagaOrchestrator
}

// NewStartSale creates a new StartSale use case
func NewStartSale(orchestrator *SagaOrchestrator) *StartSale {
	return &StartSale{
		orchestrator: orchestrator,
	}
}

// Execute always returns the sale produced by the saga: PENDING_PAYMENT on success,
// CANCELLED otherwise. Business failures return a nil error; gateway and
// infrastructure failures return the cancelled sale along with the error.
func (uc *StartSale) Execute(ctx context.Context, cmd *StartSaleCommand) (*domain.Sale, error) {
	ctx, span := telemetry.StartSpan(ctx, "StartSale.Execute")
	defer span.End()

	start := time.Now()
	status := "success"
	defer func() {
		telemetry.RecordOperation(ctx, "start_sale", status, start)
	}()

	vehicleID, buyerID, price, method, err := uc.parseCommand(cmd)
	if err != nil {
		status = "invalid"
		return nil, errors.Wrap(err, "invalid command")
	}

	o := uc.orchestrator
	s := domain.NewSagaInstance(vehicleID, buyerID, price, *method, o.clock())
	span.SetAttributes(
		attribute.String("saga.id", s.ID.String()),
		attribute.String("sale.id", s.SaleID.String()),
	)

	if err := o.sagaRepository.Save(ctx, &s); err != nil {
		status = "error"
		return uc.fail(ctx, s, errors.Wrap(err, "failed to save saga"))
	}
	o.publish(ctx, events.NewEvent(s.ID, events.SagaStartedEvent, NewSagaView(s)).WithCorrelationID(s.SaleID))

	s, err = o.runSteps(ctx, s, domain.PaymentStepsCount)
	if err != nil {
		status = failureStatus(err)
		return uc.fail(ctx, s, err)
	}

	// storing the sale finishes the payment step
	s, sale, err := o.persistSale(ctx, s)
	if err != nil {
		status = failureStatus(err)
		return uc.failAt(ctx, s, domain.PaymentStepsCount-1, err)
	}

	o.publish(ctx, events.NewEvent(sale.ID, events.SaleCreatedEvent, NewSaleView(sale)).WithCorrelationID(s.ID))
	o.log(ctx, s).Infof("sale awaiting payment", map[string]interface{}{
		"payment_method": sale.Payment.Method.String(),
		"transaction_id": sale.Payment.TransactionID,
	})

	return sale, nil
}

// fail compensates s and builds the terminal sale returned to the caller
func (uc *StartSale) fail(ctx context.Context, s domain.SagaInstance, cause error) (*domain.Sale, error) {
	return uc.failAt(ctx, s, s.CurrentStep, cause)
}

func (uc *StartSale) failAt(ctx context.Context, s domain.SagaInstance, step int, cause error) (*domain.Sale, error) {
	o := uc.orchestrator
	if s.Status != saga.StatusFailed {
		s = o.handleFailureAt(ctx, s, step, cause)
	}

	sale := s.Compensation.Sale
	if sale == nil {
		sale = domain.NewCancelledSale(s, o.clock())
	}

	if domain.IsBusinessFailure(cause) {
		return sale, nil
	}
	return sale, domain.NewSagaExecutionFailed(cause)
}

func failureStatus(err error) string {
	if domain.IsBusinessFailure(err) {
		return "rejected"
	}
	return "error"
}

func (uc *StartSale) parseCommand(cmd *StartSaleCommand) (models.ID, models.ID, models.Money, *domain.PaymentMethod, error) {
	if cmd == nil {
		return "", "", models.Money{}, nil, errors.New("command is required")
	}

	vehicleID, err := models.NewID(cmd.VehicleID)
	if err != nil {
		return "", "", models.Money{}, nil, errors.Wrap(err, "invalid vehicle ID")
	}

	buyerID, err := models.NewID(cmd.BuyerID)
	if err != nil {
		return "", "", models.Money{}, nil, errors.Wrap(err, "invalid buyer ID")
	}

	if cmd.Amount <= 0 {
		return "", "", models.Money{}, nil, errors.New("amount must be positive")
	}

	if cmd.Currency != "" && cmd.Currency != models.DefaultCurrency {
		return "", "", models.Money{}, nil, errors.Errorf("unsupported currency %s", cmd.Currency)
	}

	method, err := domain.NewPaymentMethod(cmd.PaymentMethod)
	if err != nil {
		return "", "", models.Money{}, nil, errors.Wrap(err, "invalid payment method")
	}

	return vehicleID, buyerID, models.NewMoney(cmd.Amount, cmd.Currency), method, nil
}

// SagaView is the payload of saga lifecycle events
type SagaView struct {
	SagaID      string `json:"saga_id"`
	SaleID      string `json:"sale_id"`
	VehicleID   string `json:"vehicle_id"`
	BuyerID     string `json:"buyer_id"`
	Status      string `json:"status"`
	CurrentStep int    `json:"current_step"`
}

func NewSagaView(s domain.SagaInstance) SagaView {
	return SagaView{
		SagaID:      s.ID.String(),
		SaleID:      s.SaleID.String(),
		VehicleID:   s.VehicleID.String(),
		BuyerID:     s.BuyerID.String(),
		Status:      s.Status.String(),
		CurrentStep: s.CurrentStep,
	}
}
