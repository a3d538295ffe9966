package application

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/logging"
	"github.com/vehiclemarket/sales-system/shared/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const (
	ConfirmationProcessed   = "processed"
	ConfirmationNoSaleFound = "no_sale_found"
	ConfirmationIgnored     = "ignored"
)

// ProcessPaymentConfirmationCommand carries a gateway notification
type ProcessPaymentConfirmationCommand struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// ConfirmationResult is the outcome of a payment notification
type ConfirmationResult struct {
	Status        string `json:"status"`
	SaleID        string `json:"sale_id,omitempty"`
	SaleStatus    string `json:"sale_status,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
}

// ProcessPaymentConfirmation applies gateway notifications to existing sales
type ProcessPaymentConfirmation struct {
	saleRepository    domain.SaleRepository
	vehicleRepository domain.VehicleRepository
	confirmationLock  domain.ConfirmationLock
	eventPublisher    events.Publisher
	logger            *logging.Logger
	now               func() time.Time
}

// NewProcessPaymentConfirmation creates a new ProcessPaymentConfirmation use case.
// confirmationLock and eventPublisher may be nil.
func NewProcessPaymentConfirmation(
	saleRepository domain.SaleRepository,
	vehicleRepository domain.VehicleRepository,
	confirmationLock domain.ConfirmationLock,
	eventPublisher events.Publisher,
	logger *logging.Logger,
) *ProcessPaymentConfirmation {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ProcessPaymentConfirmation{
		saleRepository:    saleRepository,
		vehicleRepository: vehicleRepository,
		confirmationLock:  confirmationLock,
		eventPublisher:    eventPublisher,
		logger:            logger,
		now:               time.Now,
	}
}

// Execute maps the gateway status and applies it to the sale owning the transaction
func (uc *ProcessPaymentConfirmation) Execute(ctx context.Context, cmd *ProcessPaymentConfirmationCommand) (*ConfirmationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProcessPaymentConfirmation.Execute")
	defer span.End()

	start := time.Now()
	status := "success"
	defer func() {
		telemetry.RecordOperation(ctx, "process_payment_confirmation", status, start)
	}()

	if err := uc.validateCommand(cmd); err != nil {
		status = "invalid"
		return nil, errors.Wrap(err, "invalid command")
	}

	span.SetAttributes(
		attribute.String("payment.transaction_id", cmd.TransactionID),
		attribute.String("payment.gateway_status", cmd.Status),
	)
	log := uc.logger.WithContext(ctx).
		WithField("transaction_id", cmd.TransactionID).
		WithField("gateway_status", cmd.Status)

	if uc.confirmationLock != nil {
		key := confirmationLockKey(cmd)
		token, acquired, err := uc.confirmationLock.Acquire(ctx, key)
		if err != nil {
			status = "error"
			return nil, errors.Wrap(err, "failed to acquire confirmation lock")
		}
		if !acquired {
			status = "duplicate"
			log.Info("payment notification already being processed")
			return &ConfirmationResult{Status: ConfirmationProcessed}, nil
		}
		defer func() {
			if err := uc.confirmationLock.Release(context.WithoutCancel(ctx), key, token); err != nil {
				log.WithError(err).Warn("failed to release confirmation lock")
			}
		}()
	}

	sale, err := uc.saleRepository.FindByTransactionID(ctx, cmd.TransactionID)
	if err != nil {
		status = "error"
		return nil, errors.Wrap(err, "failed to find sale")
	}
	if sale == nil {
		status = "no_sale"
		log.Warn("no sale found for payment notification")
		return &ConfirmationResult{Status: ConfirmationNoSaleFound}, nil
	}

	result := &ConfirmationResult{Status: ConfirmationProcessed, SaleID: sale.ID.String()}
	if sale.Status.IsClosed() {
		status = "ignored"
		result.SaleStatus = sale.Status.String()
		result.PaymentStatus = sale.Payment.Status.String()
		return result, nil
	}

	paymentStatus, settled := domain.ParseGatewayStatus(cmd.Status)
	changed := sale.ApplyPaymentOutcome(paymentStatus, settled, cmd.TransactionID, uc.now().UTC())
	result.SaleStatus = sale.Status.String()
	result.PaymentStatus = sale.Payment.Status.String()

	if !changed {
		status = "unchanged"
		return result, nil
	}

	if err := uc.saleRepository.Update(ctx, sale); err != nil {
		status = "error"
		return nil, errors.Wrap(err, "failed to update sale")
	}

	if sale.Payment.Status.IsFailure() {
		uc.releaseVehicle(ctx, sale, log)
	}

	uc.publish(ctx, sale, log)

	log.Infof("payment notification processed", map[string]interface{}{
		"sale_id":        sale.ID.String(),
		"sale_status":    sale.Status.String(),
		"payment_status": sale.Payment.Status.String(),
	})

	return result, nil
}

// releaseVehicle puts the vehicle back on sale; failures are only logged
func (uc *ProcessPaymentConfirmation) releaseVehicle(ctx context.Context, sale *domain.Sale, log *logging.Logger) {
	log = log.WithField("vehicle_id", sale.VehicleID.String())

	vehicle, err := uc.vehicleRepository.FindByID(ctx, sale.VehicleID)
	if err != nil {
		log.WithError(err).Warn("failed to load vehicle to release")
		return
	}
	if vehicle == nil || vehicle.Status != domain.VehicleStatusReserved {
		return
	}

	released := vehicle.WithStatus(domain.VehicleStatusAvailable, uc.now().UTC())
	if err := uc.vehicleRepository.Update(ctx, &released, domain.VehicleStatusReserved); err != nil {
		log.WithError(err).Warn("failed to release vehicle")
	}
}

func (uc *ProcessPaymentConfirmation) publish(ctx context.Context, sale *domain.Sale, log *logging.Logger) {
	if uc.eventPublisher == nil {
		return
	}

	topic := events.SalePaymentProcessingEvent
	switch {
	case sale.Payment.Status == domain.PaymentStatusApproved:
		topic = events.SalePaymentApprovedEvent
	case sale.Payment.Status.IsFailure():
		topic = events.SalePaymentDeclinedEvent
	}

	if err := uc.eventPublisher.Publish(ctx, events.NewEvent(sale.ID, topic, NewSaleView(sale))); err != nil {
		log.WithError(err).Warn("failed to publish payment event")
	}
}

func (uc *ProcessPaymentConfirmation) validateCommand(cmd *ProcessPaymentConfirmationCommand) error {
	if cmd == nil {
		return errors.New("command is required")
	}
	if strings.TrimSpace(cmd.TransactionID) == "" {
		return errors.New("transaction ID is required")
	}
	if strings.TrimSpace(cmd.Status) == "" {
		return errors.New("status is required")
	}
	return nil
}

func confirmationLockKey(cmd *ProcessPaymentConfirmationCommand) string {
	return "payment-confirmation:" + cmd.TransactionID + ":" + strings.ToLower(cmd.Status)
}
