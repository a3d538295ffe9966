package handlers

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/application"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/logging"
)

// PaymentNotificationData is the payload of payment.gateway.notification events
type PaymentNotificationData struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// SaleEventHandlers contains event handlers for the sales service
type SaleEventHandlers struct {
	processConfirmation *application.ProcessPaymentConfirmation
	logger              *logging.Logger
}

// NewSaleEventHandlers creates new sale event handlers
func NewSaleEventHandlers(processConfirmation *application.ProcessPaymentConfirmation, logger *logging.Logger) *SaleEventHandlers {
	if logger == nil {
		logger = logging.Nop()
	}
	return &SaleEventHandlers{
		processConfirmation: processConfirmation,
		logger:              logger,
	}
}

// Handle implements the events.EventHandler interface
func (h *SaleEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.PaymentGatewayNotificationEvent:
		return h.HandlePaymentNotification(ctx, event)
	default:
		// Unknown event type, ignore
		return nil
	}
}

// HandlerID returns the unique identifier for this event handler
func (h *SaleEventHandlers) HandlerID() string {
	return "sales-service-event-handler"
}

// HandlePaymentNotification applies a gateway notification relayed through the queue.
// Malformed notifications are dropped; processing errors are returned so the
// message is delivered again.
func (h *SaleEventHandlers) HandlePaymentNotification(ctx context.Context, event *events.Event) error {
	if event.EventType != events.PaymentGatewayNotificationEvent {
		return nil
	}

	log := h.logger.WithContext(ctx).WithField("event_id", event.ID.String())

	var data PaymentNotificationData
	if err := event.UnmarshalPayload(&data); err != nil {
		log.WithError(err).Warn("dropping malformed payment notification")
		return nil
	}
	if data.TransactionID == "" || data.Status == "" {
		log.Warn("dropping incomplete payment notification")
		return nil
	}

	result, err := h.processConfirmation.Execute(ctx, &application.ProcessPaymentConfirmationCommand{
		TransactionID: data.TransactionID,
		Status:        data.Status,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to process payment notification %s", data.TransactionID)
	}

	log.Infof("payment notification consumed", map[string]interface{}{
		"transaction_id": data.TransactionID,
		"result":         result.Status,
		"sale_id":        result.SaleID,
	})
	return nil
}
