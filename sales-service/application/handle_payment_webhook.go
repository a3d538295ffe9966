package application

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/telemetry"
)

// PaymentWebhookCommand is the notification body posted by the payment gateway
type PaymentWebhookCommand struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// HandlePaymentWebhook resolves a gateway notification into a payment confirmation
type HandlePaymentWebhook struct {
	paymentGateway      domain.PaymentGateway
	processConfirmation *ProcessPaymentConfirmation
}

// NewHandlePaymentWebhook creates a new HandlePaymentWebhook use case
func NewHandlePaymentWebhook(paymentGateway domain.PaymentGateway, processConfirmation *ProcessPaymentConfirmation) *HandlePaymentWebhook {
	return &HandlePaymentWebhook{
		paymentGateway:      paymentGateway,
		processConfirmation: processConfirmation,
	}
}

// Execute fetches the current payment status from the gateway; non payment
// notifications are ignored
func (uc *HandlePaymentWebhook) Execute(ctx context.Context, cmd *PaymentWebhookCommand) (*ConfirmationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "HandlePaymentWebhook.Execute")
	defer span.End()

	if cmd == nil || !strings.EqualFold(cmd.Type, "payment") {
		return &ConfirmationResult{Status: ConfirmationIgnored}, nil
	}
	if strings.TrimSpace(cmd.Data.ID) == "" {
		return nil, errors.New("invalid command: payment id is required")
	}

	payment, err := uc.paymentGateway.GetPayment(ctx, cmd.Data.ID)
	if err != nil {
		span.RecordError(err)
		return nil, domain.NewGatewayFailure(err)
	}

	transactionID := payment.ID
	if transactionID == "" {
		transactionID = cmd.Data.ID
	}

	return uc.processConfirmation.Execute(ctx, &ProcessPaymentConfirmationCommand{
		TransactionID: transactionID,
		Status:        payment.Status,
	})
}
