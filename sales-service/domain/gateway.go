package domain

import (
	"context"
	"strings"

	"github.com/vehiclemarket/sales-system/shared/models"
)

// PaymentGatewayRequest is what the gateway needs to open a charge
type PaymentGatewayRequest struct {
	Amount            models.Money
	Method            PaymentMethod
	Buyer             Buyer
	ExternalReference string
}

// GatewayPayment is the gateway's view of a charge
type GatewayPayment struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	Method            string
	Details           PaymentDetails
}

// PaymentGateway is the external payment provider
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req PaymentGatewayRequest) (*GatewayPayment, error)
	GetPayment(ctx context.Context, id string) (*GatewayPayment, error)
	CancelPayment(ctx context.Context, id string) (*GatewayPayment, error)
}

// ParseGatewayStatus maps a gateway status string to a payment status.
// The boolean is false for statuses that leave the payment in process.
func ParseGatewayStatus(value string) (PaymentStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "APPROVED", "COMPLETED", "SUCCESS":
		return PaymentStatusApproved, true
	case "REJECTED", "DECLINED", "FAILURE":
		return PaymentStatusDeclined, true
	case "CANCELLED", "CANCELED":
		return PaymentStatusCancelled, true
	case "EXPIRED":
		return PaymentStatusExpired, true
	default:
		return PaymentStatusProcessing, false
	}
}
