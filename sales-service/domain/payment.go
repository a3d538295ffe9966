package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/shared/models"
)

// PaymentStatus represents the status of a sale payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusApproved   PaymentStatus = "approved"
	PaymentStatusDeclined   PaymentStatus = "declined"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusExpired    PaymentStatus = "expired"
)

func (s PaymentStatus) String() string {
	return string(s)
}

// IsFailure reports the statuses that end a sale without payment
func (s PaymentStatus) IsFailure() bool {
	return s == PaymentStatusDeclined || s == PaymentStatusCancelled || s == PaymentStatusExpired
}

// IsOpen reports whether the gateway may still settle the payment
func (s PaymentStatus) IsOpen() bool {
	return s == PaymentStatusPending || s == PaymentStatusProcessing
}

// PaymentDetails holds the method specific instructions returned by the gateway
type PaymentDetails struct {
	QRCode         string     `json:"qr_code,omitempty"`
	QRCodeBase64   string     `json:"qr_code_base64,omitempty"`
	Barcode        string     `json:"barcode,omitempty"`
	PDFURL         string     `json:"pdf_url,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

// Merge copies every non empty field of other into d
func (d PaymentDetails) Merge(other PaymentDetails) PaymentDetails {
	if other.QRCode != "" {
		d.QRCode = other.QRCode
	}
	if other.QRCodeBase64 != "" {
		d.QRCodeBase64 = other.QRCodeBase64
	}
	if other.Barcode != "" {
		d.Barcode = other.Barcode
	}
	if other.PDFURL != "" {
		d.PDFURL = other.PDFURL
	}
	if other.DueDate != nil {
		d.DueDate = other.DueDate
	}
	if other.ExpirationDate != nil {
		d.ExpirationDate = other.ExpirationDate
	}
	return d
}

// Payment is the payment embedded in a sale
type Payment struct {
	ID            models.ID         `json:"id"`
	Amount        models.Money      `json:"amount"`
	Method        PaymentMethod     `json:"method"`
	Status        PaymentStatus     `json:"status"`
	TransactionID string            `json:"transaction_id,omitempty"`
	Details       PaymentDetails    `json:"details"`
	PaymentDate   *time.Time        `json:"payment_date,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Timestamps    models.Timestamps `json:"timestamps"`
}

// NewPayment creates a pending payment
func NewPayment(amount models.Money, method PaymentMethod, now time.Time) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}

	return &Payment{
		ID:         models.GenerateUUID(),
		Amount:     amount,
		Method:     method,
		Status:     PaymentStatusPending,
		Timestamps: models.NewTimestamps(now),
	}, nil
}

// AttachGatewayPayment merges the gateway's transaction id and instructions
func (p *Payment) AttachGatewayPayment(gp *GatewayPayment, now time.Time) {
	if gp == nil {
		return
	}
	if gp.ID != "" {
		p.TransactionID = gp.ID
	}
	p.Details = p.Details.Merge(gp.Details)
	p.Timestamps = p.Timestamps.Touch(now)
}

// Approve marks the payment as settled
func (p *Payment) Approve(transactionID string, now time.Time) {
	if transactionID != "" {
		p.TransactionID = transactionID
	}
	paidAt := now
	p.Status = PaymentStatusApproved
	p.PaymentDate = &paidAt
	p.FailureReason = ""
	p.Timestamps = p.Timestamps.Touch(now)
}

// Fail moves the payment to one of the failure statuses
func (p *Payment) Fail(status PaymentStatus, reason string, now time.Time) error {
	if !status.IsFailure() {
		return errors.Errorf("%s is not a failure status", status)
	}
	p.Status = status
	p.FailureReason = reason
	p.Timestamps = p.Timestamps.Touch(now)
	return nil
}

// MarkProcessing moves a pending payment to processing; it reports whether anything changed
func (p *Payment) MarkProcessing(now time.Time) bool {
	if p.Status != PaymentStatusPending {
		return false
	}
	p.Status = PaymentStatusProcessing
	p.Timestamps = p.Timestamps.Touch(now)
	return true
}

// Cancel cancels an open payment
func (p *Payment) Cancel(reason string, now time.Time) error {
	if p.Status == PaymentStatusApproved {
		return errors.New("cannot cancel an approved payment")
	}
	return p.Fail(PaymentStatusCancelled, reason, now)
}

// PaymentFailureDescription is the text recorded on the sale for each failure status
func PaymentFailureDescription(status PaymentStatus) string {
	switch status {
	case PaymentStatusDeclined:
		return "Payment declined"
	case PaymentStatusCancelled:
		return "Payment cancelled by user"
	case PaymentStatusExpired:
		return "Payment expired - time limit exceeded"
	default:
		return "Payment pending"
	}
}
