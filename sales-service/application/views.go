package application

import (
	"time"

	"github.com/vehiclemarket/sales-system/sales-service/domain"
)

// PaymentView is the external representation of a sale payment
type PaymentView struct {
	ID             string     `json:"id"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	Method         string     `json:"method"`
	Status         string     `json:"status"`
	TransactionID  string     `json:"transaction_id,omitempty"`
	QRCode         string     `json:"qr_code,omitempty"`
	QRCodeBase64   string     `json:"qr_code_base64,omitempty"`
	Barcode        string     `json:"barcode,omitempty"`
	PDFURL         string     `json:"pdf_url,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	PaymentDate    *time.Time `json:"payment_date,omitempty"`
	FailureReason  string     `json:"failure_reason,omitempty"`
}

type SaleEventView struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	Payload   string    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleView is the external representation of a sale
type SaleView struct {
	ID        string          `json:"id"`
	VehicleID string          `json:"vehicle_id"`
	BuyerID   string          `json:"buyer_id"`
	Status    string          `json:"status"`
	Payment   PaymentView     `json:"payment"`
	Notes     string          `json:"notes,omitempty"`
	Events    []SaleEventView `json:"events"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewSaleView maps a sale to its external representation
func NewSaleView(sale *domain.Sale) *SaleView {
	if sale == nil {
		return nil
	}

	view := &SaleView{
		ID:        sale.ID.String(),
		VehicleID: sale.VehicleID.String(),
		BuyerID:   sale.BuyerID.String(),
		Status:    sale.Status.String(),
		Payment: PaymentView{
			ID:             sale.Payment.ID.String(),
			Amount:         sale.Payment.Amount.Amount,
			Currency:       sale.Payment.Amount.Currency,
			Method:         sale.Payment.Method.String(),
			Status:         sale.Payment.Status.String(),
			TransactionID:  sale.Payment.TransactionID,
			QRCode:         sale.Payment.Details.QRCode,
			QRCodeBase64:   sale.Payment.Details.QRCodeBase64,
			Barcode:        sale.Payment.Details.Barcode,
			PDFURL:         sale.Payment.Details.PDFURL,
			DueDate:        sale.Payment.Details.DueDate,
			ExpirationDate: sale.Payment.Details.ExpirationDate,
			PaymentDate:    sale.Payment.PaymentDate,
			FailureReason:  sale.Payment.FailureReason,
		},
		Notes:     sale.Notes,
		Events:    make([]SaleEventView, len(sale.Events)),
		CreatedAt: sale.Timestamps.CreatedAt,
		UpdatedAt: sale.Timestamps.UpdatedAt,
	}

	for i, e := range sale.Events {
		view.Events[i] = SaleEventView{
			ID:        e.ID.String(),
			EventType: e.EventType.String(),
			Payload:   e.Payload,
			Timestamp: e.Timestamp,
		}
	}

	return view
}
