package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vehiclemarket/sales-system/shared/models"
)

// SaleStatus represents the status of a sale
type SaleStatus string

const (
	SaleStatusPendingPayment   SaleStatus = "pending_payment"
	SaleStatusPaymentApproved  SaleStatus = "payment_approved"
	SaleStatusPaymentDeclined  SaleStatus = "payment_declined"
	SaleStatusPaymentPending   SaleStatus = "payment_pending"
	SaleStatusVehicleReserved  SaleStatus = "vehicle_reserved"
	SaleStatusVehicleDelivered SaleStatus = "vehicle_delivered"
	SaleStatusCompleted        SaleStatus = "completed"
	SaleStatusCancelled        SaleStatus = "cancelled"
)

func (s SaleStatus) String() string {
	return string(s)
}

// IsClosed reports whether the sale no longer reacts to payment notifications
func (s SaleStatus) IsClosed() bool {
	return s == SaleStatusCompleted || s == SaleStatusCancelled
}

// SaleEventType identifies an entry of a sale's history
type SaleEventType string

const (
	SaleEventCreated          SaleEventType = "sale_created"
	SaleEventPaymentInitiated SaleEventType = "payment_initiated"
	SaleEventPaymentProcessed SaleEventType = "payment_processed"
	SaleEventPaymentFailed    SaleEventType = "payment_failed"
	SaleEventPaymentPending   SaleEventType = "payment_pending"
	SaleEventVehicleReserved  SaleEventType = "vehicle_reserved"
	SaleEventVehicleDelivered SaleEventType = "vehicle_delivered"
	SaleEventCompleted        SaleEventType = "sale_completed"
	SaleEventCancelled        SaleEventType = "sale_cancelled"
)

func (t SaleEventType) String() string {
	return string(t)
}

// SaleEvent is an immutable entry of a sale's history
type SaleEvent struct {
	ID        models.ID     `json:"id"`
	SaleID    models.ID     `json:"sale_id"`
	EventType SaleEventType `json:"event_type"`
	Payload   string        `json:"payload"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewSaleEvent creates an event with a random id
func NewSaleEvent(saleID models.ID, eventType SaleEventType, payload string, now time.Time) SaleEvent {
	return SaleEvent{
		ID:        models.GenerateUUID(),
		SaleID:    saleID,
		EventType: eventType,
		Payload:   payload,
		Timestamp: now,
	}
}

// newProjectedSaleEvent derives the id from the sale and position so that projecting
// the same saga twice yields the same events
func newProjectedSaleEvent(saleID models.ID, position int, eventType SaleEventType, payload string, at time.Time) SaleEvent {
	name := fmt.Sprintf("%s/%d/%s", saleID, position, eventType)
	return SaleEvent{
		ID:        models.ID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()),
		SaleID:    saleID,
		EventType: eventType,
		Payload:   payload,
		Timestamp: at,
	}
}

// Sale is the durable result of a sale saga
type Sale struct {
	ID         models.ID         `json:"id"`
	VehicleID  models.ID         `json:"vehicle_id"`
	BuyerID    models.ID         `json:"buyer_id"`
	Status     SaleStatus        `json:"status"`
	Payment    Payment           `json:"payment"`
	Notes      string            `json:"notes,omitempty"`
	Events     []SaleEvent       `json:"events"`
	Timestamps models.Timestamps `json:"timestamps"`
}

// NewSaleFromSaga builds the pending sale persisted once every pre-payment step succeeded
func NewSaleFromSaga(s SagaInstance, now time.Time) *Sale {
	sale := &Sale{
		ID:         s.SaleID,
		VehicleID:  s.VehicleID,
		BuyerID:    s.BuyerID,
		Status:     SaleStatusPendingPayment,
		Events:     ProjectSaleEvents(s),
		Timestamps: models.NewTimestamps(now),
	}
	if s.Compensation.Payment != nil {
		sale.Payment = *s.Compensation.Payment
	}
	return sale
}

// NewCancelledSale synthesizes the result of a saga that failed before a sale was stored
func NewCancelledSale(s SagaInstance, now time.Time) *Sale {
	payment := Payment{
		ID:         models.GenerateUUID(),
		Amount:     s.Price,
		Method:     s.PaymentMethod,
		Timestamps: models.NewTimestamps(now),
	}
	if s.Compensation.Payment != nil {
		payment = *s.Compensation.Payment
	}
	payment.Status = PaymentStatusCancelled
	if payment.FailureReason == "" {
		payment.FailureReason = s.LastError
	}

	return &Sale{
		ID:         s.SaleID,
		VehicleID:  s.VehicleID,
		BuyerID:    s.BuyerID,
		Status:     SaleStatusCancelled,
		Payment:    payment,
		Notes:      s.LastError,
		Events:     ProjectSaleEvents(s),
		Timestamps: models.NewTimestamps(now),
	}
}

// Clone returns a copy that shares no slices with s
func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Events = append([]SaleEvent(nil), s.Events...)
	return &clone
}

// RecordEvent appends an event to the sale's history
func (s *Sale) RecordEvent(eventType SaleEventType, payload string, now time.Time) {
	s.Events = append(s.Events, NewSaleEvent(s.ID, eventType, payload, now))
	s.Timestamps = s.Timestamps.Touch(now)
}

// AppendNote adds a line to the sale notes
func (s *Sale) AppendNote(note string) {
	if s.Notes == "" {
		s.Notes = note
		return
	}
	s.Notes = s.Notes + "\n" + note
}

// HasNote reports whether a line equal to note was already recorded
func (s *Sale) HasNote(note string) bool {
	for _, line := range strings.Split(s.Notes, "\n") {
		if line == note {
			return true
		}
	}
	return false
}

// ApplyPaymentOutcome applies a gateway notification to the sale. It reports false
// when the sale already reflects the outcome, so repeated notifications are no-ops.
// An approved payment is final: later settled notifications never move the sale back.
func (s *Sale) ApplyPaymentOutcome(status PaymentStatus, settled bool, transactionID string, now time.Time) bool {
	if settled && s.Payment.Status == PaymentStatusApproved {
		return false
	}
	if s.Status == SaleStatusVehicleDelivered {
		return false
	}
	if !settled {
		if !s.Payment.MarkProcessing(now) {
			return false
		}
		s.RecordEvent(SaleEventPaymentPending, PaymentFailureDescription(PaymentStatusPending), now)
		return true
	}

	switch {
	case status == PaymentStatusApproved:
		s.Payment.Approve(transactionID, now)
		s.Status = SaleStatusPaymentApproved
		s.RecordEvent(SaleEventPaymentProcessed, "Payment processed successfully with ID: "+s.Payment.TransactionID, now)
		return true

	case status.IsFailure():
		if s.Status == SaleStatusPaymentDeclined && s.Payment.Status == status {
			return false
		}
		description := PaymentFailureDescription(status)
		_ = s.Payment.Fail(status, description, now)
		s.Status = SaleStatusPaymentDeclined
		s.RecordEvent(SaleEventPaymentFailed, description, now)
		return true
	}

	return false
}

// MarkDelivered records the vehicle hand over
func (s *Sale) MarkDelivered(now time.Time) {
	s.Status = SaleStatusVehicleDelivered
	s.RecordEvent(SaleEventVehicleDelivered, fmt.Sprintf("Vehicle %s delivered to buyer %s", s.VehicleID, s.BuyerID), now)
}

// Complete closes a delivered sale
func (s *Sale) Complete(now time.Time) error {
	if s.Status != SaleStatusVehicleDelivered && s.Status != SaleStatusPaymentApproved {
		return NewInvalidSaleState(s.Status, "complete")
	}
	s.Status = SaleStatusCompleted
	s.RecordEvent(SaleEventCompleted, "Sale process completed successfully", now)
	return nil
}

// Cancel closes the sale without completing it
func (s *Sale) Cancel(reason string, now time.Time) error {
	if s.Status.IsClosed() {
		return NewInvalidSaleState(s.Status, "cancel")
	}
	if s.Payment.Status.IsOpen() {
		if err := s.Payment.Cancel(reason, now); err != nil {
			return err
		}
	}
	s.Status = SaleStatusCancelled
	s.AppendNote(reason)
	s.RecordEvent(SaleEventCancelled, "Sale cancelled: "+reason, now)
	return nil
}

// SaleRepository interface
type SaleRepository interface {
	FindByID(ctx context.Context, id models.ID) (*Sale, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*Sale, error)
	Save(ctx context.Context, sale *Sale) error
	Update(ctx context.Context, sale *Sale) error
}
