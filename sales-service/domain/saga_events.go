package domain

import (
	"time"

	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/models"
	"github.com/vehiclemarket/sales-system/shared/saga"
)

// SagaEvent is one entry of a saga's audit log
type SagaEvent struct {
	SagaID    models.ID
	SaleID    models.ID
	Type      saga.EventType
	Step      SagaStep
	Error     string
	Reason    string
	Timestamp time.Time
}

type SagaEventData struct {
	SagaID models.ID `json:"saga_id"`
	SaleID models.ID `json:"sale_id"`
	Step   SagaStep  `json:"step,omitempty"`
	Error  string    `json:"error,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// NewSagaEvent creates an audit entry for the given step of s
func NewSagaEvent(s SagaInstance, eventType saga.EventType, step SagaStep, now time.Time) SagaEvent {
	return SagaEvent{
		SagaID:    s.ID,
		SaleID:    s.SaleID,
		Type:      eventType,
		Step:      step,
		Timestamp: now,
	}
}

func (e SagaEvent) WithError(err string) SagaEvent {
	e.Error = err
	return e
}

func (e SagaEvent) WithReason(reason string) SagaEvent {
	e.Reason = reason
	return e
}

// ToEvent converts the entry to an event of the saga's stream
func (e SagaEvent) ToEvent() *events.Event {
	event := events.NewEvent(e.SagaID, e.Type.String(), SagaEventData{
		SagaID: e.SagaID,
		SaleID: e.SaleID,
		Step:   e.Step,
		Error:  e.Error,
		Reason: e.Reason,
	}).WithCorrelationID(e.SaleID)

	if !e.Timestamp.IsZero() {
		event.Timestamp = e.Timestamp
	}
	return event
}
