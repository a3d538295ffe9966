package events

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/vehiclemarket/sales-system/shared/models"
)

var (
	ErrInvalidTopic    = errors.New("invalid topic")
	ErrInvalidReceiver = errors.New("receiver should be a pointer")
)

// Topic is a dot separated event name. Patterns may use "*" for one segment
// and a leading or trailing "#" for prefix/suffix matching.
type Topic string

func NewTopic(topic string) (Topic, error) {
	if topic == "" {
		return "", ErrInvalidTopic
	}
	return Topic(topic), nil
}

func (t Topic) Matches(pattern Topic) bool {
	topicStr := t.String()
	patternStr := pattern.String()

	switch {
	case patternStr == "#":
		return true
	case strings.HasPrefix(patternStr, "#") && strings.HasSuffix(patternStr, "#"):
		return strings.Contains(topicStr, strings.Trim(patternStr, "#"))
	case strings.HasPrefix(patternStr, "#"):
		return strings.HasSuffix(topicStr, strings.TrimPrefix(patternStr, "#"))
	case strings.HasSuffix(patternStr, "#"):
		return strings.HasPrefix(topicStr, strings.TrimSuffix(patternStr, "#"))
	}

	patternParts := strings.Split(patternStr, ".")
	topicParts := strings.Split(topicStr, ".")
	if len(patternParts) != len(topicParts) {
		return false
	}
	for i := range patternParts {
		if patternParts[i] != "*" && patternParts[i] != topicParts[i] {
			return false
		}
	}
	return true
}

func (t Topic) String() string {
	return string(t)
}

// Metadata represents event metadata
type Metadata map[string]string

func (m Metadata) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Metadata) Set(key string, value string) {
	m[key] = value
}

// Event represents a domain or integration event
type Event struct {
	ID            models.ID   `json:"id"`
	AggregateID   models.ID   `json:"aggregate_id"`
	Topic         Topic       `json:"topic"`
	EventType     string      `json:"event_type"`
	Version       string      `json:"version"`
	Data          interface{} `json:"data"`
	Metadata      Metadata    `json:"metadata"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID models.ID   `json:"correlation_id,omitempty"`
}

// Publisher publishes events
type Publisher interface {
	Publish(ctx context.Context, events ...*Event) error
}

// Subscriber subscribes to events
type Subscriber interface {
	Subscribe(ctx context.Context, eventType string, handler EventHandler) error
}

// EventHandler handles events
type EventHandler interface {
	Handle(ctx context.Context, event *Event) error
}

// EventLog appends events to a per-aggregate stream
type EventLog interface {
	Append(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, aggregateID models.ID) ([]*Event, error)
}

// NewEvent creates a new event
func NewEvent(aggregateID models.ID, eventType string, data interface{}) *Event {
	return &Event{
		ID:          models.GenerateUUID(),
		AggregateID: aggregateID,
		Topic:       Topic(eventType),
		EventType:   eventType,
		Version:     "1.0",
		Data:        data,
		Metadata:    make(Metadata),
		Timestamp:   time.Now().UTC(),
	}
}

// WithCorrelationID sets correlation ID
func (e *Event) WithCorrelationID(correlationID models.ID) *Event {
	e.CorrelationID = correlationID
	return e
}

// WithMetadata adds metadata
func (e *Event) WithMetadata(key string, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(Metadata)
	}
	e.Metadata.Set(key, value)
	return e
}

// MarshalPayload marshals the event payload
func (e *Event) MarshalPayload() (json.RawMessage, error) {
	if b, ok := e.Data.([]byte); ok {
		return b, nil
	}

	if b, ok := e.Data.(json.RawMessage); ok {
		return b, nil
	}

	return json.Marshal(e.Data)
}

// UnmarshalPayload unmarshals the event payload into the given pointer
func (e *Event) UnmarshalPayload(v interface{}) error {
	vValue := reflect.ValueOf(v)
	if vValue.Kind() != reflect.Ptr {
		return ErrInvalidReceiver
	}

	if e.Data != nil {
		payloadValue := reflect.ValueOf(e.Data)
		if vValue.Elem().Type() == payloadValue.Type() {
			vValue.Elem().Set(payloadValue)
			return nil
		}
	}

	raw, err := e.MarshalPayload()
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, v)
}

// Event Types Constants
const (
	// Sale Events
	SaleCreatedEvent           = "sale.created"
	SaleCancelledEvent         = "sale.cancelled"
	SaleCompletedEvent         = "sale.completed"
	SalePaymentApprovedEvent   = "sale.payment.approved"
	SalePaymentDeclinedEvent   = "sale.payment.declined"
	SalePaymentProcessingEvent = "sale.payment.processing"
	SalePartiesNotifiedEvent   = "sale.parties.notified"

	// Payment Gateway Events
	PaymentGatewayNotificationEvent = "payment.gateway.notification"

	// Saga Events
	SagaStartedEvent     = "saga.started"
	SagaCompletedEvent   = "saga.completed"
	SagaFailedEvent      = "saga.failed"
	SagaCompensatedEvent = "saga.compensated"
)
