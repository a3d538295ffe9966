package infrastructure

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/models"
)

// envelope is the wire format shared by the SNS publisher and the SQS subscriber
type envelope struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id,omitempty"`
	Metadata      events.Metadata `json:"metadata"`
	Topic         string          `json:"topic"`
	Payload       json.RawMessage `json:"payload"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// snsNotification is what SQS receives from an SNS subscription without raw delivery
type snsNotification struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

func encodeEvent(event *events.Event) ([]byte, error) {
	payload, err := event.MarshalPayload()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal payload")
	}

	return json.Marshal(&envelope{
		ID:            event.ID.String(),
		AggregateID:   event.AggregateID.String(),
		Metadata:      event.Metadata,
		Topic:         event.Topic.String(),
		Payload:       payload,
		Timestamp:     event.Timestamp,
		CorrelationID: event.CorrelationID.String(),
	})
}

func decodeEvent(body []byte) (*events.Event, error) {
	var notification snsNotification
	if err := json.Unmarshal(body, &notification); err == nil && notification.Type == "Notification" {
		body = []byte(notification.Message)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal message")
	}

	if env.Topic == "" {
		return nil, events.ErrInvalidTopic
	}

	metadata := env.Metadata
	if metadata == nil {
		metadata = make(events.Metadata)
	}

	return &events.Event{
		ID:            models.ID(env.ID),
		AggregateID:   models.ID(env.AggregateID),
		Topic:         events.Topic(env.Topic),
		EventType:     env.Topic,
		Version:       "1.0",
		Data:          env.Payload,
		Metadata:      metadata,
		Timestamp:     env.Timestamp,
		CorrelationID: models.ID(env.CorrelationID),
	}, nil
}
