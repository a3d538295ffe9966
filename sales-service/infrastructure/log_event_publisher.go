package infrastructure

import (
	"context"
	"sync"

	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/logging"
)

var _ events.Publisher = (*LogEventPublisher)(nil)

// LogEventPublisher writes integration events to the log instead of SNS.
// It keeps what it published so local runs and tests can inspect it.
type LogEventPublisher struct {
	logger *logging.Logger

	mu        sync.Mutex
	published []*events.Event
}

func NewLogEventPublisher(logger *logging.Logger) *LogEventPublisher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LogEventPublisher{logger: logger}
}

func (p *LogEventPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	p.mu.Lock()
	p.published = append(p.published, evts...)
	p.mu.Unlock()

	for _, event := range evts {
		p.logger.WithContext(ctx).Infof("event published", map[string]interface{}{
			"event_id":       event.ID.String(),
			"event_type":     event.EventType,
			"aggregate_id":   event.AggregateID.String(),
			"correlation_id": event.CorrelationID.String(),
		})
	}
	return nil
}

// Published returns the events of the given type, all events when eventType is empty
func (p *LogEventPublisher) Published(eventType string) []*events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*events.Event
	for _, event := range p.published {
		if eventType == "" || event.EventType == eventType {
			out = append(out, event)
		}
	}
	return out
}
