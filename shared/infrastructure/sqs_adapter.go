package infrastructure

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/logging"
)

var _ events.Subscriber = (*SQSSubscriberAdapter)(nil)

// SQSSubscriberAdapter adapts SQSEventSubscriber to the events.Subscriber interface
type SQSSubscriberAdapter struct {
	mu         sync.Mutex
	client     SQSAPI
	queueURL   string
	log        *logging.Logger
	opts       []SQSSubscriberOption
	subscriber *SQSEventSubscriber
}

// NewSQSSubscriberAdapter builds the SQS client from the default AWS config
func NewSQSSubscriberAdapter(ctx context.Context, region, endpoint, queueURL string, log *logging.Logger, opts ...SQSSubscriberOption) (*SQSSubscriberAdapter, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
	})

	return NewSQSSubscriberAdapterWithClient(client, queueURL, log, opts...), nil
}

// NewSQSSubscriberAdapterWithClient uses an already configured client
func NewSQSSubscriberAdapterWithClient(client SQSAPI, queueURL string, log *logging.Logger, opts ...SQSSubscriberOption) *SQSSubscriberAdapter {
	return &SQSSubscriberAdapter{
		client:   client,
		queueURL: queueURL,
		log:      log,
		opts:     opts,
	}
}

// topicFilter acknowledges events whose topic does not match the pattern
type topicFilter struct {
	pattern events.Topic
	handler events.EventHandler
}

func (f *topicFilter) HandlerID() string {
	if identified, ok := f.handler.(interface{ HandlerID() string }); ok {
		return identified.HandlerID()
	}
	return "sqs-subscriber"
}

func (f *topicFilter) Handle(ctx context.Context, event *events.Event) error {
	if f.pattern != "" && !event.Topic.Matches(f.pattern) {
		return nil
	}
	return f.handler.Handle(ctx, event)
}

// Subscribe starts consuming the queue; eventType is a topic pattern, empty means everything
func (s *SQSSubscriberAdapter) Subscribe(ctx context.Context, eventType string, handler events.EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscriber != nil {
		return errors.New("subscriber is already running")
	}

	filter := &topicFilter{pattern: events.Topic(eventType), handler: handler}
	subscriber := NewSQSEventSubscriber(s.client, s.queueURL, filter, s.log, s.opts...)

	if err := subscriber.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start SQS subscriber")
	}

	s.subscriber = subscriber
	return nil
}

// Close stops the subscriber
func (s *SQSSubscriberAdapter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscriber == nil {
		return nil
	}

	if err := s.subscriber.Stop(context.Background()); err != nil {
		return errors.Wrap(err, "failed to stop SQS subscriber")
	}

	s.subscriber = nil
	return nil
}
