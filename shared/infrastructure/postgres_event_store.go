package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/shared/events"
	"github.com/vehiclemarket/sales-system/shared/models"
)

var _ events.EventLog = (*PostgresEventStore)(nil)

const eventStreamSchema = `
CREATE TABLE IF NOT EXISTS event_stream (
	id             UUID PRIMARY KEY,
	aggregate_id   UUID NOT NULL,
	event_type     TEXT NOT NULL,
	version        TEXT NOT NULL,
	data           JSONB NOT NULL,
	metadata       JSONB NOT NULL,
	timestamp      TIMESTAMPTZ NOT NULL,
	correlation_id TEXT NOT NULL DEFAULT '',
	stream_version INT NOT NULL,
	UNIQUE (aggregate_id, stream_version)
)`

// PostgresEventStore is an append-only event log backed by PostgreSQL
type PostgresEventStore struct {
	db *sqlx.DB
}

// NewPostgresEventStore creates a new PostgresEventStore
func NewPostgresEventStore(db *sqlx.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

type postgresEvent struct {
	ID            string    `db:"id"`
	AggregateID   string    `db:"aggregate_id"`
	EventType     string    `db:"event_type"`
	Version       string    `db:"version"`
	Data          []byte    `db:"data"`
	Metadata      []byte    `db:"metadata"`
	Timestamp     time.Time `db:"timestamp"`
	CorrelationID string    `db:"correlation_id"`
	StreamVersion int       `db:"stream_version"`
}

// InitSchema creates the event_stream table
func (es *PostgresEventStore) InitSchema(ctx context.Context) error {
	if _, err := es.db.ExecContext(ctx, eventStreamSchema); err != nil {
		return errors.Wrap(err, "failed to create event_stream table")
	}
	return nil
}

// Append writes the event at the next stream version of its aggregate.
// Concurrent appends to the same aggregate collide on the unique constraint.
func (es *PostgresEventStore) Append(ctx context.Context, event *events.Event) error {
	tx, err := es.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.GetContext(ctx, &currentVersion,
		"SELECT COALESCE(MAX(stream_version), 0) FROM event_stream WHERE aggregate_id = $1",
		event.AggregateID.String())
	if err != nil {
		return errors.Wrap(err, "failed to get current version")
	}

	pgEvent, err := es.toPostgres(event, currentVersion+1)
	if err != nil {
		return errors.Wrap(err, "failed to convert event")
	}

	query := `
		INSERT INTO event_stream (
			id, aggregate_id, event_type, version, data, metadata,
			timestamp, correlation_id, stream_version
		) VALUES (
			:id, :aggregate_id, :event_type, :version, :data, :metadata,
			:timestamp, :correlation_id, :stream_version
		)`

	if _, err := tx.NamedExecContext(ctx, query, pgEvent); err != nil {
		return errors.Wrap(err, "failed to insert event")
	}

	return errors.Wrap(tx.Commit(), "failed to commit event")
}

// GetEvents retrieves all events for an aggregate in stream order
func (es *PostgresEventStore) GetEvents(ctx context.Context, aggregateID models.ID) ([]*events.Event, error) {
	query := `
		SELECT id, aggregate_id, event_type, version, data, metadata,
			   timestamp, correlation_id, stream_version
		FROM event_stream
		WHERE aggregate_id = $1
		ORDER BY stream_version ASC`

	var pgEvents []postgresEvent
	if err := es.db.SelectContext(ctx, &pgEvents, query, aggregateID.String()); err != nil {
		return nil, errors.Wrap(err, "failed to get events")
	}

	result := make([]*events.Event, len(pgEvents))
	for i := range pgEvents {
		event, err := es.toDomain(&pgEvents[i])
		if err != nil {
			return nil, err
		}
		result[i] = event
	}

	return result, nil
}

func (es *PostgresEventStore) toPostgres(event *events.Event, streamVersion int) (*postgresEvent, error) {
	data, err := event.MarshalPayload()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal event data")
	}

	metadata := event.Metadata
	if metadata == nil {
		metadata = events.Metadata{}
	}
	rawMetadata, err := json.Marshal(metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal event metadata")
	}

	return &postgresEvent{
		ID:            event.ID.String(),
		AggregateID:   event.AggregateID.String(),
		EventType:     event.EventType,
		Version:       event.Version,
		Data:          data,
		Metadata:      rawMetadata,
		Timestamp:     event.Timestamp,
		CorrelationID: event.CorrelationID.String(),
		StreamVersion: streamVersion,
	}, nil
}

func (es *PostgresEventStore) toDomain(pgEvent *postgresEvent) (*events.Event, error) {
	metadata := events.Metadata{}
	if len(pgEvent.Metadata) > 0 {
		if err := json.Unmarshal(pgEvent.Metadata, &metadata); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal event metadata")
		}
	}

	return &events.Event{
		ID:            models.ID(pgEvent.ID),
		AggregateID:   models.ID(pgEvent.AggregateID),
		Topic:         events.Topic(pgEvent.EventType),
		EventType:     pgEvent.EventType,
		Version:       pgEvent.Version,
		Data:          json.RawMessage(pgEvent.Data),
		Metadata:      metadata,
		Timestamp:     pgEvent.Timestamp,
		CorrelationID: models.ID(pgEvent.CorrelationID),
	}, nil
}
