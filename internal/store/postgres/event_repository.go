package postgres

import (
	"context"

	"payrelay/internal/domain/event"
	"payrelay/internal/store/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// eventRepository journals gateway webhook deliveries
type eventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *pgxpool.Pool) repositories.EventRepository {
	return &eventRepository{db: db}
}

// Save inserts a new event and assigns its ID
func (r *eventRepository) Save(ctx context.Context, e *event.Event) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO gateway_events (event_type, reference, channel, payload_json,
		                            received_at, processing_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		e.Type, e.Reference, e.Channel, e.RawJSON, e.ReceivedAt, string(e.ProcessingStatus),
	).Scan(&e.ID)
}

// FindByID finds an event by ID
func (r *eventRepository) FindByID(ctx context.Context, id int64) (*event.Event, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, event_type, reference, channel, payload_json, received_at,
		       processed_at, processing_status, error
		  FROM gateway_events
		 WHERE id = $1`, id)
	return scanEvent(row)
}

// MarkProcessed records the result of reconciling an event
func (r *eventRepository) MarkProcessed(ctx context.Context, id int64, status event.ProcessingStatus, cause string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE gateway_events
		   SET processing_status = $1, error = $2, processed_at = now(), updated_at = now()
		 WHERE id = $3`, string(status), cause, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*event.Event, error) {
	var (
		e      event.Event
		status string
	)
	err := row.Scan(&e.ID, &e.Type, &e.Reference, &e.Channel, &e.RawJSON, &e.ReceivedAt,
		&e.ProcessedAt, &status, &e.Error)
	if err != nil {
		return nil, translate(err)
	}
	e.ProcessingStatus = event.ProcessingStatus(status)
	return &e, nil
}
