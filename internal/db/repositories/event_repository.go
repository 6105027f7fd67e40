// event_repository.go implements EventRepository for scheduled activities.
package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/chorusdesk/chorusdesk/internal/db/models"
)

const eventColumns = `id, title, location, starts_at, ends_at, notes, created_at, created_by, updated_at, updated_by`

// EventRepository handles event database operations.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// GetEventByID retrieves an event by id. Returns nil, nil when absent.
func (r *EventRepository) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	err := r.db.GetContext(ctx, event, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents retrieves events ordered by start time descending, with the
// total count.
func (r *EventRepository) ListEvents(ctx context.Context, limit, offset int) ([]models.Event, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM events`); err != nil {
		return nil, 0, err
	}

	events := make([]models.Event, 0)
	err := r.db.SelectContext(ctx, &events,
		`SELECT `+eventColumns+` FROM events ORDER BY starts_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// InsertEventTx inserts an event inside an open save transaction and fills in
// the database-generated id.
func (r *EventRepository) InsertEventTx(ctx context.Context, tx *sqlx.Tx, e *models.Event) error {
	return tx.QueryRowContext(ctx, `
		INSERT INTO events (title, location, starts_at, ends_at, notes, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		e.Title, e.Location, e.StartsAt, e.EndsAt, e.Notes, e.CreatedAt, e.CreatedBy).Scan(&e.ID)
}

// UpdateEventTx updates an event inside an open save transaction.
func (r *EventRepository) UpdateEventTx(ctx context.Context, tx *sqlx.Tx, e *models.Event) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE events SET title = $2, location = $3, starts_at = $4, ends_at = $5, notes = $6, updated_at = $7, updated_by = $8
		WHERE id = $1`,
		e.ID, e.Title, e.Location, e.StartsAt, e.EndsAt, e.Notes, e.UpdatedAt, e.UpdatedBy)
	return err
}

// DeleteEventTx removes an event inside an open save transaction.
func (r *EventRepository) DeleteEventTx(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}
