package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/meethub/libs/db"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
)

const eventTypeColumns = `id, host_id, name, duration_minutes, slug, description, questions, created_at, updated_at`

func scanEventType(row pgx.Row) (model.EventType, error) {
	var et model.EventType
	err := row.Scan(&et.ID, &et.HostID, &et.Name, &et.DurationMinutes, &et.Slug, &et.Description, &et.Questions, &et.CreatedAt, &et.UpdatedAt)
	return et, err
}

func questionsOrEmpty(qs []model.Question) []model.Question {
	if qs == nil {
		return []model.Question{}
	}
	return qs
}

func (r *Repository) EventTypeBySlug(ctx context.Context, slug string) (model.EventType, error) {
	et, err := scanEventType(r.pool.QueryRow(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE slug = $1`, slug))
	return et, classify(err)
}

func (r *Repository) EventTypeByID(ctx context.Context, id string) (model.EventType, error) {
	et, err := scanEventType(r.pool.QueryRow(ctx, `SELECT `+eventTypeColumns+` FROM event_types WHERE id = $1`, id))
	return et, classify(err)
}

func (r *Repository) ListEventTypes(ctx context.Context, hostID string) ([]model.EventType, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventTypeColumns+`
		FROM event_types
		WHERE host_id = $1
		ORDER BY created_at DESC
	`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EventType
	for rows.Next() {
		et, err := scanEventType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, et)
	}
	return out, rows.Err()
}

func (r *Repository) CreateEventType(ctx context.Context, et model.EventType) (model.EventType, error) {
	et.ID = uuid.NewString()
	created, err := scanEventType(r.pool.QueryRow(ctx, `
		INSERT INTO event_types (id, host_id, name, duration_minutes, slug, description, questions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+eventTypeColumns,
		et.ID, et.HostID, et.Name, et.DurationMinutes, et.Slug, et.Description, questionsOrEmpty(et.Questions),
	))
	return created, eventTypeWriteError(err)
}

func (r *Repository) UpdateEventType(ctx context.Context, et model.EventType) (model.EventType, error) {
	updated, err := scanEventType(r.pool.QueryRow(ctx, `
		UPDATE event_types
		SET name = $3,
			duration_minutes = $4,
			slug = $5,
			description = $6,
			questions = $7,
			updated_at = now()
		WHERE id = $1 AND host_id = $2
		RETURNING `+eventTypeColumns,
		et.ID, et.HostID, et.Name, et.DurationMinutes, et.Slug, et.Description, questionsOrEmpty(et.Questions),
	))
	return updated, eventTypeWriteError(err)
}

// DeleteEventType removes the event type; its bookings go with it.
func (r *Repository) DeleteEventType(ctx context.Context, hostID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM event_types WHERE id = $1 AND host_id = $2`, id, hostID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func eventTypeWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%w: slug already exists", model.ErrConflict)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: create a host profile first", model.ErrValidation)
	}
	return classify(err)
}
