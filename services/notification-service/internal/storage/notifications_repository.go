package storage

import (
	"context"

	"github.com/md-rashed-zaman/meethub/libs/db"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Notification is one delivery attempt for one recipient of a meeting event.
type Notification struct {
	EventID   string
	EventType string
	BookingID string
	Role      string
	Recipient string
	Subject   string
	Status    string
	Error     string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (event_id, event_type, booking_id, role, recipient, subject, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
	`, n.EventID, n.EventType, n.BookingID, n.Role, n.Recipient, n.Subject, n.Status, n.Error)
	return err
}
