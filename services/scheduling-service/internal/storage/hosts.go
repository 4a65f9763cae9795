package storage

import (
	"context"
	"strings"

	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
)

func (r *Repository) Host(ctx context.Context, hostID string) (model.Host, error) {
	var h model.Host
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, timezone, created_at, updated_at
		FROM hosts
		WHERE id = $1
	`, hostID).Scan(&h.ID, &h.Name, &h.Email, &h.Timezone, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return model.Host{}, classify(err)
	}
	return h, nil
}

func (r *Repository) UpsertHost(ctx context.Context, h model.Host) (model.Host, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO hosts (id, name, email, timezone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			email = EXCLUDED.email,
			timezone = EXCLUDED.timezone,
			updated_at = now()
		RETURNING id, name, email, timezone, created_at, updated_at
	`, h.ID, strings.TrimSpace(h.Name), strings.TrimSpace(h.Email), h.Timezone).Scan(
		&h.ID, &h.Name, &h.Email, &h.Timezone, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return model.Host{}, classify(err)
	}
	return h, nil
}
