package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/meethub/libs/db"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/meethub/services/scheduling-service/internal/outbox"
)

// Repository is the Postgres store behind the scheduling service.
type Repository struct {
	pool      *db.Pool
	outbox    *outbox.Repository
	txPolicy  db.TxPolicy
	txTimeout time.Duration
}

type Options struct {
	// TxTimeout bounds one booking or cancellation step, retries included.
	TxTimeout time.Duration
	// MaxAttempts bounds re-runs after serialization failures.
	MaxAttempts int
}

func NewRepository(pool *db.Pool, ob *outbox.Repository, opts Options) *Repository {
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Repository{
		pool:      pool,
		outbox:    ob,
		txPolicy:  db.Serializable(opts.MaxAttempts),
		txTimeout: opts.TxTimeout,
	}
}

func pgDate(d model.Date) time.Time {
	return d.At(0, time.UTC)
}

// classify maps driver errors onto the model's sentinel errors.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsNoRows(err), db.IsInvalidText(err):
		return model.ErrNotFound
	case db.IsExclusionViolation(err):
		return fmt.Errorf("%w: %v", model.ErrConflict, err)
	case db.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", model.ErrTransient, err)
	}
	return err
}
