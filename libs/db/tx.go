package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxPolicy controls how RunInTx opens and retries a transaction.
type TxPolicy struct {
	Options     pgx.TxOptions
	MaxAttempts int
}

// Serializable runs at SERIALIZABLE isolation and retries serialization failures.
func Serializable(maxAttempts int) TxPolicy {
	return TxPolicy{
		Options:     pgx.TxOptions{IsoLevel: pgx.Serializable},
		MaxAttempts: maxAttempts,
	}
}

// RunInTx runs fn in a transaction and commits when fn returns nil.
// Retryable failures re-run fn from the start, up to MaxAttempts times;
// the last retryable error is returned wrapped so IsRetryable still holds.
func RunInTx(ctx context.Context, pool *Pool, policy TxPolicy, fn func(pgx.Tx) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = runOnce(ctx, pool, policy.Options, fn)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("transaction gave up after %d attempts: %w", attempts, lastErr)
}

func runOnce(ctx context.Context, pool *Pool, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
