package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SQLSTATE codes worth another attempt.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
)

var txRetries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "db_tx_retries_total",
		Help: "Transactions retried after a transient failure",
	},
	[]string{"sqlstate"},
)

// TxFunc is the body of a unit of work.
type TxFunc func(ctx context.Context, tx pgx.Tx) error

// RetryPolicy bounds how often a unit of work is re-run after a transient
// failure.
type RetryPolicy struct {
	MaxAttempts uint
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy allows three attempts, 20ms then 40ms apart (±50%).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond, MaxDelay: 200 * time.Millisecond}
}

// ErrRetriesExhausted wraps the last transient error once the policy gives up.
var ErrRetriesExhausted = errors.New("transaction retries exhausted")

// RunInTx runs fn in a single transaction. The transaction is committed when
// fn returns nil and rolled back otherwise.
func RunInTx(ctx context.Context, db DBTX, fn TxFunc) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunInTxWithRetry is RunInTx re-run under p while the failure is
// transient (IsRetryable). Other errors are returned on first sight.
func RunInTxWithRetry(ctx context.Context, db DBTX, p RetryPolicy, fn TxFunc) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := RunInTx(ctx, db, fn)
		switch {
		case err == nil:
			return struct{}{}, nil
		case IsRetryable(err):
			txRetries.WithLabelValues(sqlState(err)).Inc()
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}, backoff.WithBackOff(b), backoff.WithMaxTries(p.MaxAttempts))

	if err != nil && IsRetryable(err) {
		return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
	}
	return err
}

// IsRetryable reports whether err is a serialization failure, deadlock, lock
// timeout or a unique violation raced by a concurrent insert.
func IsRetryable(err error) bool {
	switch sqlState(err) {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeUniqueViolation:
		return true
	}
	return false
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
