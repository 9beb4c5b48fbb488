package db

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// ClassifiedError normalizes backend failures to the two-case shape the
// bench layer understands: fatal (handle unusable, the owning job stops) or
// not (the transaction failed, execution continues). Retryable additionally
// marks transient conditions the pooled-mode retry loop may re-run.
type ClassifiedError struct {
	Err       error
	Fatal     bool
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	return e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Classify wraps a raw backend error. Serialization failures and deadlocks
// are transient: the transaction can be retried on any connection. SQLSTATE
// classes 08 (connection exception) and 57 (operator intervention) mean the
// connection is gone. Any non-SQLSTATE error (network, context, protocol)
// is treated as fatal because the session state is unknown afterwards.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return &ClassifiedError{Err: err, Retryable: true}
		}
		if pgerrcode.IsConnectionException(pgErr.Code) || pgerrcode.IsOperatorIntervention(pgErr.Code) {
			return &ClassifiedError{Err: err, Fatal: true}
		}
		// Query-level failure (constraint, syntax, ...): the handle survives.
		return &ClassifiedError{Err: err}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{Err: err, Fatal: true}
	}
	return &ClassifiedError{Err: err, Fatal: true}
}

// IsFatal reports whether err means the handle is unusable.
func IsFatal(err error) bool {
	var classified *ClassifiedError
	return errors.As(err, &classified) && classified.Fatal
}

// IsRetryable reports whether err is a transient condition worth re-running.
func IsRetryable(err error) bool {
	var classified *ClassifiedError
	return errors.As(err, &classified) && classified.Retryable
}
