package reconcile

import (
	"context"
	"drive-mirror/internal/remote"
	"errors"
	"fmt"
)

// ErrAmbiguousEmpty is returned when the remote reported no children for a
// scope that still has local rows, and the listing could not be confirmed.
// Nothing is mutated in that case.
var ErrAmbiguousEmpty = errors.New("unconfirmed empty remote listing")

// PersistenceError wraps a failed write. The transaction it belonged to has
// been rolled back.
type PersistenceError struct {
	Op    string
	Scope string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Scope, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

const (
	KindTransientFetch = "transient_fetch"
	KindAmbiguousEmpty = "ambiguous_empty"
	KindPersistence    = "persistence"
	KindCancelled      = "cancelled"
	KindUnknown        = "unknown"
)

// ErrorKind classifies err for run reports.
func ErrorKind(err error) string {
	var tfe *remote.TransientFetchError
	var pe *PersistenceError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrAmbiguousEmpty):
		return KindAmbiguousEmpty
	case errors.As(err, &tfe):
		return KindTransientFetch
	case errors.As(err, &pe):
		return KindPersistence
	default:
		return KindUnknown
	}
}
