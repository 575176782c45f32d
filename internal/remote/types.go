package remote

import (
	"errors"
	"fmt"
	"time"
)

type RemoteFolder struct {
	ID          string
	Name        string
	CreatedTime *time.Time
}

type RemoteFile struct {
	ID            string
	Name          string
	MimeType      string
	ThumbnailLink string
	CreatedTime   *time.Time
	ModifiedTime  *time.Time
}

// Listing is a fully paginated result for one scope.
//
// Confirmed is set only when the remote reported a complete result and the
// parent scope was verified to exist. An empty listing that is not confirmed
// must not be treated as "everything was deleted".
type Listing[T any] struct {
	Items     []T
	Confirmed bool
	Pages     int
}

var ErrContentNotFound = errors.New("remote content not found")
var ErrRootNotFound = errors.New("root folder not found on remote")

// TransientFetchError is returned once a retryable failure (rate limit,
// network, 5xx) persisted through every allowed attempt.
type TransientFetchError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s: transient failure after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

func parseDriveTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
