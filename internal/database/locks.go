package database

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// TryAdvisoryLock takes a session-level advisory lock keyed by scope on a
// dedicated connection. The returned release func unlocks and returns the
// connection to the pool; it is nil when the lock was not acquired.
func (s *Store) TryAdvisoryLock(ctx context.Context, scope string) (func(), bool, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection for lock %q: %w", scope, err)
	}

	var acquired bool
	err = conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, scope).Scan(&acquired)
	if err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock %q: %w", scope, err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	release := func() {
		// The caller's ctx may already be cancelled when the run ends.
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, scope); err != nil {
			log.Warnf("failed to release advisory lock %q: %v", scope, err)
			conn.Conn().Close(context.Background())
		}
		conn.Release()
	}
	return release, true, nil
}
