package database

import (
	"context"
	"drive-mirror/internal/models"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (q *Queries) StartRun(ctx context.Context, id uuid.UUID, kind string, scope string, startedAt time.Time) error {
	query := `
		INSERT INTO sync_runs (id, kind, scope, state, started_at)
		VALUES ($1, $2, $3, 'RUNNING', $4)
	`
	_, err := q.db.Exec(ctx, query, id, kind, scope, startedAt)
	return err
}

func (q *Queries) FinishRun(ctx context.Context, id uuid.UUID, state string, finishedAt time.Time, report interface{}) error {
	reportBytes, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}

	query := `UPDATE sync_runs SET state = $1, finished_at = $2, report = $3 WHERE id = $4`
	_, err = q.db.Exec(ctx, query, state, finishedAt, reportBytes, id)
	return err
}

func (q *Queries) GetRun(ctx context.Context, id uuid.UUID) (*models.SyncRun, error) {
	query := `
		SELECT id, kind, scope, state, started_at, finished_at, report
		FROM sync_runs
		WHERE id = $1
	`
	var run models.SyncRun
	err := q.db.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.Kind,
		&run.Scope,
		&run.State,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Report,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (q *Queries) ListRuns(ctx context.Context, limit int, offset int) ([]models.SyncRun, error) {
	query := `
		SELECT id, kind, scope, state, started_at, finished_at, report
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := q.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		err := rows.Scan(
			&run.ID,
			&run.Kind,
			&run.Scope,
			&run.State,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Report,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if runs == nil {
		return []models.SyncRun{}, nil
	}

	return runs, nil
}
