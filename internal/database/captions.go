package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetCaptions returns a folder's saved captions, empty when none were saved.
func (q *Queries) GetCaptions(ctx context.Context, folderID string) ([]string, error) {
	var raw []byte
	err := q.db.QueryRow(ctx, `SELECT captions FROM folder_captions WHERE folder_id = $1`, folderID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []string{}, nil
		}
		return nil, err
	}

	captions := []string{}
	if err := json.Unmarshal(raw, &captions); err != nil {
		return nil, fmt.Errorf("failed to decode captions of %s: %w", folderID, err)
	}
	return captions, nil
}

// SaveCaptions replaces the captions of a folder.
func (q *Queries) SaveCaptions(ctx context.Context, folderID string, captions []string) error {
	if captions == nil {
		captions = []string{}
	}
	raw, err := json.Marshal(captions)
	if err != nil {
		return fmt.Errorf("failed to marshal captions: %w", err)
	}

	query := `
		INSERT INTO folder_captions (folder_id, captions)
		VALUES ($1, $2)
		ON CONFLICT (folder_id) DO UPDATE SET captions = EXCLUDED.captions, updated_at = NOW()
	`
	if _, err := q.db.Exec(ctx, query, folderID, raw); err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("save captions %s: %w", folderID, ErrFolderNotFound)
		}
		return err
	}
	return nil
}

func (q *Queries) DeleteCaptionsByFolders(ctx context.Context, folderIDs []string) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}
	res, err := q.db.Exec(ctx, `DELETE FROM folder_captions WHERE folder_id = ANY($1)`, folderIDs)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
