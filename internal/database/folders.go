package database

import (
	"context"
	"drive-mirror/internal/models"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

func (q *Queries) ListFoldersByParent(ctx context.Context, parentID string) ([]models.Folder, error) {
	query := `
		SELECT id, name, parent_id, created_time, synced_at
		FROM folders
		WHERE parent_id = $1
		ORDER BY name
	`
	rows, err := q.db.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []models.Folder
	for rows.Next() {
		var folder models.Folder
		err := rows.Scan(
			&folder.ID,
			&folder.Name,
			&folder.ParentID,
			&folder.CreatedTime,
			&folder.SyncedAt,
		)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if folders == nil {
		return []models.Folder{}, nil
	}

	return folders, nil
}

func (q *Queries) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	query := `
		SELECT id, name, parent_id, created_time, synced_at
		FROM folders
		WHERE id = $1
	`
	var folder models.Folder
	err := q.db.QueryRow(ctx, query, id).Scan(
		&folder.ID,
		&folder.Name,
		&folder.ParentID,
		&folder.CreatedTime,
		&folder.SyncedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &folder, nil
}

// InsertFolders writes all rows in a single round trip.
func (q *Queries) InsertFolders(ctx context.Context, folders []models.Folder) error {
	if len(folders) == 0 {
		return nil
	}

	query := `
		INSERT INTO folders (id, name, parent_id, created_time, synced_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	batch := &pgx.Batch{}
	for _, f := range folders {
		batch.Queue(query, f.ID, f.Name, f.ParentID, f.CreatedTime)
	}

	results := q.db.SendBatch(ctx, batch)
	defer results.Close()

	for _, f := range folders {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert folder %s: %w", f.ID, err)
		}
	}
	return results.Close()
}

func (q *Queries) RenameFolder(ctx context.Context, id string, newName string) (bool, error) {
	query := `UPDATE folders SET name = $1, synced_at = NOW() WHERE id = $2`
	res, err := q.db.Exec(ctx, query, newName, id)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// DeleteFolders removes the given folder rows in one statement. Callers are
// expected to have removed the owned captions and images first.
func (q *Queries) DeleteFolders(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM folders WHERE id = ANY($1)`
	res, err := q.db.Exec(ctx, query, ids)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			if pgErrorTable(err) == "folder_captions" {
				return 0, ErrFolderHasCaptions
			}
			return 0, ErrFolderHasImages
		}
		return 0, err
	}
	return res.RowsAffected(), nil
}

func (q *Queries) ListFolderSummaries(ctx context.Context) ([]models.FolderSummary, error) {
	query := `
		SELECT f.id, f.name, COUNT(i.id)
		FROM folders f
		LEFT JOIN images i ON i.folder_id = f.id
		GROUP BY f.id, f.name
		ORDER BY f.name
	`
	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.FolderSummary
	for rows.Next() {
		var s models.FolderSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.ImageCount); err != nil {
			return nil, err
		}
		s.Type = FolderType(s.Name)
		summaries = append(summaries, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if summaries == nil {
		return []models.FolderSummary{}, nil
	}

	return summaries, nil
}

// FolderType classifies a folder by its name suffix.
func FolderType(name string) string {
	upper := strings.ToUpper(name)
	switch {
	case strings.HasSuffix(upper, "_STORY"):
		return models.FolderTypeStory
	case strings.HasSuffix(upper, "_POST"):
		return models.FolderTypePost
	default:
		return models.FolderTypeOther
	}
}
