package database

import (
	"context"
	"drive-mirror/internal/models"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const imageColumns = `id, folder_id, name, mime_type, thumbnail_link, created_time, modified_time, synced_at`

func scanImage(row pgx.Row) (models.Image, error) {
	var img models.Image
	err := row.Scan(
		&img.ID,
		&img.FolderID,
		&img.Name,
		&img.MimeType,
		&img.ThumbnailLink,
		&img.CreatedTime,
		&img.ModifiedTime,
		&img.SyncedAt,
	)
	return img, err
}

func (q *Queries) collectImages(rows pgx.Rows) ([]models.Image, error) {
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if images == nil {
		return []models.Image{}, nil
	}

	return images, nil
}

func (q *Queries) ListImagesByFolder(ctx context.Context, folderID string) ([]models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE folder_id = $1 ORDER BY id`
	rows, err := q.db.Query(ctx, query, folderID)
	if err != nil {
		return nil, err
	}
	return q.collectImages(rows)
}

func (q *Queries) ListImagesByFolders(ctx context.Context, folderIDs []string) ([]models.Image, error) {
	if len(folderIDs) == 0 {
		return []models.Image{}, nil
	}
	query := `SELECT ` + imageColumns + ` FROM images WHERE folder_id = ANY($1) ORDER BY folder_id, id`
	rows, err := q.db.Query(ctx, query, folderIDs)
	if err != nil {
		return nil, err
	}
	return q.collectImages(rows)
}

// ListImagesByIDs returns the stored rows among ids, whatever folder they are in.
func (q *Queries) ListImagesByIDs(ctx context.Context, ids []string) ([]models.Image, error) {
	if len(ids) == 0 {
		return []models.Image{}, nil
	}
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = ANY($1) ORDER BY id`
	rows, err := q.db.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	return q.collectImages(rows)
}

func (q *Queries) CountImagesInFolder(ctx context.Context, folderID string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM images WHERE folder_id = $1`, folderID).Scan(&n)
	return n, err
}

// ListImagesPage returns a folder's images newest first.
func (q *Queries) ListImagesPage(ctx context.Context, folderID string, limit int, offset int) ([]models.Image, error) {
	query := `
		SELECT ` + imageColumns + `
		FROM images
		WHERE folder_id = $1
		ORDER BY created_time DESC NULLS LAST, id
		LIMIT $2 OFFSET $3
	`
	rows, err := q.db.Query(ctx, query, folderID, limit, offset)
	if err != nil {
		return nil, err
	}
	return q.collectImages(rows)
}

func (q *Queries) GetImage(ctx context.Context, id string) (*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`
	img, err := scanImage(q.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &img, nil
}

// InsertImages adds rows in one batch. An id that already exists, in any
// folder, is overwritten and moved to the given folder.
func (q *Queries) InsertImages(ctx context.Context, images []models.Image) error {
	if len(images) == 0 {
		return nil
	}

	query := `
		INSERT INTO images (id, folder_id, name, mime_type, thumbnail_link, created_time, modified_time, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			folder_id = EXCLUDED.folder_id,
			name = EXCLUDED.name,
			mime_type = EXCLUDED.mime_type,
			thumbnail_link = EXCLUDED.thumbnail_link,
			created_time = EXCLUDED.created_time,
			modified_time = EXCLUDED.modified_time,
			synced_at = NOW()
	`
	batch := &pgx.Batch{}
	for _, img := range images {
		batch.Queue(query, img.ID, img.FolderID, img.Name, img.MimeType, img.ThumbnailLink, img.CreatedTime, img.ModifiedTime)
	}

	results := q.db.SendBatch(ctx, batch)
	defer results.Close()

	for _, img := range images {
		if _, err := results.Exec(); err != nil {
			if pgErrorCode(err) == pgForeignKeyViolation {
				return fmt.Errorf("insert image %s: %w", img.ID, ErrFolderNotFound)
			}
			return fmt.Errorf("insert image %s: %w", img.ID, err)
		}
	}
	return results.Close()
}

// UpdateImage rewrites a row, folder included, so it also moves an image
// between folders.
func (q *Queries) UpdateImage(ctx context.Context, img models.Image) (bool, error) {
	query := `
		UPDATE images
		SET folder_id = $1, name = $2, mime_type = $3, thumbnail_link = $4, created_time = $5, modified_time = $6, synced_at = NOW()
		WHERE id = $7
	`
	res, err := q.db.Exec(ctx, query, img.FolderID, img.Name, img.MimeType, img.ThumbnailLink, img.CreatedTime, img.ModifiedTime, img.ID)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return false, fmt.Errorf("update image %s: %w", img.ID, ErrFolderNotFound)
		}
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// DeleteImages issues a single statement; callers chunk large id sets.
func (q *Queries) DeleteImages(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := q.db.Exec(ctx, `DELETE FROM images WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func (q *Queries) DeleteImagesByFolders(ctx context.Context, folderIDs []string) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}
	res, err := q.db.Exec(ctx, `DELETE FROM images WHERE folder_id = ANY($1)`, folderIDs)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

// CountOrphanImages reports image rows whose folder no longer exists.
func (q *Queries) CountOrphanImages(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM images i
		LEFT JOIN folders f ON f.id = i.folder_id
		WHERE f.id IS NULL
	`
	var n int64
	err := q.db.QueryRow(ctx, query).Scan(&n)
	return n, err
}
