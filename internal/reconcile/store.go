package reconcile

import (
	"context"
	"drive-mirror/internal/database"
	"drive-mirror/internal/models"
	"drive-mirror/internal/remote"
)

// Tx is the write surface available inside one apply transaction.
type Tx interface {
	InsertFolders(ctx context.Context, folders []models.Folder) error
	RenameFolder(ctx context.Context, id string, newName string) (bool, error)
	DeleteFolders(ctx context.Context, ids []string) (int64, error)
	InsertImages(ctx context.Context, images []models.Image) error
	UpdateImage(ctx context.Context, img models.Image) (bool, error)
	DeleteImages(ctx context.Context, ids []string) (int64, error)
	DeleteImagesByFolders(ctx context.Context, folderIDs []string) (int64, error)
	DeleteCaptionsByFolders(ctx context.Context, folderIDs []string) (int64, error)
}

type Store interface {
	ListFoldersByParent(ctx context.Context, parentID string) ([]models.Folder, error)
	ListImagesByFolder(ctx context.Context, folderID string) ([]models.Image, error)
	ListImagesByIDs(ctx context.Context, ids []string) ([]models.Image, error)
	InTx(ctx context.Context, fn func(Tx) error) error
}

type Remote interface {
	ListFolders(ctx context.Context, parentID string) (*remote.Listing[remote.RemoteFolder], error)
	ListFiles(ctx context.Context, folderID string) (*remote.Listing[remote.RemoteFile], error)
}

// Cache is the subset of the file cache the reconcilers drive. A nil Cache
// disables every cache side effect.
type Cache interface {
	Rename(folderID, oldName, newName string) (bool, error)
	Remove(folderID, name string) error
	RemoveFolder(folderID string) error
	Prefetch(ctx context.Context, folderID, name, imageID string) error
}

// PgStore adapts the pgx-backed database.Store to Store.
type PgStore struct {
	*database.Store
}

func NewPgStore(s *database.Store) *PgStore {
	return &PgStore{Store: s}
}

func (s *PgStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return s.ExecTx(ctx, func(q *database.Queries) error {
		return fn(q)
	})
}
