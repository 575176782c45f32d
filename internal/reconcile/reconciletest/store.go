// Package reconciletest provides in-memory stand-ins for the store, remote
// and cache used by the reconcilers.
package reconciletest

import (
	"context"
	"drive-mirror/internal/database"
	"drive-mirror/internal/models"
	"drive-mirror/internal/reconcile"
	"fmt"
	"sort"
	"sync"
)

// MemStore is a transactional in-memory Store. Writes made inside InTx are
// applied to a copy that only replaces the live state on success. It
// enforces the same ownership rules as the schema: images need an existing
// folder and folders cannot be deleted while they own images or captions.
type MemStore struct {
	mu       sync.Mutex
	folders  map[string]models.Folder
	images   map[string]models.Image
	captions map[string][]string

	// Calls counts statements by name, rolled back ones included.
	Calls map[string]int
	// MaxBatch is the largest id set passed to each delete statement.
	MaxBatch map[string]int
	// FailOn makes the named statement return the given error.
	FailOn map[string]error

	Commits   int
	Rollbacks int
}

func NewMemStore() *MemStore {
	return &MemStore{
		folders:  map[string]models.Folder{},
		images:   map[string]models.Image{},
		captions: map[string][]string{},
		Calls:    map[string]int{},
		MaxBatch: map[string]int{},
		FailOn:   map[string]error{},
	}
}

func (s *MemStore) Seed(folders []models.Folder, images []models.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range folders {
		s.folders[f.ID] = f
	}
	for _, img := range images {
		s.images[img.ID] = img
	}
}

// SeedCaptions stores captions for a folder, as the dashboard would.
func (s *MemStore) SeedCaptions(folderID string, captions ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captions[folderID] = captions
}

func (s *MemStore) Captions(folderID string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.captions[folderID]
	return c, ok
}

func (s *MemStore) Folder(id string) (models.Folder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[id]
	return f, ok
}

func (s *MemStore) Image(id string) (models.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[id]
	return img, ok
}

// Folders returns every folder sorted by id.
func (s *MemStore) Folders() []models.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Folder, 0, len(s.folders))
	for _, f := range s.folders {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Images returns every image sorted by id.
func (s *MemStore) Images() []models.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Image, 0, len(s.images))
	for _, img := range s.images {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemStore) OrphanImages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, img := range s.images {
		if _, ok := s.folders[img.FolderID]; !ok {
			n++
		}
	}
	return n
}

func (s *MemStore) ListFoldersByParent(ctx context.Context, parentID string) ([]models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("ListFoldersByParent", 0); err != nil {
		return nil, err
	}
	var out []models.Folder
	for _, f := range s.folders {
		if f.ParentID != nil && *f.ParentID == parentID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) ListImagesByFolder(ctx context.Context, folderID string) ([]models.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("ListImagesByFolder", 0); err != nil {
		return nil, err
	}
	var out []models.Image
	for _, img := range s.images {
		if img.FolderID == folderID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) ListImagesByIDs(ctx context.Context, ids []string) ([]models.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("ListImagesByIDs", 0); err != nil {
		return nil, err
	}
	var out []models.Image
	for _, id := range ids {
		if img, ok := s.images[id]; ok {
			out = append(out, img)
		}
	}
	return out, nil
}

func (s *MemStore) InTx(ctx context.Context, fn func(reconcile.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		s:        s,
		folders:  map[string]models.Folder{},
		images:   map[string]models.Image{},
		captions: map[string][]string{},
	}
	for id, f := range s.folders {
		tx.folders[id] = f
	}
	for id, img := range s.images {
		tx.images[id] = img
	}
	for id, c := range s.captions {
		tx.captions[id] = c
	}

	if err := fn(tx); err != nil {
		s.Rollbacks++
		return err
	}
	s.folders = tx.folders
	s.images = tx.images
	s.captions = tx.captions
	s.Commits++
	return nil
}

// hit must be called with mu held.
func (s *MemStore) hit(name string, batch int) error {
	s.Calls[name]++
	if batch > s.MaxBatch[name] {
		s.MaxBatch[name] = batch
	}
	return s.FailOn[name]
}

type memTx struct {
	s        *MemStore
	folders  map[string]models.Folder
	images   map[string]models.Image
	captions map[string][]string
}

func (tx *memTx) InsertFolders(ctx context.Context, folders []models.Folder) error {
	if len(folders) == 0 {
		return nil
	}
	if err := tx.s.hit("InsertFolders", len(folders)); err != nil {
		return err
	}
	for _, f := range folders {
		if _, ok := tx.folders[f.ID]; ok {
			return fmt.Errorf("insert folder %s: duplicate key", f.ID)
		}
		tx.folders[f.ID] = f
	}
	return nil
}

func (tx *memTx) RenameFolder(ctx context.Context, id string, newName string) (bool, error) {
	if err := tx.s.hit("RenameFolder", 1); err != nil {
		return false, err
	}
	f, ok := tx.folders[id]
	if !ok {
		return false, nil
	}
	f.Name = newName
	tx.folders[id] = f
	return true, nil
}

func (tx *memTx) DeleteFolders(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := tx.s.hit("DeleteFolders", len(ids)); err != nil {
		return 0, err
	}
	set := toSet(ids)
	for _, img := range tx.images {
		if _, ok := set[img.FolderID]; ok {
			return 0, database.ErrFolderHasImages
		}
	}
	for id := range set {
		if _, ok := tx.captions[id]; ok {
			return 0, database.ErrFolderHasCaptions
		}
	}
	var n int64
	for id := range set {
		if _, ok := tx.folders[id]; ok {
			delete(tx.folders, id)
			n++
		}
	}
	return n, nil
}

func (tx *memTx) InsertImages(ctx context.Context, images []models.Image) error {
	if len(images) == 0 {
		return nil
	}
	if err := tx.s.hit("InsertImages", len(images)); err != nil {
		return err
	}
	for _, img := range images {
		if _, ok := tx.folders[img.FolderID]; !ok {
			return fmt.Errorf("insert image %s: %w", img.ID, database.ErrFolderNotFound)
		}
		tx.images[img.ID] = img
	}
	return nil
}

func (tx *memTx) UpdateImage(ctx context.Context, img models.Image) (bool, error) {
	if err := tx.s.hit("UpdateImage", 1); err != nil {
		return false, err
	}
	if _, ok := tx.images[img.ID]; !ok {
		return false, nil
	}
	if _, ok := tx.folders[img.FolderID]; !ok {
		return false, fmt.Errorf("update image %s: %w", img.ID, database.ErrFolderNotFound)
	}
	tx.images[img.ID] = img
	return true, nil
}

func (tx *memTx) DeleteImages(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := tx.s.hit("DeleteImages", len(ids)); err != nil {
		return 0, err
	}
	var n int64
	for id := range toSet(ids) {
		if _, ok := tx.images[id]; ok {
			delete(tx.images, id)
			n++
		}
	}
	return n, nil
}

func (tx *memTx) DeleteImagesByFolders(ctx context.Context, folderIDs []string) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}
	if err := tx.s.hit("DeleteImagesByFolders", len(folderIDs)); err != nil {
		return 0, err
	}
	set := toSet(folderIDs)
	var n int64
	for id, img := range tx.images {
		if _, ok := set[img.FolderID]; ok {
			delete(tx.images, id)
			n++
		}
	}
	return n, nil
}

func (tx *memTx) DeleteCaptionsByFolders(ctx context.Context, folderIDs []string) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}
	if err := tx.s.hit("DeleteCaptionsByFolders", len(folderIDs)); err != nil {
		return 0, err
	}
	var n int64
	for id := range toSet(folderIDs) {
		if _, ok := tx.captions[id]; ok {
			delete(tx.captions, id)
			n++
		}
	}
	return n, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
