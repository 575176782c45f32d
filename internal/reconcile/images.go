package reconcile

import (
	"context"
	"drive-mirror/internal/models"
	"drive-mirror/internal/remote"
	"drive-mirror/internal/storage"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type cacheRename struct {
	id       string
	from, to string
}

// SyncImages mirrors the image files of a single folder.
func (r *Reconciler) SyncImages(ctx context.Context, rc *RunContext, folderID string) (*Result, error) {
	logger := rc.Logger().WithField("folder_id", folderID)

	listing, err := r.remote.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	local, err := r.store.ListImagesByFolder(ctx, folderID)
	if err != nil {
		return nil, &PersistenceError{Op: "load images", Scope: folderID, Err: err}
	}

	if len(listing.Items) == 0 && len(local) > 0 && !listing.Confirmed {
		return nil, fmt.Errorf("%w: folder %s still has %d local images", ErrAmbiguousEmpty, folderID, len(local))
	}

	remoteByID := make(map[string]remote.RemoteFile, len(listing.Items))
	remoteIDs := make([]string, 0, len(listing.Items))
	for _, f := range listing.Items {
		remoteByID[f.ID] = f
		remoteIDs = append(remoteIDs, f.ID)
	}
	localByID := make(map[string]models.Image, len(local))
	localIDs := make([]string, 0, len(local))
	for _, img := range local {
		localByID[img.ID] = img
		localIDs = append(localIDs, img.ID)
	}

	diff := computeDiff(remoteIDs, localIDs)
	res := &Result{TotalRemote: len(remoteByID)}

	toDelete := diff.ToDelete
	if !listing.Confirmed && len(toDelete) > 0 {
		logger.Warnf("listing incomplete, deferring deletion of %d images", len(toDelete))
		res.SkippedDeletes = len(toDelete)
		toDelete = nil
	}

	// Ids new to this folder may already be stored under another one.
	elsewhere := map[string]models.Image{}
	if len(diff.ToInsert) > 0 {
		found, err := r.store.ListImagesByIDs(ctx, diff.ToInsert)
		if err != nil {
			return nil, &PersistenceError{Op: "load moved images", Scope: folderID, Err: err}
		}
		for _, img := range found {
			if img.FolderID != folderID {
				elsewhere[img.ID] = img
			}
		}
	}

	inserts := make([]models.Image, 0, len(diff.ToInsert))
	var moved []models.Image
	for _, id := range diff.ToInsert {
		if prev, ok := elsewhere[id]; ok {
			next, _, _ := mergeImage(prev, remoteByID[id])
			next.FolderID = folderID
			moved = append(moved, next)
			continue
		}
		inserts = append(inserts, imageFromRemote(folderID, remoteByID[id]))
	}

	type pending struct {
		cur, next      models.Image
		contentChanged bool
	}
	checks := make([]pending, 0, len(diff.ToCheck))
	var renames []cacheRename
	kept := map[string]bool{}
	for _, id := range diff.ToCheck {
		cur := localByID[id]
		next, _, contentChanged := mergeImage(cur, remoteByID[id])
		checks = append(checks, pending{cur: cur, next: next, contentChanged: contentChanged})
		if next.Name == cur.Name {
			kept[cur.Name] = true
		} else if r.cache != nil {
			renames = append(renames, cacheRename{id: id, from: cur.Name, to: next.Name})
		}
	}

	var renamed []cacheRename
	var failed map[string]error
	if len(renames) > 0 {
		renamed, failed = r.moveCached(logger, folderID, renames, kept)
	}
	landed := make(map[string]bool, len(renamed))
	for _, rn := range renamed {
		landed[rn.to] = true
	}

	var updates []models.Image
	var evict []string
	for _, p := range checks {
		next := p.next
		if err, ok := failed[next.ID]; ok {
			logger.WithField("image_id", next.ID).Warnf("cache rename %q -> %q failed, keeping old name: %v", p.cur.Name, next.Name, err)
			res.RenameFailures++
			next.Name = p.cur.Name
		}
		if p.contentChanged {
			evict = append(evict, next.Name)
		}
		if !sameImage(p.cur, next) {
			updates = append(updates, next)
		}
	}

	// A deleted image's name may now carry bytes renamed onto it.
	deletedNames := make([]string, 0, len(toDelete))
	for _, id := range toDelete {
		if name := localByID[id].Name; !landed[name] {
			deletedNames = append(deletedNames, name)
		}
	}

	if len(toDelete) == 0 && len(inserts) == 0 && len(moved) == 0 && len(updates) == 0 {
		rc.record(res)
		return res, nil
	}

	err = r.store.InTx(ctx, func(tx Tx) error {
		deleted := 0
		for _, chunk := range chunks(toDelete, r.opts.ChunkSize) {
			n, err := tx.DeleteImages(ctx, chunk)
			if err != nil {
				return fmt.Errorf("delete images: %w", err)
			}
			deleted += int(n)
		}

		if err := tx.InsertImages(ctx, inserts); err != nil {
			return err
		}

		updated := 0
		for _, img := range append(moved, updates...) {
			ok, err := tx.UpdateImage(ctx, img)
			if err != nil {
				return fmt.Errorf("update image %s: %w", img.ID, err)
			}
			if ok {
				updated++
			}
		}

		res.Deleted = deleted
		res.Inserted = len(inserts)
		res.Updated = updated
		res.Moved = len(moved)
		return nil
	})
	if err != nil {
		r.revertRenames(rc, folderID, renamed)
		return nil, &PersistenceError{Op: "apply images", Scope: folderID, Err: err}
	}

	r.afterCommit(ctx, rc, folderID, deletedNames, evict, append(inserts, moved...))
	r.dropMovedFrom(rc, elsewhere)

	logger.WithFields(log.Fields{
		"inserted":        res.Inserted,
		"updated":         res.Updated,
		"moved":           res.Moved,
		"deleted":         res.Deleted,
		"rename_failures": res.RenameFailures,
	}).Info("images reconciled")

	rc.record(res)
	return res, nil
}

// stagingName is the cache name an entry holds between the two rename phases.
func stagingName(id string) string {
	return ".rename-" + id
}

// moveCached applies a folder's cache renames in two phases: every source is
// first moved to its staging name, then every staged entry to its target, so
// swapped names never meet. A target still taken after the first phase belongs
// to an image keeping that name (listed in kept) or is stale; stale entries
// are dropped, kept ones are never touched. It returns the renames that landed
// and, per image id, the cause of renames that left the entry under its old
// name.
func (r *Reconciler) moveCached(logger *log.Entry, folderID string, moves []cacheRename, kept map[string]bool) ([]cacheRename, map[string]error) {
	failed := map[string]error{}
	staged := make([]cacheRename, 0, len(moves))
	for _, m := range moves {
		tmp := stagingName(m.id)
		ok, err := r.cache.Rename(folderID, m.from, tmp)
		if errors.Is(err, storage.ErrNameTaken) {
			// left over from an interrupted pass
			if err = r.cache.Remove(folderID, tmp); err == nil {
				ok, err = r.cache.Rename(folderID, m.from, tmp)
			}
		}
		if err != nil {
			failed[m.id] = err
			kept[m.from] = true
			continue
		}
		if ok {
			staged = append(staged, m)
		}
	}

	var landed []cacheRename
	for _, m := range staged {
		tmp := stagingName(m.id)
		_, err := r.cache.Rename(folderID, tmp, m.to)
		if errors.Is(err, storage.ErrNameTaken) && !kept[m.to] {
			if err = r.cache.Remove(folderID, m.to); err == nil {
				_, err = r.cache.Rename(folderID, tmp, m.to)
			}
		}
		if err == nil {
			landed = append(landed, m)
			continue
		}

		if _, backErr := r.cache.Rename(folderID, tmp, m.from); backErr == nil {
			failed[m.id] = err
			continue
		}
		// Neither name can hold the bytes; the next read fetches them again.
		if rmErr := r.cache.Remove(folderID, tmp); rmErr != nil {
			logger.Warnf("remove staged cache entry %q: %v", tmp, rmErr)
		}
	}
	return landed, failed
}

func imageFromRemote(folderID string, f remote.RemoteFile) models.Image {
	return models.Image{
		ID:            f.ID,
		FolderID:      folderID,
		Name:          f.Name,
		MimeType:      optString(f.MimeType),
		ThumbnailLink: optString(f.ThumbnailLink),
		CreatedTime:   f.CreatedTime,
		ModifiedTime:  f.ModifiedTime,
		SyncedAt:      time.Now().UTC(),
	}
}

// mergeImage applies the remote metadata onto cur. contentChanged reports a
// moved modification time, which invalidates cached bytes.
func mergeImage(cur models.Image, f remote.RemoteFile) (next models.Image, changed bool, contentChanged bool) {
	next = cur
	next.Name = f.Name
	next.MimeType = optString(f.MimeType)
	next.ThumbnailLink = optString(f.ThumbnailLink)
	if f.ModifiedTime != nil {
		next.ModifiedTime = f.ModifiedTime
	}
	if cur.CreatedTime == nil && f.CreatedTime != nil {
		next.CreatedTime = f.CreatedTime
	}

	contentChanged = cur.ModifiedTime != nil && !sameTime(cur.ModifiedTime, next.ModifiedTime)
	return next, !sameImage(cur, next), contentChanged
}

func sameImage(a, b models.Image) bool {
	return a.Name == b.Name &&
		sameString(a.MimeType, b.MimeType) &&
		sameString(a.ThumbnailLink, b.ThumbnailLink) &&
		sameTime(a.CreatedTime, b.CreatedTime) &&
		sameTime(a.ModifiedTime, b.ModifiedTime)
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (r *Reconciler) revertRenames(rc *RunContext, folderID string, renamed []cacheRename) {
	if len(renamed) == 0 {
		return
	}
	logger := rc.Logger().WithField("folder_id", folderID)
	back := make([]cacheRename, 0, len(renamed))
	for _, rn := range renamed {
		back = append(back, cacheRename{id: rn.id, from: rn.to, to: rn.from})
	}
	_, failed := r.moveCached(logger, folderID, back, map[string]bool{})
	for id, err := range failed {
		logger.WithField("image_id", id).Warnf("revert cache rename failed: %v", err)
	}
}

// dropMovedFrom evicts the cached bytes images left behind in their previous folder.
func (r *Reconciler) dropMovedFrom(rc *RunContext, prev map[string]models.Image) {
	if r.cache == nil {
		return
	}
	for _, img := range prev {
		if err := r.cache.Remove(img.FolderID, img.Name); err != nil {
			rc.Logger().WithFields(log.Fields{"folder_id": img.FolderID, "image_id": img.ID}).Warnf("remove cached %q: %v", img.Name, err)
		}
	}
}

// afterCommit runs the best-effort cache side effects of a committed pass.
func (r *Reconciler) afterCommit(ctx context.Context, rc *RunContext, folderID string, deleted, evict []string, added []models.Image) {
	if r.cache == nil {
		return
	}
	logger := rc.Logger().WithField("folder_id", folderID)

	for _, name := range append(deleted, evict...) {
		if err := r.cache.Remove(folderID, name); err != nil {
			logger.Warnf("remove cached %q: %v", name, err)
		}
	}

	if !r.opts.Prefetch {
		return
	}
	for _, img := range added {
		if err := r.cache.Prefetch(ctx, folderID, img.Name, img.ID); err != nil {
			logger.WithField("image_id", img.ID).Warnf("prefetch failed: %v", err)
		}
	}
}
