package reconcile

import (
	"context"
	"drive-mirror/internal/models"
	"drive-mirror/internal/remote"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// SyncFolders mirrors the direct child folders of parentID.
func (r *Reconciler) SyncFolders(ctx context.Context, rc *RunContext, parentID string) (*Result, error) {
	logger := rc.Logger().WithField("parent_id", parentID)

	listing, err := r.remote.ListFolders(ctx, parentID)
	if err != nil {
		return nil, err
	}

	local, err := r.store.ListFoldersByParent(ctx, parentID)
	if err != nil {
		return nil, &PersistenceError{Op: "load folders", Scope: parentID, Err: err}
	}

	if len(listing.Items) == 0 && len(local) > 0 && !listing.Confirmed {
		return nil, fmt.Errorf("%w: parent %s still has %d local folders", ErrAmbiguousEmpty, parentID, len(local))
	}

	remoteByID := make(map[string]remote.RemoteFolder, len(listing.Items))
	remoteIDs := make([]string, 0, len(listing.Items))
	for _, f := range listing.Items {
		remoteByID[f.ID] = f
		remoteIDs = append(remoteIDs, f.ID)
	}
	localByID := make(map[string]models.Folder, len(local))
	localIDs := make([]string, 0, len(local))
	for _, f := range local {
		localByID[f.ID] = f
		localIDs = append(localIDs, f.ID)
	}

	diff := computeDiff(remoteIDs, localIDs)
	res := &Result{TotalRemote: len(remoteByID)}

	toDelete := diff.ToDelete
	if !listing.Confirmed && len(toDelete) > 0 {
		logger.Warnf("listing incomplete, deferring deletion of %d folders", len(toDelete))
		res.SkippedDeletes = len(toDelete)
		toDelete = nil
	}

	inserts := make([]models.Folder, 0, len(diff.ToInsert))
	for _, id := range diff.ToInsert {
		f := remoteByID[id]
		parent := parentID
		inserts = append(inserts, models.Folder{
			ID:          f.ID,
			Name:        f.Name,
			ParentID:    &parent,
			CreatedTime: f.CreatedTime,
			SyncedAt:    time.Now().UTC(),
		})
	}

	type rename struct{ id, name string }
	var renames []rename
	for _, id := range diff.ToCheck {
		if remoteByID[id].Name != localByID[id].Name {
			renames = append(renames, rename{id: id, name: remoteByID[id].Name})
		}
	}

	if len(toDelete) == 0 && len(inserts) == 0 && len(renames) == 0 {
		rc.record(res)
		return res, nil
	}

	if r.opts.Cleanup == CleanupBeforeDelete {
		r.cleanupFolders(rc, toDelete)
	}

	err = r.store.InTx(ctx, func(tx Tx) error {
		if len(toDelete) > 0 {
			images, folders, err := r.cascadeDelete(ctx, tx, toDelete)
			if err != nil {
				return fmt.Errorf("cascade delete: %w", err)
			}
			res.CascadedImages = int(images)
			res.Deleted = int(folders)
		}

		if err := tx.InsertFolders(ctx, inserts); err != nil {
			return err
		}
		res.Inserted = len(inserts)

		for _, rn := range renames {
			ok, err := tx.RenameFolder(ctx, rn.id, rn.name)
			if err != nil {
				return fmt.Errorf("rename folder %s: %w", rn.id, err)
			}
			if ok {
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, &PersistenceError{Op: "apply folders", Scope: parentID, Err: err}
	}

	if r.opts.Cleanup == CleanupAfterCommit {
		r.cleanupFolders(rc, toDelete)
	}

	logger.WithFields(log.Fields{
		"inserted": res.Inserted,
		"renamed":  res.Updated,
		"deleted":  res.Deleted,
		"cascaded": res.CascadedImages,
	}).Info("folders reconciled")

	rc.record(res)
	return res, nil
}
