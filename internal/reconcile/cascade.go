package reconcile

import (
	"context"
)

type CleanupMode string

const (
	CleanupAfterCommit  CleanupMode = "after_commit"
	CleanupBeforeDelete CleanupMode = "before_delete"
)

// cascadeDelete removes the captions and images owned by folderIDs and then
// the folder rows themselves, all in chunks, using the caller's transaction.
func (r *Reconciler) cascadeDelete(ctx context.Context, tx Tx, folderIDs []string) (images int64, folders int64, err error) {
	for _, chunk := range chunks(folderIDs, r.opts.ChunkSize) {
		if _, err := tx.DeleteCaptionsByFolders(ctx, chunk); err != nil {
			return 0, 0, err
		}
	}
	for _, chunk := range chunks(folderIDs, r.opts.ChunkSize) {
		n, err := tx.DeleteImagesByFolders(ctx, chunk)
		if err != nil {
			return 0, 0, err
		}
		images += n
	}
	for _, chunk := range chunks(folderIDs, r.opts.ChunkSize) {
		n, err := tx.DeleteFolders(ctx, chunk)
		if err != nil {
			return 0, 0, err
		}
		folders += n
	}
	return images, folders, nil
}

// cleanupFolders drops the cached directories of deleted folders. Failures
// are logged and never fail the pass.
func (r *Reconciler) cleanupFolders(rc *RunContext, folderIDs []string) {
	if r.cache == nil {
		return
	}
	for _, id := range folderIDs {
		if err := r.cache.RemoveFolder(id); err != nil {
			rc.Logger().WithField("folder_id", id).Warnf("cache cleanup failed: %v", err)
		}
	}
}
