package reconcile_test

import (
	"context"
	"drive-mirror/internal/models"
	"drive-mirror/internal/reconcile"
	"drive-mirror/internal/reconcile/reconciletest"
	"drive-mirror/internal/remote"
	"drive-mirror/internal/storage"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const rootID = "root"

var (
	t1 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 = time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
)

type fixture struct {
	store  *reconciletest.MemStore
	remote *reconciletest.FakeRemote
	cache  *reconciletest.FakeCache
	rec    *reconcile.Reconciler
	rc     *reconcile.RunContext
}

func newFixture(opts reconcile.Options) *fixture {
	f := &fixture{
		store:  reconciletest.NewMemStore(),
		remote: reconciletest.NewFakeRemote(),
		cache:  reconciletest.NewFakeCache(),
		rc:     reconcile.NewRunContext("test"),
	}
	f.rec = reconcile.New(f.store, f.remote, f.cache, opts)
	return f
}

func remoteFolder(id, name string) remote.RemoteFolder {
	return remote.RemoteFolder{ID: id, Name: name, CreatedTime: &t1}
}

func remoteFile(id, name string, modified time.Time) remote.RemoteFile {
	return remote.RemoteFile{
		ID:            id,
		Name:          name,
		MimeType:      "image/jpeg",
		ThumbnailLink: "https://thumb/" + id,
		CreatedTime:   &t1,
		ModifiedTime:  &modified,
	}
}

func localFolder(id, name string) models.Folder {
	parent := rootID
	return models.Folder{ID: id, Name: name, ParentID: &parent, CreatedTime: &t1}
}

func localImage(id, folderID, name string) models.Image {
	mime := "image/jpeg"
	thumb := "https://thumb/" + id
	created, modified := t1, t1
	return models.Image{
		ID:            id,
		FolderID:      folderID,
		Name:          name,
		MimeType:      &mime,
		ThumbnailLink: &thumb,
		CreatedTime:   &created,
		ModifiedTime:  &modified,
	}
}

func folderIDs(folders []models.Folder) []string {
	ids := make([]string, 0, len(folders))
	for _, f := range folders {
		ids = append(ids, f.ID)
	}
	return ids
}

func imageIDs(images []models.Image) []string {
	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	return ids
}

func TestSyncFolders_InsertRenameDelete(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed(
		[]models.Folder{localFolder("A", "Cats_POST"), localFolder("B", "Dogs_POST"), localFolder("C", "Old_STORY")},
		[]models.Image{localImage("c1", "C", "c1.jpg"), localImage("c2", "C", "c2.jpg"), localImage("a1", "A", "a1.jpg")},
	)
	f.remote.SetFolders(rootID,
		remoteFolder("A", "Cats_POST"),
		remoteFolder("B", "Puppies_POST"),
		remoteFolder("D", "New_STORY"),
	)

	res, err := f.rec.SyncFolders(context.Background(), f.rc, rootID)
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
	require.Equal(t, 1, res.Updated)
	require.Equal(t, 1, res.Deleted)
	require.Equal(t, 2, res.CascadedImages)
	require.Equal(t, 3, res.TotalRemote)

	require.Equal(t, []string{"A", "B", "D"}, folderIDs(f.store.Folders()))
	b, _ := f.store.Folder("B")
	require.Equal(t, "Puppies_POST", b.Name)
	d, _ := f.store.Folder("D")
	require.Equal(t, rootID, *d.ParentID)
	require.Equal(t, t1, *d.CreatedTime)

	require.Equal(t, []string{"a1"}, imageIDs(f.store.Images()))
	require.Zero(t, f.store.OrphanImages())
	require.Equal(t, []string{"C"}, f.cache.RemovedFolders)
	require.Equal(t, 1, f.store.Commits)
}

func TestSyncFolders_Idempotent(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.remote.SetFolders(rootID, remoteFolder("A", "Cats_POST"), remoteFolder("B", "Dogs_POST"))

	_, err := f.rec.SyncFolders(context.Background(), f.rc, rootID)
	require.NoError(t, err)
	before := f.store.Folders()

	res, err := f.rec.SyncFolders(context.Background(), f.rc, rootID)
	require.NoError(t, err)
	require.Zero(t, res.Inserted+res.Updated+res.Deleted)
	require.Equal(t, before, f.store.Folders())
	require.Equal(t, 1, f.store.Commits, "second pass must not open a write transaction")
}

func TestSyncFolders_AmbiguousEmptyLeavesLocalUntouched(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("A", "Cats_POST"), localFolder("B", "Dogs_POST")}, nil)
	f.remote.Unconfirmed[rootID] = true

	res, err := f.rec.SyncFolders(context.Background(), f.rc, rootID)
	require.Nil(t, res)
	require.ErrorIs(t, err, reconcile.ErrAmbiguousEmpty)
	require.Equal(t, reconcile.KindAmbiguousEmpty, reconcile.ErrorKind(err))
	require.Len(t, f.store.Folders(), 2)
	require.Zero(t, f.store.Commits+f.store.Rollbacks)
	require.Empty(t, f.cache.RemovedFolders)

	// Potwierdzona pusta lista oznacza, że wszystko zostało usunięte
	f.remote.Unconfirmed[rootID] = false
	res, err = f.rec.SyncFolders(context.Background(), f.rc, rootID)
	require.NoError(t, err)
	require.Equal(t, 2, res.Deleted)
	require.Empty(t, f.store.Folders())
}

func TestSyncFolders_IncompleteListingDefersDeletes(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("A", "Cats_POST"), localFolder("B", "Dogs_POST")}, nil)
	f.remote.SetFolders(rootID, remoteFolder("A", "Cats_POST"), remoteFolder("C", "Birds_POST"))
	f.remote.Unconfirmed[rootID] = true

	res, err := f.rec.SyncFolders(context.Background(), f.rc, rootID)
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
	require.Zero(t, res.Deleted)
	require.Equal(t, 1, res.SkippedDeletes)
	require.Equal(t, []string{"A", "B", "C"}, folderIDs(f.store.Folders()))
}

func TestSyncFolders_PersistenceFailureRollsBack(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("A", "Cats_POST"), localFolder("B", "Dogs_POST")}, nil)
	f.remote.SetFolders(rootID, remoteFolder("A", "Kittens_POST"), remoteFolder("D", "New_POST"))
	f.store.FailOn["RenameFolder"] = errors.New("connection reset")

	res, err := f.rec.SyncFolders(context.Background(), f.rc, rootID)
	require.Nil(t, res)

	var pe *reconcile.PersistenceError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, rootID, pe.Scope)
	require.Equal(t, reconcile.KindPersistence, reconcile.ErrorKind(err))

	require.Equal(t, 1, f.store.Rollbacks)
	require.Equal(t, []string{"A", "B"}, folderIDs(f.store.Folders()))
	a, _ := f.store.Folder("A")
	require.Equal(t, "Cats_POST", a.Name)
	require.Empty(t, f.cache.RemovedFolders, "after-commit cleanup must not run on rollback")
	require.Zero(t, f.rc.Totals().Inserted)
}

func TestSyncFolders_TransientFetchErrorMutatesNothing(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("A", "Cats_POST")}, nil)
	f.remote.Errors[rootID] = &remote.TransientFetchError{Op: "list_folders", Attempts: 4, Err: errors.New("503")}

	_, err := f.rec.SyncFolders(context.Background(), f.rc, rootID)
	var tfe *remote.TransientFetchError
	require.ErrorAs(t, err, &tfe)
	require.Equal(t, reconcile.KindTransientFetch, reconcile.ErrorKind(err))
	require.Zero(t, f.store.Calls["ListFoldersByParent"])
	require.Len(t, f.store.Folders(), 1)
}

func TestSyncFolders_CacheCleanupOrdering(t *testing.T) {
	for _, tc := range []struct {
		mode          reconcile.CleanupMode
		existsAtClean bool
	}{
		{reconcile.CleanupAfterCommit, false},
		{reconcile.CleanupBeforeDelete, true},
	} {
		t.Run(string(tc.mode), func(t *testing.T) {
			f := newFixture(reconcile.Options{Cleanup: tc.mode})
			f.store.Seed([]models.Folder{localFolder("A", "Cats_POST"), localFolder("B", "Dogs_POST")}, nil)
			f.remote.SetFolders(rootID, remoteFolder("A", "Cats_POST"))

			var existed []bool
			f.cache.OnRemoveFolder = func(folderID string) {
				_, ok := f.store.Folder(folderID)
				existed = append(existed, ok)
			}

			_, err := f.rec.SyncFolders(context.Background(), f.rc, rootID)
			require.NoError(t, err)
			require.Equal(t, []bool{tc.existsAtClean}, existed)
		})
	}
}

func TestSyncFolders_CascadeIsChunked(t *testing.T) {
	f := newFixture(reconcile.Options{})
	var folders []models.Folder
	var images []models.Image
	for i := 0; i < 2500; i++ {
		id := fmt.Sprintf("f-%04d", i)
		folders = append(folders, localFolder(id, id))
		images = append(images, localImage("img-"+id, id, "x.jpg"))
	}
	f.store.Seed(folders, images)

	res, err := f.rec.SyncFolders(context.Background(), f.rc, rootID)
	require.NoError(t, err)
	require.Equal(t, 2500, res.Deleted)
	require.Equal(t, 2500, res.CascadedImages)

	require.Equal(t, 3, f.store.Calls["DeleteCaptionsByFolders"])
	require.Equal(t, 3, f.store.Calls["DeleteImagesByFolders"])
	require.Equal(t, 3, f.store.Calls["DeleteFolders"])
	require.Equal(t, reconcile.MaxChunk, f.store.MaxBatch["DeleteFolders"])
	require.Empty(t, f.store.Folders())
	require.Empty(t, f.store.Images())
}

func TestSyncFolders_CascadeRemovesCaptions(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed(
		[]models.Folder{localFolder("A", "Cats_POST"), localFolder("B", "Dogs_POST")},
		[]models.Image{localImage("b1", "B", "b1.jpg")},
	)
	f.store.SeedCaptions("A", "kot na kanapie")
	f.store.SeedCaptions("B", "pies", "spacer")
	f.remote.SetFolders(rootID, remoteFolder("A", "Cats_POST"))

	res, err := f.rec.SyncFolders(context.Background(), f.rc, rootID)
	require.NoError(t, err)
	require.Equal(t, 1, res.Deleted)
	require.Equal(t, 1, res.CascadedImages)

	_, ok := f.store.Captions("B")
	require.False(t, ok)
	captions, ok := f.store.Captions("A")
	require.True(t, ok)
	require.Equal(t, []string{"kot na kanapie"}, captions)
}

func TestSyncFolders_CaptionFailureRollsBackCascade(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("A", "Cats_POST")}, []models.Image{localImage("a1", "A", "a1.jpg")})
	f.store.SeedCaptions("A", "kot")
	f.remote.SetFolders(rootID, remoteFolder("Z", "Zebras_POST"))
	f.store.FailOn["DeleteCaptionsByFolders"] = errors.New("connection reset")

	_, err := f.rec.SyncFolders(context.Background(), f.rc, rootID)
	require.Equal(t, reconcile.KindPersistence, reconcile.ErrorKind(err))

	require.Equal(t, []string{"A"}, folderIDs(f.store.Folders()))
	require.Equal(t, []string{"a1"}, imageIDs(f.store.Images()))
	_, ok := f.store.Captions("A")
	require.True(t, ok)
	require.Empty(t, f.cache.RemovedFolders)
}

func TestSyncImages_InsertsEveryRemoteFile(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, nil)
	f.remote.SetFiles("F", remoteFile("a", "a.jpg", t1), remoteFile("b", "b.jpg", t1), remoteFile("c", "c.png", t2))

	res, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)
	require.Equal(t, 3, res.Inserted)
	require.Equal(t, 3, res.TotalRemote)

	img, ok := f.store.Image("c")
	require.True(t, ok)
	require.Equal(t, "F", img.FolderID)
	require.Equal(t, "c.png", img.Name)
	require.Equal(t, "image/jpeg", *img.MimeType)
	require.Equal(t, "https://thumb/c", *img.ThumbnailLink)
	require.Equal(t, t2, *img.ModifiedTime)
	require.Empty(t, f.cache.Prefetched, "content is fetched lazily by default")
}

func TestSyncImages_DiffScenario(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed(
		[]models.Folder{localFolder("F", "Cats_POST")},
		[]models.Image{localImage("A", "F", "a.jpg"), localImage("B", "F", "b.jpg"), localImage("C", "F", "c.jpg")},
	)
	f.cache.Put("F", "c.jpg")
	f.remote.SetFiles("F", remoteFile("A", "a.jpg", t1), remoteFile("B", "b.jpg", t1), remoteFile("D", "d.jpg", t1))

	res, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
	require.Equal(t, 1, res.Deleted)
	require.Zero(t, res.Updated)
	require.Equal(t, []string{"A", "B", "D"}, imageIDs(f.store.Images()))
	require.False(t, f.cache.Has("F", "c.jpg"))

	res, err = f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)
	require.Zero(t, res.Inserted+res.Updated+res.Deleted)
}

func TestSyncImages_RenameMovesCachedFile(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, []models.Image{localImage("A", "F", "old.jpg")})
	f.cache.Put("F", "old.jpg")
	f.remote.SetFiles("F", remoteFile("A", "new.jpg", t1))

	res, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)

	img, _ := f.store.Image("A")
	require.Equal(t, "new.jpg", img.Name)
	require.True(t, f.cache.Has("F", "new.jpg"))
	require.False(t, f.cache.Has("F", "old.jpg"))
}

func TestSyncImages_RenameFailureKeepsOldName(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, []models.Image{localImage("A", "F", "old.jpg")})
	f.cache.Put("F", "old.jpg")
	f.cache.RenameErr["new.jpg"] = errors.New("disk full")
	f.remote.SetFiles("F", remoteFile("A", "new.jpg", t1))

	res, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)
	require.Equal(t, 1, res.RenameFailures)
	require.Zero(t, res.Updated)

	img, _ := f.store.Image("A")
	require.Equal(t, "old.jpg", img.Name, "row must keep pointing at the cached file")
	require.True(t, f.cache.Has("F", "old.jpg"))

	// Kolejny przebieg ponawia zmianę nazwy
	delete(f.cache.RenameErr, "new.jpg")
	res, err = f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)
	img, _ = f.store.Image("A")
	require.Equal(t, "new.jpg", img.Name)
	require.True(t, f.cache.Has("F", "new.jpg"))
}

func TestSyncImages_RollbackRevertsCacheRename(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, []models.Image{localImage("A", "F", "old.jpg")})
	f.cache.Put("F", "old.jpg")
	f.remote.SetFiles("F", remoteFile("A", "new.jpg", t1), remoteFile("B", "b.jpg", t1))
	f.store.FailOn["UpdateImage"] = errors.New("deadlock detected")

	_, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	var pe *reconcile.PersistenceError
	require.ErrorAs(t, err, &pe)

	img, _ := f.store.Image("A")
	require.Equal(t, "old.jpg", img.Name)
	_, inserted := f.store.Image("B")
	require.False(t, inserted)
	require.True(t, f.cache.Has("F", "old.jpg"))
	require.False(t, f.cache.Has("F", "new.jpg"))
}

func TestSyncImages_SwappedNamesKeepTheirBytes(t *testing.T) {
	f := newFixture(reconcile.Options{})
	fc, err := storage.NewFileCache(t.TempDir(), f.remote)
	require.NoError(t, err)
	rec := reconcile.New(f.store, f.remote, fc, reconcile.Options{})
	ctx := context.Background()

	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, []models.Image{localImage("X", "F", "a.jpg"), localImage("Y", "F", "b.jpg")})
	f.remote.Content["X"] = []byte("bytes-of-X")
	f.remote.Content["Y"] = []byte("bytes-of-Y")
	_, err = fc.Open(ctx, "F", "a.jpg", "X")
	require.NoError(t, err)
	_, err = fc.Open(ctx, "F", "b.jpg", "Y")
	require.NoError(t, err)
	// Od tej chwili treść może pochodzić wyłącznie z dysku
	delete(f.remote.Content, "X")
	delete(f.remote.Content, "Y")

	f.remote.SetFiles("F", remoteFile("X", "b.jpg", t1), remoteFile("Y", "a.jpg", t1))
	res, err := rec.SyncImages(ctx, f.rc, "F")
	require.NoError(t, err)
	require.Equal(t, 2, res.Updated)
	require.Zero(t, res.RenameFailures)

	data, err := fc.Open(ctx, "F", "a.jpg", "Y")
	require.NoError(t, err)
	require.Equal(t, []byte("bytes-of-Y"), data)
	data, err = fc.Open(ctx, "F", "b.jpg", "X")
	require.NoError(t, err)
	require.Equal(t, []byte("bytes-of-X"), data)
	require.False(t, fc.Exists("F", ".rename-X"))
	require.False(t, fc.Exists("F", ".rename-Y"))
}

func TestSyncImages_RollbackRevertsSwappedNames(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, []models.Image{localImage("X", "F", "a.jpg"), localImage("Y", "F", "b.jpg")})
	f.cache.PutFor("F", "a.jpg", "X")
	f.cache.PutFor("F", "b.jpg", "Y")
	f.remote.SetFiles("F", remoteFile("X", "b.jpg", t1), remoteFile("Y", "a.jpg", t1))
	f.store.FailOn["UpdateImage"] = errors.New("deadlock detected")

	_, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	var pe *reconcile.PersistenceError
	require.ErrorAs(t, err, &pe)

	require.Equal(t, "X", f.cache.Owner("F", "a.jpg"))
	require.Equal(t, "Y", f.cache.Owner("F", "b.jpg"))
	require.Len(t, f.cache.Entries, 2)
}

func TestSyncImages_RenameOntoNameStillInUseIsHeldBack(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, []models.Image{localImage("X", "F", "a.jpg"), localImage("Y", "F", "b.jpg")})
	f.cache.PutFor("F", "a.jpg", "X")
	f.cache.PutFor("F", "b.jpg", "Y")
	// Dysk zdalny dopuszcza dwa pliki o tej samej nazwie
	f.remote.SetFiles("F", remoteFile("X", "b.jpg", t1), remoteFile("Y", "b.jpg", t1))

	res, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)
	require.Equal(t, 1, res.RenameFailures)

	img, _ := f.store.Image("X")
	require.Equal(t, "a.jpg", img.Name)
	require.Equal(t, "X", f.cache.Owner("F", "a.jpg"))
	require.Equal(t, "Y", f.cache.Owner("F", "b.jpg"))
}

func TestSyncImages_RenameReplacesBytesOfDeletedImage(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, []models.Image{localImage("X", "F", "a.jpg"), localImage("Z", "F", "b.jpg")})
	f.cache.PutFor("F", "a.jpg", "X")
	f.cache.PutFor("F", "b.jpg", "Z")
	f.remote.SetFiles("F", remoteFile("X", "b.jpg", t1))

	res, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)
	require.Equal(t, 1, res.Deleted)

	require.Equal(t, "X", f.cache.Owner("F", "b.jpg"), "cleanup of the deleted image must spare the renamed entry")
	require.False(t, f.cache.Has("F", "a.jpg"))
}

func TestSyncImages_ImageMovedFromAnotherFolder(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed(
		[]models.Folder{localFolder("FA", "Cats_POST"), localFolder("FB", "Dogs_POST")},
		[]models.Image{localImage("X", "FB", "x.jpg")},
	)
	f.cache.PutFor("FB", "x.jpg", "X")
	f.remote.SetFiles("FA", remoteFile("X", "x.jpg", t1), remoteFile("N", "n.jpg", t1))

	// Nowy folder przetwarzany przed starym
	res, err := f.rec.SyncImages(context.Background(), f.rc, "FA")
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
	require.Equal(t, 1, res.Moved)
	require.Equal(t, 1, res.Updated)

	x, ok := f.store.Image("X")
	require.True(t, ok)
	require.Equal(t, "FA", x.FolderID)
	_, ok = f.store.Image("N")
	require.True(t, ok)
	require.False(t, f.cache.Has("FB", "x.jpg"), "bytes left in the old folder are evicted")

	res, err = f.rec.SyncImages(context.Background(), f.rc, "FB")
	require.NoError(t, err)
	require.Zero(t, res.Deleted)
	x, _ = f.store.Image("X")
	require.Equal(t, "FA", x.FolderID)

	res, err = f.rec.SyncImages(context.Background(), f.rc, "FA")
	require.NoError(t, err)
	require.Zero(t, res.Inserted+res.Updated+res.Deleted+res.Moved)
}

func TestSyncImages_ModifiedTimeEvictsCachedBytes(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, []models.Image{localImage("A", "F", "a.jpg")})
	f.cache.Put("F", "a.jpg")
	f.remote.SetFiles("F", remoteFile("A", "a.jpg", t2))

	res, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)

	img, _ := f.store.Image("A")
	require.Equal(t, t2, *img.ModifiedTime)
	require.False(t, f.cache.Has("F", "a.jpg"))
	require.Contains(t, f.cache.Removed, "F/a.jpg")
}

func TestSyncImages_BackfillsCreatedTime(t *testing.T) {
	f := newFixture(reconcile.Options{})
	img := localImage("A", "F", "a.jpg")
	img.CreatedTime = nil
	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, []models.Image{img})
	f.remote.SetFiles("F", remoteFile("A", "a.jpg", t1))

	res, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)

	got, _ := f.store.Image("A")
	require.NotNil(t, got.CreatedTime)
	require.Equal(t, t1, *got.CreatedTime)
	require.Empty(t, f.cache.Removed)
}

func TestSyncImages_AmbiguousEmpty(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, []models.Image{localImage("A", "F", "a.jpg")})
	f.remote.Unconfirmed["F"] = true

	_, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	require.ErrorIs(t, err, reconcile.ErrAmbiguousEmpty)
	_, ok := f.store.Image("A")
	require.True(t, ok)
	require.Zero(t, f.store.Commits)
}

func TestSyncImages_DeleteIsChunked(t *testing.T) {
	f := newFixture(reconcile.Options{})
	var images []models.Image
	for i := 0; i < 2500; i++ {
		images = append(images, localImage(fmt.Sprintf("img-%04d", i), "F", fmt.Sprintf("%04d.jpg", i)))
	}
	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, images)

	res, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)
	require.Equal(t, 2500, res.Deleted)
	require.Equal(t, 3, f.store.Calls["DeleteImages"])
	require.Equal(t, reconcile.MaxChunk, f.store.MaxBatch["DeleteImages"])
	require.Empty(t, f.store.Images())
}

func TestSyncImages_PrefetchAfterCommit(t *testing.T) {
	f := newFixture(reconcile.Options{Prefetch: true})
	f.store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, nil)
	f.remote.SetFiles("F", remoteFile("a", "a.jpg", t1), remoteFile("b", "b.jpg", t1))

	_, err := f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, f.cache.Prefetched)
	require.True(t, f.cache.Has("F", "a.jpg"))
}

func TestSyncImages_UnknownFolderIsPersistenceError(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.remote.SetFiles("missing", remoteFile("a", "a.jpg", t1))

	_, err := f.rec.SyncImages(context.Background(), f.rc, "missing")
	var pe *reconcile.PersistenceError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "missing", pe.Scope)
}

func TestSyncImages_NilCache(t *testing.T) {
	store := reconciletest.NewMemStore()
	fake := reconciletest.NewFakeRemote()
	store.Seed([]models.Folder{localFolder("F", "Cats_POST")}, []models.Image{localImage("A", "F", "old.jpg")})
	fake.SetFiles("F", remoteFile("A", "new.jpg", t2))

	rec := reconcile.New(store, fake, nil, reconcile.Options{Prefetch: true})
	res, err := rec.SyncImages(context.Background(), reconcile.NewRunContext("test"), "F")
	require.NoError(t, err)
	require.Equal(t, 1, res.Updated)
}

func TestRunContextAccumulatesTotals(t *testing.T) {
	f := newFixture(reconcile.Options{})
	f.remote.SetFolders(rootID, remoteFolder("F", "Cats_POST"))
	f.remote.SetFiles("F", remoteFile("a", "a.jpg", t1))

	_, err := f.rec.SyncFolders(context.Background(), f.rc, rootID)
	require.NoError(t, err)
	_, err = f.rec.SyncImages(context.Background(), f.rc, "F")
	require.NoError(t, err)

	totals := f.rc.Totals()
	require.Equal(t, 2, totals.Inserted)
	require.Equal(t, 2, totals.TotalRemote)

	require.False(t, f.rc.Cancelled())
	f.rc.Cancel()
	require.True(t, f.rc.Cancelled())
}

func TestErrorKind(t *testing.T) {
	require.Equal(t, "", reconcile.ErrorKind(nil))
	require.Equal(t, reconcile.KindCancelled, reconcile.ErrorKind(fmt.Errorf("wrap: %w", context.Canceled)))
	require.Equal(t, reconcile.KindUnknown, reconcile.ErrorKind(errors.New("boom")))
}
