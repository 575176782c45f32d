package reconciletest

import (
	"context"
	"drive-mirror/internal/storage"
	"strings"
	"sync"
)

// FakeCache records cache side effects. Entries are keyed "folder/name" and
// hold the id of the image whose bytes they carry.
type FakeCache struct {
	mu sync.Mutex

	Entries map[string]string
	// RenameErr makes renames to the given new name fail.
	RenameErr map[string]error

	Removed        []string
	RemovedFolders []string
	Prefetched     []string

	// OnRemoveFolder runs before a folder directory is dropped.
	OnRemoveFolder func(folderID string)
}

func NewFakeCache() *FakeCache {
	return &FakeCache{Entries: map[string]string{}, RenameErr: map[string]error{}}
}

func key(folderID, name string) string {
	return folderID + "/" + name
}

// Put caches the bytes of the image named like the entry.
func (c *FakeCache) Put(folderID, name string) {
	c.PutFor(folderID, name, name)
}

// PutFor caches imageID's bytes under name.
func (c *FakeCache) PutFor(folderID, name, imageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Entries[key(folderID, name)] = imageID
}

func (c *FakeCache) Has(folderID, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.Entries[key(folderID, name)]
	return ok
}

// Owner reports whose bytes are cached under name.
func (c *FakeCache) Owner(folderID, name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Entries[key(folderID, name)]
}

func (c *FakeCache) Rename(folderID, oldName, newName string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.Entries[key(folderID, oldName)]
	if !ok {
		return false, nil
	}
	if err := c.RenameErr[newName]; err != nil {
		return false, err
	}
	if _, taken := c.Entries[key(folderID, newName)]; taken {
		return false, storage.ErrNameTaken
	}
	delete(c.Entries, key(folderID, oldName))
	c.Entries[key(folderID, newName)] = owner
	return true, nil
}

func (c *FakeCache) Remove(folderID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Entries, key(folderID, name))
	c.Removed = append(c.Removed, key(folderID, name))
	return nil
}

func (c *FakeCache) RemoveFolder(folderID string) error {
	if c.OnRemoveFolder != nil {
		c.OnRemoveFolder(folderID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := folderID + "/"
	for k := range c.Entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.Entries, k)
		}
	}
	c.RemovedFolders = append(c.RemovedFolders, folderID)
	return nil
}

func (c *FakeCache) Prefetch(ctx context.Context, folderID, name, imageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Entries[key(folderID, name)] = imageID
	c.Prefetched = append(c.Prefetched, imageID)
	return nil
}
