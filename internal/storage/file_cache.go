package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidName = errors.New("invalid cache name")
var ErrNameTaken = errors.New("cache name already taken")

// Fetcher loads the bytes of a remote file by id.
type Fetcher interface {
	FetchContent(ctx context.Context, id string) ([]byte, error)
}

// FileCache keeps image bytes on disk under <basePath>/<folderID>/<name>.
// Entries are filled lazily on first read and never re-fetched while present.
type FileCache struct {
	basePath string
	fetcher  Fetcher
	group    singleflight.Group
}

func NewFileCache(basePath string, fetcher Fetcher) (*FileCache, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &FileCache{basePath: basePath, fetcher: fetcher}, nil
}

func validName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "..")
}

func (c *FileCache) folderPath(folderID string) (string, error) {
	if !validName(folderID) {
		return "", fmt.Errorf("%w: folder %q", ErrInvalidName, folderID)
	}
	return filepath.Join(c.basePath, folderID), nil
}

func (c *FileCache) filePath(folderID, name string) (string, error) {
	dir, err := c.folderPath(folderID)
	if err != nil {
		return "", err
	}
	if !validName(name) {
		return "", fmt.Errorf("%w: file %q", ErrInvalidName, name)
	}
	return filepath.Join(dir, name), nil
}

// Open returns the cached bytes for (folderID, name), fetching imageID from
// the remote on a miss. Concurrent misses for the same entry share one fetch.
func (c *FileCache) Open(ctx context.Context, folderID, name, imageID string) ([]byte, error) {
	p, err := c.filePath(folderID, name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err == nil {
		cacheLookups.WithLabelValues("hit").Inc()
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	cacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do(p, func() (interface{}, error) {
		if data, err := os.ReadFile(p); err == nil {
			return data, nil
		}
		data, err := c.fetcher.FetchContent(ctx, imageID)
		if err != nil {
			return nil, err
		}
		if err := writeAtomic(p, data); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Prefetch fills the entry if it is not cached yet.
func (c *FileCache) Prefetch(ctx context.Context, folderID, name, imageID string) error {
	if c.Exists(folderID, name) {
		return nil
	}
	_, err := c.Open(ctx, folderID, name, imageID)
	return err
}

func writeAtomic(p string, data []byte) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (c *FileCache) Exists(folderID, name string) bool {
	p, err := c.filePath(folderID, name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Rename moves a cached entry to its new name. It reports false when there
// was nothing cached under oldName. A new name that cannot be cached drops the
// old entry instead, so the next read fetches under the new name. An entry
// already cached under newName is never replaced; ErrNameTaken is returned.
func (c *FileCache) Rename(folderID, oldName, newName string) (bool, error) {
	from, err := c.filePath(folderID, oldName)
	if err != nil {
		return false, nil
	}
	if _, err := os.Stat(from); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	to, err := c.filePath(folderID, newName)
	if err != nil {
		return false, c.Remove(folderID, oldName)
	}
	// Link fails on an existing target where Rename would replace it.
	if err := os.Link(from, to); err != nil {
		if os.IsExist(err) {
			return false, fmt.Errorf("%w: %s", ErrNameTaken, newName)
		}
		return false, err
	}
	if err := os.Remove(from); err != nil {
		os.Remove(to)
		return false, err
	}
	return true, nil
}

// Remove deletes a cached entry. A missing entry is not an error.
func (c *FileCache) Remove(folderID, name string) error {
	p, err := c.filePath(folderID, name)
	if err != nil {
		return err
	}

	err = os.Remove(p)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (c *FileCache) RemoveFolder(folderID string) error {
	dir, err := c.folderPath(folderID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	log.WithField("folder_id", folderID).Debug("removed cached folder")
	return nil
}
