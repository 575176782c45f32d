package syncer

import (
	"context"
	"sync"
)

type FolderFinder interface {
	FindFolderByName(ctx context.Context, name string) (string, error)
}

// RootResolver yields the remote id of the mirrored root scope.
type RootResolver interface {
	Root(ctx context.Context) (string, error)
}

type rootResolver struct {
	name   string
	finder FolderFinder

	mu sync.Mutex
	id string
}

// NewRootResolver returns id when set, otherwise looks the root up by name
// on first use and remembers it.
func NewRootResolver(id, name string, finder FolderFinder) RootResolver {
	return &rootResolver{id: id, name: name, finder: finder}
}

func (r *rootResolver) Root(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.id != "" {
		return r.id, nil
	}
	id, err := r.finder.FindFolderByName(ctx, r.name)
	if err != nil {
		return "", err
	}
	r.id = id
	return id, nil
}
