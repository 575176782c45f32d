package reconciletest

import (
	"context"
	"drive-mirror/internal/remote"
	"sync"
)

// FakeRemote serves canned listings keyed by parent scope id.
type FakeRemote struct {
	mu sync.Mutex

	Folders map[string][]remote.RemoteFolder
	Files   map[string][]remote.RemoteFile
	// Unconfirmed marks scopes whose listings are not authoritative.
	Unconfirmed map[string]bool
	// Errors makes listings of a scope fail.
	Errors map[string]error
	// Content backs FetchContent, keyed by file id.
	Content map[string][]byte

	Calls []string
}

func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		Folders:     map[string][]remote.RemoteFolder{},
		Files:       map[string][]remote.RemoteFile{},
		Unconfirmed: map[string]bool{},
		Errors:      map[string]error{},
		Content:     map[string][]byte{},
	}
}

func (r *FakeRemote) SetFolders(parentID string, folders ...remote.RemoteFolder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Folders[parentID] = folders
}

func (r *FakeRemote) SetFiles(folderID string, files ...remote.RemoteFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Files[folderID] = files
}

func (r *FakeRemote) ListFolders(ctx context.Context, parentID string) (*remote.Listing[remote.RemoteFolder], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "folders:"+parentID)
	if err := r.Errors[parentID]; err != nil {
		return nil, err
	}
	items := append([]remote.RemoteFolder(nil), r.Folders[parentID]...)
	return &remote.Listing[remote.RemoteFolder]{Items: items, Confirmed: !r.Unconfirmed[parentID], Pages: 1}, nil
}

func (r *FakeRemote) ListFiles(ctx context.Context, folderID string) (*remote.Listing[remote.RemoteFile], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "files:"+folderID)
	if err := r.Errors[folderID]; err != nil {
		return nil, err
	}
	items := append([]remote.RemoteFile(nil), r.Files[folderID]...)
	return &remote.Listing[remote.RemoteFile]{Items: items, Confirmed: !r.Unconfirmed[folderID], Pages: 1}, nil
}

func (r *FakeRemote) FetchContent(ctx context.Context, id string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.Content[id]
	if !ok {
		return nil, remote.ErrContentNotFound
	}
	return data, nil
}
