package storage

import "context"

// Passthrough serves content straight from the remote. It stands in for
// FileCache when on-disk caching is disabled.
type Passthrough struct {
	fetcher Fetcher
}

func NewPassthrough(fetcher Fetcher) *Passthrough {
	return &Passthrough{fetcher: fetcher}
}

func (p *Passthrough) Open(ctx context.Context, folderID, name, imageID string) ([]byte, error) {
	return p.fetcher.FetchContent(ctx, imageID)
}
