package api

import (
	"context"
	"drive-mirror/internal/config"
	"drive-mirror/internal/database"
	"drive-mirror/internal/models"
	"drive-mirror/internal/websocket"

	"github.com/google/uuid"
)

// Syncer is the trigger surface of the sync orchestrator.
type Syncer interface {
	SyncStructure(ctx context.Context) (*models.ScopeReport, error)
	SyncFolder(ctx context.Context, folderID string) (*models.ScopeReport, error)
	SyncAll(ctx context.Context) (*models.RunReport, error)
	StartAll(ctx context.Context) (uuid.UUID, <-chan *models.RunReport, error)
	Cancel(runID uuid.UUID) bool
}

// ContentSource returns image bytes, from the file cache or the remote.
type ContentSource interface {
	Open(ctx context.Context, folderID, name, imageID string) ([]byte, error)
}

type Server struct {
	config  *config.Config
	store   *database.Store
	syncer  Syncer
	content ContentSource
	wsHub   *websocket.Hub
}

func NewServer(cfg *config.Config, store *database.Store, syncer Syncer, content ContentSource, wsHub *websocket.Hub) *Server {
	return &Server{
		config:  cfg,
		store:   store,
		syncer:  syncer,
		content: content,
		wsHub:   wsHub,
	}
}
