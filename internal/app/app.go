package app

import (
	"context"
	"drive-mirror/internal/api"
	"drive-mirror/internal/config"
	"drive-mirror/internal/database"
	"drive-mirror/internal/reconcile"
	"drive-mirror/internal/remote"
	"drive-mirror/internal/storage"
	"drive-mirror/internal/syncer"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// App holds the wired sync engine shared by the server and the CLI.
type App struct {
	Pool    *pgxpool.Pool
	Store   *database.Store
	Drive   *remote.DriveClient
	Content api.ContentSource
	Syncer  *syncer.Orchestrator
}

// Build connects to the database and the remote and wires the orchestrator.
// Pass a nil notifier to disable event publishing.
func Build(ctx context.Context, cfg *config.Config, notifier syncer.Notifier) (*App, error) {
	mode := reconcile.CleanupMode(cfg.Sync.CacheCleanup)
	if mode != reconcile.CleanupAfterCommit && mode != reconcile.CleanupBeforeDelete {
		return nil, fmt.Errorf("unknown sync.cache_cleanup %q", cfg.Sync.CacheCleanup)
	}

	pool, err := pgxpool.New(ctx, cfg.DB.Source)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	driveClient, err := remote.NewDriveClient(ctx, DriveConfig(cfg.Drive))
	if err != nil {
		pool.Close()
		return nil, err
	}

	store := database.NewStore(pool)

	var cache reconcile.Cache
	var content api.ContentSource
	if cfg.Storage.Enabled {
		fc, err := storage.NewFileCache(cfg.Storage.Path, driveClient)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init file cache: %w", err)
		}
		cache, content = fc, fc
		log.Infof("file cache in %s", cfg.Storage.Path)
	} else {
		content = storage.NewPassthrough(driveClient)
		log.Info("file cache disabled, content is served from the remote")
	}

	deps := syncer.Deps{
		Reconciler: reconcile.New(reconcile.NewPgStore(store), driveClient, cache, reconcile.Options{
			Cleanup:  mode,
			Prefetch: cfg.Sync.Prefetch,
		}),
		Folders:  store,
		Root:     syncer.NewRootResolver(cfg.Drive.RootFolderID, cfg.Drive.RootFolderName, driveClient),
		Guard:    syncer.NewAdvisoryGuard(store),
		Pacer:    syncer.NewPacer(cfg.Sync.FolderDelay),
		Journal:  store,
		Notifier: notifier,
	}

	return &App{
		Pool:    pool,
		Store:   store,
		Drive:   driveClient,
		Content: content,
		Syncer:  syncer.New(deps),
	}, nil
}

func DriveConfig(c config.DriveConfig) remote.Config {
	return remote.Config{
		CredentialsFile:   c.CredentialsFile,
		CredentialsJSON:   c.CredentialsJSON,
		Endpoint:          c.Endpoint,
		PageSize:          c.PageSize,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
		Retry: remote.RetryPolicy{
			MaxRetries:     c.MaxRetries,
			InitialBackoff: c.InitialBackoff,
			MaxBackoff:     c.MaxBackoff,
		},
	}
}

func (a *App) Close() {
	a.Pool.Close()
}
