package api

import (
	"context"
	"drive-mirror/internal/auth"
	"drive-mirror/internal/config"
	"drive-mirror/internal/database"
	"drive-mirror/internal/reconcile"
	"drive-mirror/internal/reconcile/reconciletest"
	"drive-mirror/internal/storage"
	"drive-mirror/internal/syncer"
	"drive-mirror/internal/websocket"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testRootID = "api_root"

var testServer *Server
var testHandler http.Handler
var testToken string
var testRemote *reconciletest.FakeRemote
var testCache *storage.FileCache

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:14-alpine",
		postgres.WithDatabase("test_api_db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		log.Fatalf("Could not start postgres: %s", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("Could not get connection string: %s", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Could not connect to database: %s", err)
	}

	schema, err := os.ReadFile("../../db/init.sql")
	if err != nil {
		log.Fatalf("Could not read schema file: %s", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("Could not apply schema: %s", err)
	}

	tempDir, err := os.MkdirTemp("", "api-cache-test")
	if err != nil {
		log.Fatalf("Could not create temp dir: %s", err)
	}

	testRemote = reconciletest.NewFakeRemote()
	testCache, err = storage.NewFileCache(tempDir, testRemote)
	if err != nil {
		log.Fatalf("Could not create file cache: %s", err)
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()

	store := database.NewStore(pool)
	orch := syncer.New(syncer.Deps{
		Reconciler: reconcile.New(reconcile.NewPgStore(store), testRemote, testCache, reconcile.Options{}),
		Folders:    store,
		Root:       syncer.NewRootResolver(testRootID, "", nil),
		Guard:      syncer.NewAdvisoryGuard(store),
		Journal:    store,
		Notifier:   wsHub,
	})

	cfg := &config.Config{JWT: config.JWTConfig{Secret: "api_test_secret"}}
	testServer = NewServer(cfg, store, orch, testCache, wsHub)
	testHandler = testServer.Routes()

	testToken, err = auth.GenerateJWT("api_test_operator", cfg.JWT.Secret, time.Hour)
	if err != nil {
		log.Fatalf("Could not generate token: %s", err)
	}

	code := m.Run()

	wsHub.Stop()
	pool.Close()
	os.RemoveAll(tempDir)
	if err := pgContainer.Terminate(ctx); err != nil {
		log.Fatalf("Could not terminate postgres: %s", err)
	}
	os.Exit(code)
}
