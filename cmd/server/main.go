package main

import (
	"context"
	"drive-mirror/internal/api"
	"drive-mirror/internal/app"
	"drive-mirror/internal/config"
	"drive-mirror/internal/logging"
	"drive-mirror/internal/syncer"
	"drive-mirror/internal/websocket"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Nie można wczytać konfiguracji: %v", err)
	}

	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("Nie można skonfigurować logowania: %v", err)
	}
	defer logCloser.Close()

	if cfg.JWT.Secret == "" {
		log.Fatal("Brak jwt.secret w konfiguracji")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsHub := websocket.NewHub()
	go wsHub.Run()
	defer wsHub.Stop()

	a, err := app.Build(ctx, cfg, wsHub)
	if err != nil {
		log.Fatalf("Nie można zainicjować synchronizacji: %v", err)
	}
	defer a.Close()
	log.Println("Pomyślnie połączono z bazą danych")

	if cfg.Sync.Schedule != "" {
		scheduler, err := syncer.NewScheduler(a.Syncer, cfg.Sync.Schedule)
		if err != nil {
			log.Fatalf("Nie można uruchomić harmonogramu: %v", err)
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
		log.Printf("Harmonogram synchronizacji: %s", cfg.Sync.Schedule)
	}

	server := api.NewServer(cfg, a.Store, a.Syncer, a.Content, wsHub)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Uruchamianie serwera na %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Nie można uruchomić serwera: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Zatrzymywanie serwera...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Błąd podczas zatrzymywania serwera: %v", err)
	}
}
