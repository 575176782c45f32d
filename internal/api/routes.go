package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.StandardLogger(), NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.ServeWsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.AuthMiddleware)

		r.Post("/sync/structure", s.SyncStructureHandler)
		r.Post("/sync/folders/{folderId}", s.SyncFolderHandler)
		r.Post("/sync/all", s.SyncAllHandler)
		r.Get("/sync/runs", s.ListRunsHandler)
		r.Get("/sync/runs/{runId}", s.GetRunHandler)
		r.Delete("/sync/runs/{runId}", s.CancelRunHandler)

		r.Get("/folders", s.ListFoldersHandler)
		r.Get("/folders/{folderId}/images", s.ListFolderImagesHandler)
		r.Get("/folders/{folderId}/detail", s.FolderDetailHandler)
		r.Get("/folders/{folderId}/captions", s.GetCaptionsHandler)
		r.Post("/folders/{folderId}/captions", s.SaveCaptionsHandler)
		r.Get("/images/{imageId}/content", s.ImageContentHandler)
	})

	return r
}
