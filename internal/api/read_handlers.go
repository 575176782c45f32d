package api

import (
	"drive-mirror/internal/remote"
	"drive-mirror/internal/storage"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

func (s *Server) ListFoldersHandler(w http.ResponseWriter, r *http.Request) {
	folders, err := s.store.ListFolderSummaries(r.Context())
	if err != nil {
		http.Error(w, "Failed to list folders", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) ListFolderImagesHandler(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderId")

	limit, offset, ok := parsePage(w, r, 50, 500)
	if !ok {
		return
	}

	folder, err := s.store.GetFolder(r.Context(), folderID)
	if err != nil {
		http.Error(w, "Failed to load folder", http.StatusInternalServerError)
		return
	}
	if folder == nil {
		http.Error(w, "Folder not found", http.StatusNotFound)
		return
	}

	images, err := s.store.ListImagesPage(r.Context(), folderID, limit, offset)
	if err != nil {
		http.Error(w, "Failed to list images", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// ImageContentHandler streams image bytes through the content source. The
// content type is sniffed from the bytes, falling back to the stored one.
func (s *Server) ImageContentHandler(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "imageId")

	img, err := s.store.GetImage(r.Context(), imageID)
	if err != nil {
		http.Error(w, "Failed to load image", http.StatusInternalServerError)
		return
	}
	if img == nil {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}

	data, err := s.content.Open(r.Context(), img.FolderID, img.Name, img.ID)
	if err != nil {
		switch {
		case errors.Is(err, remote.ErrContentNotFound):
			http.Error(w, "Image content not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrInvalidName):
			http.Error(w, "Image name cannot be served", http.StatusUnprocessableEntity)
		default:
			log.WithField("image_id", img.ID).Errorf("failed to load image content: %v", err)
			http.Error(w, "Failed to load image content", http.StatusBadGateway)
		}
		return
	}

	contentType := http.DetectContentType(data)
	if contentType == "application/octet-stream" && img.MimeType != nil {
		contentType = *img.MimeType
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
