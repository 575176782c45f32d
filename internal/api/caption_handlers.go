package api

import (
	"drive-mirror/internal/database"
	"drive-mirror/internal/models"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const detailImageLimit = 60

type SaveCaptionsRequest struct {
	Captions []string `json:"captions"`
}

// FolderDetailHandler returns a folder with its newest images and captions.
func (s *Server) FolderDetailHandler(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderId")

	folder, err := s.store.GetFolder(r.Context(), folderID)
	if err != nil {
		http.Error(w, "Failed to load folder", http.StatusInternalServerError)
		return
	}
	if folder == nil {
		http.Error(w, "Folder not found", http.StatusNotFound)
		return
	}

	count, err := s.store.CountImagesInFolder(r.Context(), folderID)
	if err != nil {
		http.Error(w, "Failed to count images", http.StatusInternalServerError)
		return
	}
	images, err := s.store.ListImagesPage(r.Context(), folderID, detailImageLimit, 0)
	if err != nil {
		http.Error(w, "Failed to list images", http.StatusInternalServerError)
		return
	}
	captions, err := s.store.GetCaptions(r.Context(), folderID)
	if err != nil {
		http.Error(w, "Failed to load captions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.FolderDetail{
		FolderSummary: models.FolderSummary{
			ID:         folder.ID,
			Name:       folder.Name,
			Type:       database.FolderType(folder.Name),
			ImageCount: count,
		},
		CreatedTime: folder.CreatedTime,
		SyncedAt:    folder.SyncedAt,
		Images:      images,
		Captions:    captions,
	})
}

func (s *Server) GetCaptionsHandler(w http.ResponseWriter, r *http.Request) {
	captions, err := s.store.GetCaptions(r.Context(), chi.URLParam(r, "folderId"))
	if err != nil {
		http.Error(w, "Failed to load captions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"captions": captions})
}

// SaveCaptionsHandler replaces a folder's captions. Blank entries are dropped.
func (s *Server) SaveCaptionsHandler(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderId")

	var req SaveCaptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	captions := make([]string, 0, len(req.Captions))
	for _, c := range req.Captions {
		if c = strings.TrimSpace(c); c != "" {
			captions = append(captions, c)
		}
	}

	if err := s.store.SaveCaptions(r.Context(), folderID, captions); err != nil {
		if errors.Is(err, database.ErrFolderNotFound) {
			http.Error(w, "Folder not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to save captions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "count": len(captions)})
}
