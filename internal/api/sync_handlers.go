package api

import (
	"drive-mirror/internal/models"
	"drive-mirror/internal/reconcile"
	"drive-mirror/internal/remote"
	"drive-mirror/internal/syncer"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type StartRunResponse struct {
	RunID uuid.UUID `json:"run_id"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// scopeStatus maps a finished scope to an HTTP status. Remote-side failures
// are reported as a bad gateway.
func scopeStatus(rep *models.ScopeReport) int {
	switch {
	case rep.Success:
		return http.StatusOK
	case rep.ErrorKind == reconcile.KindTransientFetch, rep.ErrorKind == reconcile.KindAmbiguousEmpty:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeTriggerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, syncer.ErrScopeBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, remote.ErrRootNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Errorf("failed to start sync: %v", err)
		http.Error(w, "Failed to start sync", http.StatusInternalServerError)
	}
}

func (s *Server) SyncStructureHandler(w http.ResponseWriter, r *http.Request) {
	rep, err := s.syncer.SyncStructure(r.Context())
	if err != nil {
		writeTriggerError(w, err)
		return
	}
	writeJSON(w, scopeStatus(rep), rep)
}

func (s *Server) SyncFolderHandler(w http.ResponseWriter, r *http.Request) {
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

	rep, err := s.syncer.SyncFolder(r.Context(), folderID)
	if err != nil {
		writeTriggerError(w, err)
		return
	}
	rep.FolderName = folder.Name
	writeJSON(w, scopeStatus(rep), rep)
}

// SyncAllHandler starts a full run in the background and answers 202 with
// its id. With ?wait=true it blocks and returns the run report instead.
func (s *Server) SyncAllHandler(w http.ResponseWriter, r *http.Request) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		report, err := s.syncer.SyncAll(r.Context())
		if err != nil {
			writeTriggerError(w, err)
			return
		}
		status := http.StatusOK
		if report.State != string(syncer.StateDone) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, report)
		return
	}

	runID, _, err := s.syncer.StartAll(r.Context())
	if err != nil {
		writeTriggerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, StartRunResponse{RunID: runID})
}

func (s *Server) CancelRunHandler(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runId"))
	if err != nil {
		http.Error(w, "Invalid run id", http.StatusBadRequest)
		return
	}
	if !s.syncer.Cancel(runID) {
		http.Error(w, "Run is not active", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := parsePage(w, r, 20, 100)
	if !ok {
		return
	}

	runs, err := s.store.ListRuns(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, "Failed to list sync runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) GetRunHandler(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "runId"))
	if err != nil {
		http.Error(w, "Invalid run id", http.StatusBadRequest)
		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		http.Error(w, "Failed to load sync run", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "Sync run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func parsePage(w http.ResponseWriter, r *http.Request, defaultLimit, maxLimit int) (int, int, bool) {
	limit, offset := defaultLimit, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return 0, 0, false
		}
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid offset", http.StatusBadRequest)
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}
