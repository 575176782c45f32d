package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScopeKindStructure = "structure"
	ScopeKindFolder    = "folder"
	ScopeKindAll       = "all"
)

// ScopeReport is the outcome of reconciling a single scope.
type ScopeReport struct {
	Scope           string  `json:"scope"`
	Kind            string  `json:"kind"`
	FolderID        string  `json:"folder_id,omitempty"`
	FolderName      string  `json:"folder_name,omitempty"`
	Success         bool    `json:"success"`
	Inserted        int     `json:"inserted"`
	Updated         int     `json:"updated"`
	Deleted         int     `json:"deleted"`
	CascadedImages  int     `json:"cascaded_images,omitempty"`
	Moved           int     `json:"moved,omitempty"`
	RenameFailures  int     `json:"rename_failures,omitempty"`
	TotalRemote     int     `json:"total_remote"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           string  `json:"error,omitempty"`
	ErrorKind       string  `json:"error_kind,omitempty"`
}

type Totals struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Failed    int `json:"failed_scopes"`
	Cancelled int `json:"cancelled_scopes"`
}

// RunReport aggregates every scope touched by one run.
type RunReport struct {
	RunID           uuid.UUID     `json:"run_id"`
	Kind            string        `json:"kind"`
	State           string        `json:"state"`
	Structure       *ScopeReport  `json:"structure,omitempty"`
	Folders         []ScopeReport `json:"folders"`
	Totals          Totals        `json:"totals"`
	Error           string        `json:"error,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	DurationSeconds float64       `json:"duration_seconds"`
}

// Reports flattens the run into the per-scope list returned by the trigger boundary.
func (r *RunReport) Reports() []ScopeReport {
	out := make([]ScopeReport, 0, len(r.Folders)+1)
	if r.Structure != nil {
		out = append(out, *r.Structure)
	}
	return append(out, r.Folders...)
}
