package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SyncRun struct {
	ID         uuid.UUID       `json:"id"`
	Kind       string          `json:"kind"`
	Scope      string          `json:"scope"`
	State      string          `json:"state"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at"`
	Report     json.RawMessage `json:"report"`
}

type SyncEvent struct {
	EventType string      `json:"event_type"`
	RunID     uuid.UUID   `json:"run_id"`
	EventTime time.Time   `json:"event_time"`
	Payload   interface{} `json:"payload"`
}

const (
	EventRunStarted  = "sync_run_started"
	EventScopeSynced = "sync_scope_finished"
	EventRunFinished = "sync_run_finished"
)
