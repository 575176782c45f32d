package models

import "time"

type Folder struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	ParentID    *string    `json:"parent_id"`
	CreatedTime *time.Time `json:"created_time"`
	SyncedAt    time.Time  `json:"synced_at"`
}

// FolderSummary is the dashboard view of a mirrored folder.
type FolderSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ImageCount int64  `json:"image_count"`
}

// FolderDetail is the single-folder dashboard view: the summary, the newest
// images and the saved captions.
type FolderDetail struct {
	FolderSummary
	CreatedTime *time.Time `json:"created_time"`
	SyncedAt    time.Time  `json:"synced_at"`
	Images      []Image    `json:"images"`
	Captions    []string   `json:"captions"`
}

const (
	FolderTypePost  = "POST"
	FolderTypeStory = "STORY"
	FolderTypeOther = "OTHER"
)
