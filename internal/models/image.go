package models

import "time"

type Image struct {
	ID            string     `json:"id"`
	FolderID      string     `json:"folder_id"`
	Name          string     `json:"name"`
	MimeType      *string    `json:"mime_type"`
	ThumbnailLink *string    `json:"thumbnail_link"`
	CreatedTime   *time.Time `json:"created_time"`
	ModifiedTime  *time.Time `json:"modified_time"`
	SyncedAt      time.Time  `json:"synced_at"`
}
