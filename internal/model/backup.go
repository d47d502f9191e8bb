package model

import "time"

const (
	BackupStatusPending   = "pending"
	BackupStatusUploading = "uploading"
	BackupStatusCompleted = "completed"
	BackupStatusFailed    = "failed"
)

// Backup records one encrypted database upload.
type Backup struct {
	ID           int64      `json:"id"`
	ObjectKey    string     `json:"object_key"`
	Status       string     `json:"status"`
	SizeBytes    int64      `json:"size_bytes"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
