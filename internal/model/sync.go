package model

import "time"

// SyncStatus represents the state of an area refresh run.
type SyncStatus string

const (
	SyncStatusRunning  SyncStatus = "running"
	SyncStatusComplete SyncStatus = "complete"
	SyncStatusFailed   SyncStatus = "failed"
)

// SyncEntry is one row of the sync log.
type SyncEntry struct {
	ID          string     `json:"id"`
	Area        string     `json:"area"`
	Status      SyncStatus `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RowsSynced  int64      `json:"rows_synced"`
	Error       string     `json:"error,omitempty"`
}
