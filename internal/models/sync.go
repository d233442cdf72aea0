package models

import "time"

// SyncState represents the sync engine state machine.
type SyncState string

const (
	SyncIdle      SyncState = "idle"
	SyncSyncing   SyncState = "syncing"
	SyncCompleted SyncState = "completed"
	SyncFailed    SyncState = "failed"
	SyncPaused    SyncState = "paused"
)

// SyncStatus is the externally observable snapshot of the engine.
type SyncStatus struct {
	State     SyncState `json:"state"`
	Operation string    `json:"operation,omitempty"`
	Progress  float64   `json:"progress"`
	LastError string    `json:"last_error,omitempty"`
}

// SyncResult summarizes one completed sync run.
type SyncResult struct {
	Operation      string `json:"operation"`
	Success        bool   `json:"success"`
	ItemsProcessed int    `json:"items_processed"`
	ItemsFailed    int    `json:"items_failed"`
	Error          string `json:"error,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// TimestampTime returns Timestamp as time.Time.
func (r *SyncResult) TimestampTime() time.Time {
	return time.Unix(r.Timestamp, 0)
}
