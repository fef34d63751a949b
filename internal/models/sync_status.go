package models

import "time"

// Sync rollup statuses
const (
	SyncStatusSynced   = "synced"
	SyncStatusPartial  = "partial"
	SyncStatusUnsynced = "unsynced"
)

// SyncStatusDetail is the synced/unsynced rollup for a file or folder.
// For folders it aggregates all descendant files.
type SyncStatusDetail struct {
	Status      string    `json:"status"` // synced, partial, unsynced
	SyncedCount int       `json:"synced_count"`
	TotalCount  int       `json:"total_count"`
	Percentage  int       `json:"percentage"` // 0-100, rounded
	LastChecked time.Time `json:"last_checked"`
}

// FolderSyncTree is one node of a recursive sync-status refresh result.
type FolderSyncTree struct {
	RemoteFolderID string           `json:"remote_folder_id"`
	FolderName     string           `json:"folder_name"`
	Detail         SyncStatusDetail `json:"detail"`
	Subfolders     []FolderSyncTree `json:"subfolders,omitempty"`
}

// RecursiveRefreshResult wraps a full subtree refresh with observability info.
type RecursiveRefreshResult struct {
	Root           FolderSyncTree `json:"root"`
	ProcessedCount int            `json:"processed_count"`
	DurationMS     int64          `json:"duration_ms"`
}
