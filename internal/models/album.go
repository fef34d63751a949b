package models

import "time"

// Album queue statuses
const (
	AlbumStatusPending   = "PENDING"
	AlbumStatusUploading = "UPLOADING"
	AlbumStatusCreating  = "CREATING"
	AlbumStatusUpdating  = "UPDATING"
	AlbumStatusCompleted = "COMPLETED"
	AlbumStatusFailed    = "FAILED"
	AlbumStatusCancelled = "CANCELLED"
)

// Album workflow modes
const (
	AlbumModeCreate = "CREATE"
	AlbumModeUpdate = "UPDATE"
)

// Album item statuses
const (
	AlbumItemPending   = "PENDING"
	AlbumItemUploaded  = "UPLOADED"
	AlbumItemFailed    = "FAILED"
	AlbumItemFailedAdd = "FAILED_ADD" // uploaded fine, rejected by the album add call
)

// AlbumQueueItem represents one folder-to-album workflow.
type AlbumQueueItem struct {
	ID             string  `json:"id"`
	UserKey        string  `json:"user_key"`
	RemoteFolderID string  `json:"remote_folder_id"`
	FolderName     string  `json:"folder_name"`
	Status         string  `json:"status"`
	Mode           *string `json:"mode,omitempty"` // CREATE or UPDATE, resolved at enqueue
	TotalFiles     *int    `json:"total_files,omitempty"`
	UploadedFiles  int     `json:"uploaded_files"`
	AlbumID        *string `json:"album_id,omitempty"`
	AlbumURL       *string `json:"album_url,omitempty"`
	LastError      *string `json:"last_error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the workflow has finished one way or another.
func (a *AlbumQueueItem) Terminal() bool {
	switch a.Status {
	case AlbumStatusCompleted, AlbumStatusFailed, AlbumStatusCancelled:
		return true
	}
	return false
}

// AlbumItem is one file tracked inside an album workflow.
type AlbumItem struct {
	ID           string  `json:"id"`
	AlbumQueueID string  `json:"album_queue_id"`
	RemoteFileID string  `json:"remote_file_id"`
	MediaItemID  *string `json:"media_item_id,omitempty"`
	Status       string  `json:"status"`
	LastError    *string `json:"last_error,omitempty"`
}

// AlbumQueueStats holds aggregate status counts for one user's album queue.
type AlbumQueueStats struct {
	Pending   int `json:"pending"`
	Uploading int `json:"uploading"`
	Creating  int `json:"creating"`
	Updating  int `json:"updating"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// FolderAlbumMapping is the single source of truth linking a Drive folder
// to the Photos album built from it.
type FolderAlbumMapping struct {
	ID                string     `json:"id"`
	UserKey           string     `json:"user_key"`
	RemoteFolderID    string     `json:"remote_folder_id"`
	FolderName        string     `json:"folder_name"`
	AlbumID           string     `json:"album_id"`
	AlbumURL          string     `json:"album_url"`
	TotalItemsInAlbum int        `json:"total_items_in_album"`
	DiscoveredViaAPI  bool       `json:"discovered_via_api"`
	AlbumDeleted      bool       `json:"album_deleted"`
	CreatedAt         time.Time  `json:"created_at"`
	LastUpdatedAt     *time.Time `json:"last_updated_at,omitempty"`
}
