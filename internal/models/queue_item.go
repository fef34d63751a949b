package models

import "time"

// Upload queue statuses
const (
	UploadStatusPending   = "pending"
	UploadStatusUploading = "uploading"
	UploadStatusCompleted = "completed"
	UploadStatusFailed    = "failed"
)

// QueueItem represents one file waiting for (or finished with) transfer
// from Drive to the Photos library.
type QueueItem struct {
	ID           string  `json:"id"`
	UserKey      string  `json:"user_key"`
	RemoteFileID string  `json:"remote_file_id"`
	FileName     string  `json:"file_name"`
	MimeType     string  `json:"mime_type"`
	FileSize     *int64  `json:"file_size,omitempty"`
	Status       string  `json:"status"` // pending, uploading, completed, failed
	LastError    *string `json:"last_error,omitempty"`
	MediaItemID  *string `json:"media_item_id,omitempty"` // Photos media item once uploaded

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Active reports whether the item still holds the per-file dedup slot.
func (q *QueueItem) Active() bool {
	return q.Status == UploadStatusPending || q.Status == UploadStatusUploading
}

// FileDescriptor is the caller-supplied shape for enqueueing a file.
type FileDescriptor struct {
	RemoteFileID string `json:"remote_file_id"`
	FileName     string `json:"file_name"`
	MimeType     string `json:"mime_type"`
	FileSize     *int64 `json:"file_size,omitempty"`
}

// SkippedFile explains why a descriptor was not enqueued.
type SkippedFile struct {
	RemoteFileID string `json:"remote_file_id"`
	Reason       string `json:"reason"` // "already queued" or "already synced"
}

// EnqueueResult is returned by the upload queue's AddToQueue.
type EnqueueResult struct {
	Added   []QueueItem   `json:"added"`
	Skipped []SkippedFile `json:"skipped"`
}

// QueueStats holds aggregate status counts for one user's upload queue.
type QueueStats struct {
	Pending   int `json:"pending"`
	Uploading int `json:"uploading"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}
