// Package services contains the queue-processing and cache-coherence engine:
// the upload queue, the album workflow queue, the sync-status engine and the
// discovery walk. Services consume narrow store interfaces so the state
// machines are testable without a database.
package services

import (
	"context"
	"errors"
	"io"
	"sync"

	"photosync-backend/internal/auth"
	"photosync-backend/internal/models"
	"photosync-backend/internal/remote"
)

var (
	// ErrConflict means a duplicate enqueue of an item that is still active.
	ErrConflict = errors.New("item already active")

	// ErrValidation means malformed input, rejected before any state mutation.
	ErrValidation = errors.New("invalid input")

	// ErrNotCached means a pure cache read was attempted on a folder that
	// has never been synced.
	ErrNotCached = errors.New("folder not cached")
)

// UploadQueueStore is the durable upload queue table.
type UploadQueueStore interface {
	Insert(ctx context.Context, item *models.QueueItem) error
	FindActive(ctx context.Context, userKey, remoteFileID string) (*models.QueueItem, error)
	NextPending(ctx context.Context, userKey string) (*models.QueueItem, error)
	MarkCompleted(ctx context.Context, id, mediaItemID string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	FailAllPending(ctx context.Context, userKey, reason string) (int64, error)
	Requeue(ctx context.Context, userKey, id string) (bool, error)
	ClearFinished(ctx context.Context, userKey string) (int64, error)
	List(ctx context.Context, userKey, status string, limit, offset int) ([]models.QueueItem, error)
	Stats(ctx context.Context, userKey string) (*models.QueueStats, error)
}

// UploadRecordStore is the durable file -> media item mapping table.
type UploadRecordStore interface {
	Upsert(ctx context.Context, userKey, remoteFileID, mediaItemID, fileName string) error
	Exists(ctx context.Context, userKey, remoteFileID string) (bool, error)
	SyncedSet(ctx context.Context, userKey string, remoteFileIDs []string) (map[string]bool, error)
}

// AlbumQueueStore is the durable album workflow table.
type AlbumQueueStore interface {
	Insert(ctx context.Context, item *models.AlbumQueueItem) error
	FindActiveByFolder(ctx context.Context, userKey, remoteFolderID string) (*models.AlbumQueueItem, error)
	Get(ctx context.Context, userKey, id string) (*models.AlbumQueueItem, error)
	NextPending(ctx context.Context, userKey string) (*models.AlbumQueueItem, error)
	SetStatus(ctx context.Context, id, status string) error
	SetTotalFiles(ctx context.Context, id string, total int) error
	IncrementUploaded(ctx context.Context, id string) error
	SetAlbum(ctx context.Context, id, albumID, albumURL string) error
	MarkCompleted(ctx context.Context, id, errMsg string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	MarkCancelled(ctx context.Context, id string) error
	CancelAllPending(ctx context.Context, userKey string) (int64, error)
	Requeue(ctx context.Context, userKey, id string) (bool, error)
	ClearFinished(ctx context.Context, userKey string) (int64, error)
	List(ctx context.Context, userKey, status string, limit, offset int) ([]models.AlbumQueueItem, error)
	Stats(ctx context.Context, userKey string) (*models.AlbumQueueStats, error)
}

// AlbumItemStore is the durable per-file album workflow tracking table.
type AlbumItemStore interface {
	InsertBatch(ctx context.Context, items []models.AlbumItem) error
	ListByQueue(ctx context.Context, albumQueueID string) ([]models.AlbumItem, error)
	MarkUploaded(ctx context.Context, id, mediaItemID string) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	MarkFailedAdd(ctx context.Context, albumQueueID string, mediaItemIDs []string, reason string) error
}

// FolderAlbumStore is the durable folder -> album mapping table.
type FolderAlbumStore interface {
	Find(ctx context.Context, userKey, remoteFolderID string) (*models.FolderAlbumMapping, error)
	Upsert(ctx context.Context, m *models.FolderAlbumMapping) error
	MarkAlbumDeleted(ctx context.Context, userKey, remoteFolderID string) error
	ListForUser(ctx context.Context, userKey string) ([]models.FolderAlbumMapping, error)
}

// SyncStatusStore is the durable folder rollup cache.
type SyncStatusStore interface {
	Get(ctx context.Context, userKey, remoteFolderID string) (*models.SyncStatusDetail, error)
	Upsert(ctx context.Context, userKey, remoteFolderID string, d *models.SyncStatusDetail) error
	Delete(ctx context.Context, userKey, remoteFolderID string) error
}

// DriveAPI is the hierarchical file store.
type DriveAPI interface {
	ListFolder(ctx context.Context, sess *auth.Session, folderID, pageToken string) (*remote.FolderListing, error)
	GetFile(ctx context.Context, sess *auth.Session, fileID string) (*remote.File, error)
	Download(ctx context.Context, sess *auth.Session, fileID string) (io.ReadCloser, error)
}

// PhotosAPI is the flat media library.
type PhotosAPI interface {
	Upload(ctx context.Context, sess *auth.Session, fileName, mimeType string, content io.Reader) (string, error)
	CreateAlbum(ctx context.Context, sess *auth.Session, title string) (*remote.Album, error)
	AddMediaItems(ctx context.Context, sess *auth.Session, albumID string, mediaItemIDs []string) (*remote.AddResult, error)
	GetAlbum(ctx context.Context, sess *auth.Session, albumID string) (*remote.Album, error)
}

// ---------------------------------------------------------------------------
// Runner registry: at most one processing loop per (user, queue kind)
// ---------------------------------------------------------------------------

type queueKind string

const (
	queueKindUpload queueKind = "upload"
	queueKindAlbum  queueKind = "album"
)

type runnerKey struct {
	userKey string
	kind    queueKind
}

// runnerState carries the cooperative stop flag for one running loop.
type runnerState struct {
	mu      sync.Mutex
	stopped bool
}

func (s *runnerState) requestStop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *runnerState) stopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// RunnerRegistry is the explicit mutual-exclusion guard for processing loops.
// Owned by the queue services, never a package-level global.
type RunnerRegistry struct {
	mu      sync.Mutex
	running map[runnerKey]*runnerState
}

func NewRunnerRegistry() *RunnerRegistry {
	return &RunnerRegistry{running: make(map[runnerKey]*runnerState)}
}

// acquire claims the slot for a loop. The second return is false when a loop
// is already running for that user and queue kind.
func (r *RunnerRegistry) acquire(userKey string, kind queueKind) (*runnerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := runnerKey{userKey: userKey, kind: kind}
	if _, exists := r.running[key]; exists {
		return nil, false
	}
	state := &runnerState{}
	r.running[key] = state
	return state, true
}

// release frees the slot so a later start call can claim it.
func (r *RunnerRegistry) release(userKey string, kind queueKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, runnerKey{userKey: userKey, kind: kind})
}

// requestStop flags the running loop, if any. Advisory: the loop observes the
// flag at its next iteration boundary.
func (r *RunnerRegistry) requestStop(userKey string, kind queueKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.running[runnerKey{userKey: userKey, kind: kind}]
	if !ok {
		return false
	}
	state.requestStop()
	return true
}

// isRunning reports whether a loop currently holds the slot.
func (r *RunnerRegistry) isRunning(userKey string, kind queueKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[runnerKey{userKey: userKey, kind: kind}]
	return ok
}
