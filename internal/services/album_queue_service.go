package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"photosync-backend/internal/auth"
	"photosync-backend/internal/metrics"
	"photosync-backend/internal/models"
	"photosync-backend/internal/operations"
	"photosync-backend/internal/remote"
)

// AlbumQueueService runs the per-folder workflow: upload every file in the
// folder, then create or update the matching album. It composes the upload
// queue's transfer primitive with the cache engine and the album API.
type AlbumQueueService struct {
	queue        AlbumQueueStore
	items        AlbumItemStore
	folderAlbums FolderAlbumStore
	uploads      *UploadQueueService
	syncStatus   *SyncStatusService
	photos       PhotosAPI
	hub          *operations.Hub
	metrics      *metrics.Metrics
	provider     auth.SessionProvider
	runners      *RunnerRegistry
}

func NewAlbumQueueService(
	queue AlbumQueueStore,
	items AlbumItemStore,
	folderAlbums FolderAlbumStore,
	uploads *UploadQueueService,
	syncStatus *SyncStatusService,
	photos PhotosAPI,
	hub *operations.Hub,
	m *metrics.Metrics,
	provider auth.SessionProvider,
	runners *RunnerRegistry,
) *AlbumQueueService {
	return &AlbumQueueService{
		queue:        queue,
		items:        items,
		folderAlbums: folderAlbums,
		uploads:      uploads,
		syncStatus:   syncStatus,
		photos:       photos,
		hub:          hub,
		metrics:      m,
		provider:     provider,
		runners:      runners,
	}
}

// AddToQueue enqueues a folder-to-album workflow. The mode is resolved from
// the folder-album mapping now and never re-derived later. A folder with a
// non-terminal workflow is rejected with ErrConflict.
func (s *AlbumQueueService) AddToQueue(ctx context.Context, userKey, remoteFolderID, folderName string) (*models.AlbumQueueItem, error) {
	if userKey == "" || remoteFolderID == "" {
		return nil, fmt.Errorf("%w: user key and folder id required", ErrValidation)
	}

	active, err := s.queue.FindActiveByFolder(ctx, userKey, remoteFolderID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("%w: folder %s already has workflow %s (%s)",
			ErrConflict, remoteFolderID, active.ID, active.Status)
	}

	mode := models.AlbumModeCreate
	mapping, err := s.folderAlbums.Find(ctx, userKey, remoteFolderID)
	if err != nil {
		return nil, err
	}
	if mapping != nil && !mapping.AlbumDeleted {
		mode = models.AlbumModeUpdate
	}

	item := &models.AlbumQueueItem{
		ID:             uuid.NewString(),
		UserKey:        userKey,
		RemoteFolderID: remoteFolderID,
		FolderName:     folderName,
		Status:         models.AlbumStatusPending,
		Mode:           &mode,
	}
	if err := s.queue.Insert(ctx, item); err != nil {
		return nil, err
	}

	log.Printf("[AlbumQueue] Enqueued folder %q (%s) in %s mode for user %s",
		folderName, remoteFolderID, mode, userKey)
	return item, nil
}

// StartProcessing launches the user's album workflow loop. Returns false
// when a loop is already running.
func (s *AlbumQueueService) StartProcessing(ctx context.Context, userKey string, tokens auth.TokenSet) (bool, error) {
	if userKey == "" {
		return false, fmt.Errorf("%w: user key required", ErrValidation)
	}

	state, ok := s.runners.acquire(userKey, queueKindAlbum)
	if !ok {
		log.Printf("[AlbumQueue] Processing already running for user %s", userKey)
		return false, nil
	}

	if s.metrics != nil {
		s.metrics.QueueStarts.WithLabelValues("album").Inc()
	}

	sess := auth.NewSession(s.provider, tokens)
	go s.processLoop(userKey, sess, state)
	return true, nil
}

// StopProcessing cancels all still-PENDING workflows immediately and flags
// the in-flight one; it is observed at the workflow's two checkpoints only.
func (s *AlbumQueueService) StopProcessing(ctx context.Context, userKey string) (int64, error) {
	s.runners.requestStop(userKey, queueKindAlbum)
	return s.queue.CancelAllPending(ctx, userKey)
}

func (s *AlbumQueueService) processLoop(userKey string, sess *auth.Session, state *runnerState) {
	ctx := context.Background()
	defer s.runners.release(userKey, queueKindAlbum)

	for {
		if state.stopRequested() {
			break
		}

		item, err := s.queue.NextPending(ctx, userKey)
		if err != nil {
			log.Printf("[AlbumQueue] Claim failed for %s: %v", userKey, err)
			break
		}
		if item == nil {
			break
		}

		s.processWorkflow(ctx, sess, item, state)
	}

	log.Printf("[AlbumQueue] Loop finished for user %s", userKey)
}

// processWorkflow drives one folder through upload -> album create/update.
// Cancellation is checked before each file upload and once more before the
// album call; after the album call is issued the workflow always completes.
func (s *AlbumQueueService) processWorkflow(ctx context.Context, sess *auth.Session, item *models.AlbumQueueItem, state *runnerState) {
	userKey := item.UserKey

	opID := s.hub.Create("album", "Album: "+item.FolderName, operations.CreateOpts{
		Metadata: map[string]interface{}{
			"user_key":  userKey,
			"folder_id": item.RemoteFolderID,
		},
	})
	ctx = remote.WithRetryNotifier(ctx, func(message string, attempt, maxAttempts int) {
		s.hub.MarkRetrying(opID, message, attempt, maxAttempts)
	})

	fail := func(err error) {
		log.Printf("[AlbumQueue] Workflow %s failed: %v", item.ID, err)
		if markErr := s.queue.MarkFailed(ctx, item.ID, err.Error()); markErr != nil {
			log.Printf("[AlbumQueue] Failed to record failure for %s: %v", item.ID, markErr)
		}
		s.hub.Fail(opID, err.Error())
		if s.metrics != nil {
			s.metrics.AlbumsTotal.WithLabelValues("failed").Inc()
		}
	}

	cancel := func() {
		log.Printf("[AlbumQueue] Workflow %s cancelled at checkpoint", item.ID)
		if err := s.queue.MarkCancelled(ctx, item.ID); err != nil {
			log.Printf("[AlbumQueue] Failed to record cancellation for %s: %v", item.ID, err)
		}
		s.hub.Fail(opID, "cancelled")
		if s.metrics != nil {
			s.metrics.AlbumsTotal.WithLabelValues("cancelled").Inc()
		}
	}

	// Step 1: resolve the folder's current file set and snapshot it.
	folder, err := s.syncStatus.EnsureFresh(ctx, sess, userKey, item.RemoteFolderID)
	if err != nil {
		fail(fmt.Errorf("resolve folder contents: %w", err))
		return
	}
	if err := s.queue.SetTotalFiles(ctx, item.ID, len(folder.Files)); err != nil {
		fail(err)
		return
	}

	albumItems := make([]models.AlbumItem, 0, len(folder.Files))
	for _, f := range folder.Files {
		albumItems = append(albumItems, models.AlbumItem{
			ID:           uuid.NewString(),
			AlbumQueueID: item.ID,
			RemoteFileID: f.ID,
		})
	}
	if err := s.items.InsertBatch(ctx, albumItems); err != nil {
		fail(fmt.Errorf("create album items: %w", err))
		return
	}

	// Step 2: upload every file not already uploaded. The claim in
	// NextPending already moved the workflow to UPLOADING.
	tracked, err := s.items.ListByQueue(ctx, item.ID)
	if err != nil {
		fail(err)
		return
	}

	filesByID := make(map[string]remote.File, len(folder.Files))
	for _, f := range folder.Files {
		filesByID[f.ID] = f
	}

	uploaded := 0
	for _, ai := range tracked {
		if ai.Status == models.AlbumItemUploaded {
			uploaded++
			continue
		}
		if state.stopRequested() {
			cancel()
			return
		}

		file, ok := filesByID[ai.RemoteFileID]
		if !ok {
			// File disappeared between enumeration and upload.
			s.items.MarkFailed(ctx, ai.ID, "file no longer present in folder")
			continue
		}

		s.hub.SetMetadata(opID, map[string]interface{}{"current_file": file.Name})

		mediaItemID, err := s.uploads.TransferFile(ctx, sess, userKey, file)
		if err != nil {
			log.Printf("[AlbumQueue] Upload failed for %s in workflow %s: %v", file.Name, item.ID, err)
			s.items.MarkFailed(ctx, ai.ID, err.Error())
			continue
		}

		if err := s.items.MarkUploaded(ctx, ai.ID, mediaItemID); err != nil {
			log.Printf("[AlbumQueue] Failed to record upload for %s: %v", ai.ID, err)
			continue
		}
		s.queue.IncrementUploaded(ctx, item.ID)
		uploaded++
		s.hub.UpdateProgress(opID, uploaded, len(tracked))
	}

	// Checkpoint: last chance to cancel before the point of no return.
	if state.stopRequested() {
		cancel()
		return
	}

	// Step 3: create or update the album with everything that uploaded.
	mode := models.AlbumModeCreate
	if item.Mode != nil {
		mode = *item.Mode
	}

	tracked, err = s.items.ListByQueue(ctx, item.ID)
	if err != nil {
		fail(err)
		return
	}
	var mediaItemIDs []string
	for _, ai := range tracked {
		if ai.Status == models.AlbumItemUploaded && ai.MediaItemID != nil {
			mediaItemIDs = append(mediaItemIDs, *ai.MediaItemID)
		}
	}

	var albumID, albumURL string
	if mode == models.AlbumModeUpdate {
		if err := s.queue.SetStatus(ctx, item.ID, models.AlbumStatusUpdating); err != nil {
			fail(err)
			return
		}
		mapping, err := s.folderAlbums.Find(ctx, userKey, item.RemoteFolderID)
		if err != nil {
			fail(err)
			return
		}
		if mapping == nil {
			fail(fmt.Errorf("album mapping missing for folder %s", item.RemoteFolderID))
			return
		}
		albumID = mapping.AlbumID
		albumURL = mapping.AlbumURL
		if _, err := s.photos.GetAlbum(ctx, sess, albumID); err != nil {
			if errors.Is(err, remote.ErrNotFoundOrGone) {
				if markErr := s.folderAlbums.MarkAlbumDeleted(ctx, userKey, item.RemoteFolderID); markErr != nil {
					log.Printf("[AlbumQueue] Failed to mark album deleted for %s: %v", item.RemoteFolderID, markErr)
				}
			}
			fail(fmt.Errorf("album lookup: %w", err))
			return
		}
	} else {
		if err := s.queue.SetStatus(ctx, item.ID, models.AlbumStatusCreating); err != nil {
			fail(err)
			return
		}
		album, err := s.photos.CreateAlbum(ctx, sess, item.FolderName)
		if err != nil {
			fail(fmt.Errorf("create album: %w", err))
			return
		}
		albumID = album.ID
		albumURL = album.ProductURL
	}

	s.queue.SetAlbum(ctx, item.ID, albumID, albumURL)

	var addResult *remote.AddResult
	if len(mediaItemIDs) > 0 {
		addResult, err = s.photos.AddMediaItems(ctx, sess, albumID, mediaItemIDs)
		if err != nil {
			if errors.Is(err, remote.ErrNotFoundOrGone) {
				// The album vanished remotely; record it so the next
				// workflow for this folder falls back to CREATE.
				if markErr := s.folderAlbums.MarkAlbumDeleted(ctx, userKey, item.RemoteFolderID); markErr != nil {
					log.Printf("[AlbumQueue] Failed to mark album deleted for %s: %v", item.RemoteFolderID, markErr)
				}
			}
			fail(fmt.Errorf("add media items: %w", err))
			return
		}
	} else {
		addResult = &remote.AddResult{}
	}

	// Step 4: persist the mapping and finish. Individual rejects do not fail
	// the workflow; they are surfaced in the item's error field.
	completionErr := ""
	if len(addResult.Rejected) > 0 {
		rejectedIDs := make([]string, 0, len(addResult.Rejected))
		for _, rej := range addResult.Rejected {
			rejectedIDs = append(rejectedIDs, rej.MediaItemID)
		}
		s.items.MarkFailedAdd(ctx, item.ID, rejectedIDs, "rejected by album add call")
		completionErr = fmt.Sprintf("%d media items rejected by album: %s",
			len(rejectedIDs), strings.Join(rejectedIDs, ", "))
	}

	if err := s.folderAlbums.Upsert(ctx, &models.FolderAlbumMapping{
		UserKey:           userKey,
		RemoteFolderID:    item.RemoteFolderID,
		FolderName:        item.FolderName,
		AlbumID:           albumID,
		AlbumURL:          albumURL,
		TotalItemsInAlbum: len(mediaItemIDs),
	}); err != nil {
		log.Printf("[AlbumQueue] Failed to persist mapping for %s: %v", item.RemoteFolderID, err)
	}

	if err := s.queue.MarkCompleted(ctx, item.ID, completionErr); err != nil {
		log.Printf("[AlbumQueue] Failed to record completion for %s: %v", item.ID, err)
	}
	s.hub.Complete(opID)
	if s.metrics != nil {
		s.metrics.AlbumsTotal.WithLabelValues("completed").Inc()
	}
	log.Printf("[AlbumQueue] Workflow %s completed: album %s with %d items (%d rejected)",
		item.ID, albumID, len(mediaItemIDs), len(addResult.Rejected))
}

// GetQueue lists a user's album workflows.
func (s *AlbumQueueService) GetQueue(ctx context.Context, userKey, status string, limit, offset int) ([]models.AlbumQueueItem, error) {
	return s.queue.List(ctx, userKey, status, limit, offset)
}

// GetStats returns aggregate status counts.
func (s *AlbumQueueService) GetStats(ctx context.Context, userKey string) (*models.AlbumQueueStats, error) {
	return s.queue.Stats(ctx, userKey)
}

// Requeue resets a failed or cancelled workflow back to PENDING.
func (s *AlbumQueueService) Requeue(ctx context.Context, userKey, itemID string) (bool, error) {
	return s.queue.Requeue(ctx, userKey, itemID)
}

// ClearFinished removes terminal workflows on request.
func (s *AlbumQueueService) ClearFinished(ctx context.Context, userKey string) (int64, error) {
	return s.queue.ClearFinished(ctx, userKey)
}

// ListMappings returns the user's folder-to-album mappings, newest first.
func (s *AlbumQueueService) ListMappings(ctx context.Context, userKey string) ([]models.FolderAlbumMapping, error) {
	return s.folderAlbums.ListForUser(ctx, userKey)
}
