package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"photosync-backend/internal/auth"
	"photosync-backend/internal/metrics"
	"photosync-backend/internal/models"
	"photosync-backend/internal/operations"
	"photosync-backend/internal/remote"
)

// StopReason is recorded on pending items drained by a stop request.
const StopReason = "stopped by user"

// UploadQueueService manages the per-file transfer pipeline: durable
// enqueueing with dedup, a FIFO processing loop per user, and the transfer
// primitive the album workflow reuses.
type UploadQueueService struct {
	queue      UploadQueueStore
	records    UploadRecordStore
	drive      DriveAPI
	photos     PhotosAPI
	syncStatus *SyncStatusService
	hub        *operations.Hub
	metrics    *metrics.Metrics
	provider   auth.SessionProvider
	runners    *RunnerRegistry
}

func NewUploadQueueService(
	queue UploadQueueStore,
	records UploadRecordStore,
	drive DriveAPI,
	photos PhotosAPI,
	syncStatus *SyncStatusService,
	hub *operations.Hub,
	m *metrics.Metrics,
	provider auth.SessionProvider,
	runners *RunnerRegistry,
) *UploadQueueService {
	return &UploadQueueService{
		queue:      queue,
		records:    records,
		drive:      drive,
		photos:     photos,
		syncStatus: syncStatus,
		hub:        hub,
		metrics:    m,
		provider:   provider,
		runners:    runners,
	}
}

// AddToQueue enqueues file descriptors, deduplicating against active queue
// items and already-synced files. A bad descriptor is skipped, never fatal
// to the batch.
func (s *UploadQueueService) AddToQueue(ctx context.Context, userKey string, files []models.FileDescriptor) (*models.EnqueueResult, error) {
	if userKey == "" {
		return nil, fmt.Errorf("%w: user key required", ErrValidation)
	}

	result := &models.EnqueueResult{
		Added:   []models.QueueItem{},
		Skipped: []models.SkippedFile{},
	}

	for _, f := range files {
		if f.RemoteFileID == "" {
			result.Skipped = append(result.Skipped, models.SkippedFile{
				RemoteFileID: f.RemoteFileID,
				Reason:       "invalid descriptor",
			})
			continue
		}

		active, err := s.queue.FindActive(ctx, userKey, f.RemoteFileID)
		if err != nil {
			log.Printf("[UploadQueue] Dedup lookup failed for %s: %v", f.RemoteFileID, err)
			result.Skipped = append(result.Skipped, models.SkippedFile{
				RemoteFileID: f.RemoteFileID,
				Reason:       "lookup failed: " + err.Error(),
			})
			continue
		}
		if active != nil {
			result.Skipped = append(result.Skipped, models.SkippedFile{
				RemoteFileID: f.RemoteFileID,
				Reason:       "already queued",
			})
			continue
		}

		synced, err := s.records.Exists(ctx, userKey, f.RemoteFileID)
		if err != nil {
			log.Printf("[UploadQueue] Sync lookup failed for %s: %v", f.RemoteFileID, err)
			result.Skipped = append(result.Skipped, models.SkippedFile{
				RemoteFileID: f.RemoteFileID,
				Reason:       "lookup failed: " + err.Error(),
			})
			continue
		}
		if synced {
			result.Skipped = append(result.Skipped, models.SkippedFile{
				RemoteFileID: f.RemoteFileID,
				Reason:       "already synced",
			})
			continue
		}

		item := &models.QueueItem{
			ID:           uuid.NewString(),
			UserKey:      userKey,
			RemoteFileID: f.RemoteFileID,
			FileName:     f.FileName,
			MimeType:     f.MimeType,
			FileSize:     f.FileSize,
			Status:       models.UploadStatusPending,
		}
		if err := s.queue.Insert(ctx, item); err != nil {
			log.Printf("[UploadQueue] Insert failed for %s: %v", f.RemoteFileID, err)
			result.Skipped = append(result.Skipped, models.SkippedFile{
				RemoteFileID: f.RemoteFileID,
				Reason:       "insert failed: " + err.Error(),
			})
			continue
		}
		result.Added = append(result.Added, *item)
	}

	log.Printf("[UploadQueue] Enqueued %d files, skipped %d for user %s",
		len(result.Added), len(result.Skipped), userKey)
	return result, nil
}

// StartProcessing launches the user's FIFO processing loop. Returns false
// when a loop is already running (the call is then a no-op, never a
// duplicate transfer).
func (s *UploadQueueService) StartProcessing(ctx context.Context, userKey string, tokens auth.TokenSet) (bool, error) {
	if userKey == "" {
		return false, fmt.Errorf("%w: user key required", ErrValidation)
	}

	state, ok := s.runners.acquire(userKey, queueKindUpload)
	if !ok {
		log.Printf("[UploadQueue] Processing already running for user %s", userKey)
		return false, nil
	}

	if s.metrics != nil {
		s.metrics.QueueStarts.WithLabelValues("upload").Inc()
	}

	sess := auth.NewSession(s.provider, tokens)
	go s.processLoop(userKey, sess, state)
	return true, nil
}

// StopProcessing sets the cooperative stop flag. The item mid-transfer is
// allowed to finish; remaining pending items are drained at the next
// iteration boundary.
func (s *UploadQueueService) StopProcessing(userKey string) bool {
	return s.runners.requestStop(userKey, queueKindUpload)
}

// IsProcessing reports whether the user's loop currently holds its slot.
func (s *UploadQueueService) IsProcessing(userKey string) bool {
	return s.runners.isRunning(userKey, queueKindUpload)
}

func (s *UploadQueueService) processLoop(userKey string, sess *auth.Session, state *runnerState) {
	ctx := context.Background()
	defer s.runners.release(userKey, queueKindUpload)

	total := 0
	if stats, err := s.queue.Stats(ctx, userKey); err == nil {
		total = stats.Pending
	}

	opID := s.hub.Create("upload_queue", "Processing upload queue", operations.CreateOpts{
		Total:    total,
		Metadata: map[string]interface{}{"user_key": userKey},
	})
	ctx = remote.WithRetryNotifier(ctx, func(message string, attempt, maxAttempts int) {
		s.hub.MarkRetrying(opID, message, attempt, maxAttempts)
	})

	log.Printf("[UploadQueue] Loop started for user %s (%d pending)", userKey, total)

	processed := 0
	for {
		if state.stopRequested() {
			drained, err := s.queue.FailAllPending(ctx, userKey, StopReason)
			if err != nil {
				log.Printf("[UploadQueue] Failed to drain pending items for %s: %v", userKey, err)
			} else if drained > 0 {
				log.Printf("[UploadQueue] Stop requested: %d pending items drained for %s", drained, userKey)
			}
			break
		}

		item, err := s.queue.NextPending(ctx, userKey)
		if err != nil {
			log.Printf("[UploadQueue] Claim failed for %s: %v", userKey, err)
			break
		}
		if item == nil {
			break
		}

		s.hub.SetMetadata(opID, map[string]interface{}{"current_file": item.FileName})
		s.processItem(ctx, sess, userKey, item)

		processed++
		s.hub.UpdateProgress(opID, processed, -1)
	}

	s.hub.Complete(opID)
	log.Printf("[UploadQueue] Loop finished for user %s (%d processed)", userKey, processed)
}

// processItem transfers one claimed item. Failures are absorbed into the
// item's error field; the loop never aborts on a single item.
func (s *UploadQueueService) processItem(ctx context.Context, sess *auth.Session, userKey string, item *models.QueueItem) {
	file := remote.File{
		ID:       item.RemoteFileID,
		Name:     item.FileName,
		MimeType: item.MimeType,
		Size:     item.FileSize,
	}

	mediaItemID, err := s.TransferFile(ctx, sess, userKey, file)
	if err != nil {
		log.Printf("[UploadQueue] Transfer failed for %s (%s): %v", item.FileName, item.RemoteFileID, err)
		if markErr := s.queue.MarkFailed(ctx, item.ID, err.Error()); markErr != nil {
			log.Printf("[UploadQueue] Failed to record failure for %s: %v", item.ID, markErr)
		}
		if s.metrics != nil {
			s.metrics.UploadsTotal.WithLabelValues("failed").Inc()
		}
		return
	}

	if err := s.queue.MarkCompleted(ctx, item.ID, mediaItemID); err != nil {
		log.Printf("[UploadQueue] Failed to record completion for %s: %v", item.ID, err)
	}
	if s.metrics != nil {
		s.metrics.UploadsTotal.WithLabelValues("completed").Inc()
		if item.FileSize != nil {
			s.metrics.UploadBytes.Add(float64(*item.FileSize))
		}
	}
}

// TransferFile is the transfer primitive: download the Drive bytes, upload
// them to Photos, persist the upload record and invalidate the ancestor
// rollups. The album workflow calls this directly, bypassing the persisted
// queue.
func (s *UploadQueueService) TransferFile(ctx context.Context, sess *auth.Session, userKey string, file remote.File) (string, error) {
	content, err := s.drive.Download(ctx, sess, file.ID)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer content.Close()

	mediaItemID, err := s.photos.Upload(ctx, sess, file.Name, file.MimeType, content)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	if err := s.records.Upsert(ctx, userKey, file.ID, mediaItemID, file.Name); err != nil {
		// The remote upload succeeded; surface the store failure so the
		// item is retried rather than silently losing the mapping.
		return "", fmt.Errorf("persist upload record: %w", err)
	}

	s.syncStatus.InvalidateForFile(ctx, userKey, file.ID)
	return mediaItemID, nil
}

// GetQueue lists a user's queue items.
func (s *UploadQueueService) GetQueue(ctx context.Context, userKey, status string, limit, offset int) ([]models.QueueItem, error) {
	return s.queue.List(ctx, userKey, status, limit, offset)
}

// GetStats returns aggregate status counts.
func (s *UploadQueueService) GetStats(ctx context.Context, userKey string) (*models.QueueStats, error) {
	return s.queue.Stats(ctx, userKey)
}

// Requeue resets a failed item to pending, clearing its error.
func (s *UploadQueueService) Requeue(ctx context.Context, userKey, itemID string) (bool, error) {
	return s.queue.Requeue(ctx, userKey, itemID)
}

// ClearFinished removes terminal items on request.
func (s *UploadQueueService) ClearFinished(ctx context.Context, userKey string) (int64, error) {
	return s.queue.ClearFinished(ctx, userKey)
}
