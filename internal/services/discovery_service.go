package services

import (
	"context"
	"fmt"
	"log"

	"photosync-backend/internal/auth"
	"photosync-backend/internal/models"
	"photosync-backend/internal/operations"
	"photosync-backend/internal/remote"
)

// DiscoveryService walks a folder tree, syncing every folder to the cache,
// then bulk-enqueues all discovered files. The whole walk is one Operation:
// discovery reports 0-50%, bulk enqueue 50-100%.
type DiscoveryService struct {
	syncStatus *SyncStatusService
	uploads    *UploadQueueService
	hub        *operations.Hub
	provider   auth.SessionProvider
	maxDepth   int
}

func NewDiscoveryService(
	syncStatus *SyncStatusService,
	uploads *UploadQueueService,
	hub *operations.Hub,
	provider auth.SessionProvider,
	maxDepth int,
) *DiscoveryService {
	if maxDepth <= 0 {
		maxDepth = 20
	}
	return &DiscoveryService{
		syncStatus: syncStatus,
		uploads:    uploads,
		hub:        hub,
		provider:   provider,
		maxDepth:   maxDepth,
	}
}

type discoveredFolder struct {
	ID   string
	Name string
}

// EnqueueAll starts the recursive walk in the background and returns the
// tracking operation's id immediately.
func (s *DiscoveryService) EnqueueAll(ctx context.Context, userKey string, tokens auth.TokenSet, rootFolderID string) (string, error) {
	if userKey == "" || rootFolderID == "" {
		return "", fmt.Errorf("%w: user key and root folder id required", ErrValidation)
	}

	opID := s.hub.Create("enqueue_all", "Enqueue folder tree", operations.CreateOpts{
		Total: 100,
		Metadata: map[string]interface{}{
			"user_key":       userKey,
			"root_folder_id": rootFolderID,
		},
	})

	sess := auth.NewSession(s.provider, tokens)
	go s.run(userKey, sess, rootFolderID, opID)
	return opID, nil
}

func (s *DiscoveryService) run(userKey string, sess *auth.Session, rootFolderID, opID string) {
	ctx := remote.WithRetryNotifier(context.Background(), func(message string, attempt, maxAttempts int) {
		s.hub.MarkRetrying(opID, message, attempt, maxAttempts)
	})

	// Phase 1 (0-50%): recursive discovery. The total is unknown while
	// walking, so progress creeps toward 50 without reaching it.
	visited := make(map[string]bool)
	var folders []discoveredFolder

	err := s.walk(ctx, sess, userKey, rootFolderID, visited, 0, &folders, opID)
	if err != nil {
		log.Printf("[Discovery] Walk failed at root %s: %v", rootFolderID, err)
		s.hub.Fail(opID, err.Error())
		return
	}

	s.hub.UpdateProgress(opID, 50, 100)
	log.Printf("[Discovery] Discovered %d folders under %s for user %s",
		len(folders), rootFolderID, userKey)

	// Phase 2 (50-100%): bulk-enqueue every cached file per folder.
	totalAdded, totalSkipped := 0, 0
	for i, folder := range folders {
		files, err := s.syncStatus.CachedFolderFiles(userKey, folder.ID)
		if err != nil {
			// The folder was synced during discovery; a miss here means the
			// cache was cleared under us. Skip rather than abort the batch.
			log.Printf("[Discovery] Cache miss for folder %s during enqueue: %v", folder.ID, err)
			continue
		}

		descriptors := make([]models.FileDescriptor, 0, len(files))
		for _, f := range files {
			descriptors = append(descriptors, models.FileDescriptor{
				RemoteFileID: f.ID,
				FileName:     f.Name,
				MimeType:     f.MimeType,
				FileSize:     f.Size,
			})
		}

		if len(descriptors) > 0 {
			result, err := s.uploads.AddToQueue(ctx, userKey, descriptors)
			if err != nil {
				s.hub.Fail(opID, fmt.Sprintf("enqueue folder %q: %v", folder.Name, err))
				return
			}
			totalAdded += len(result.Added)
			totalSkipped += len(result.Skipped)
		}

		s.hub.SetMetadata(opID, map[string]interface{}{
			"message": fmt.Sprintf("Enqueueing %q", folder.Name),
		})
		s.hub.UpdateProgress(opID, 50+(50*(i+1))/len(folders), 100)
	}

	s.hub.SetMetadata(opID, map[string]interface{}{
		"folders_visited": len(folders),
		"files_added":     totalAdded,
		"files_skipped":   totalSkipped,
	})
	s.hub.Complete(opID)
	log.Printf("[Discovery] Enqueue-all finished for user %s: %d added, %d skipped across %d folders",
		userKey, totalAdded, totalSkipped, len(folders))
}

// walk visits folders depth-first. The visited set tolerates unexpected
// cycles; depth is bounded even though the domain is expected to be a tree.
func (s *DiscoveryService) walk(ctx context.Context, sess *auth.Session, userKey, folderID string, visited map[string]bool, depth int, folders *[]discoveredFolder, opID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if visited[folderID] {
		return nil
	}
	if depth > s.maxDepth {
		log.Printf("[Discovery] Depth bound %d reached at folder %s, not descending", s.maxDepth, folderID)
		return nil
	}
	visited[folderID] = true

	entry, err := s.syncStatus.SyncFolderToCache(ctx, sess, userKey, folderID)
	if err != nil {
		return fmt.Errorf("sync folder %s: %w", folderID, err)
	}

	*folders = append(*folders, discoveredFolder{ID: folderID, Name: entry.Name})

	s.hub.SetMetadata(opID, map[string]interface{}{
		"message": fmt.Sprintf("Discovering %q", entry.Name),
	})
	// Creep toward 50%: each folder closes part of the remaining gap.
	current := 50 - 50/(len(*folders)+1)
	s.hub.UpdateProgress(opID, current, 100)

	for _, sub := range entry.Subfolders {
		if err := s.walk(ctx, sess, userKey, sub.ID, visited, depth+1, folders, opID); err != nil {
			return err
		}
	}
	return nil
}
