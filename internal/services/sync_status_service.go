package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"photosync-backend/internal/auth"
	"photosync-backend/internal/cache"
	"photosync-backend/internal/metrics"
	"photosync-backend/internal/models"
	"photosync-backend/internal/remote"
)

// SyncStatusService is the remote cache & sync-status engine: it owns the
// paginated folder snapshots and the recursive synced/unsynced rollups.
type SyncStatusService struct {
	cache   *cache.FolderCache
	drive   DriveAPI
	records UploadRecordStore
	rollups SyncStatusStore

	// snapshots older than this are considered stale by EnsureFresh
	staleAfter time.Duration
	maxDepth   int
	metrics    *metrics.Metrics
}

func NewSyncStatusService(
	folderCache *cache.FolderCache,
	drive DriveAPI,
	records UploadRecordStore,
	rollups SyncStatusStore,
	maxDepth int,
	m *metrics.Metrics,
) *SyncStatusService {
	if maxDepth <= 0 {
		maxDepth = 20
	}
	return &SyncStatusService{
		cache:      folderCache,
		drive:      drive,
		records:    records,
		rollups:    rollups,
		staleAfter: 5 * time.Minute,
		maxDepth:   maxDepth,
		metrics:    m,
	}
}

// IsFolderCached reports whether a folder has a live snapshot.
func (s *SyncStatusService) IsFolderCached(userKey, folderID string) bool {
	return s.cache.IsCached(userKey, folderID)
}

// SyncFolderToCache performs a full paginated enumeration of the folder and
// overwrites its cached entry. The stale entry is cleared first so readers
// never see a mixed stale/fresh page.
func (s *SyncStatusService) SyncFolderToCache(ctx context.Context, sess *auth.Session, userKey, folderID string) (*cache.CachedFolder, error) {
	meta, err := s.drive.GetFile(ctx, sess, folderID)
	if err != nil {
		return nil, fmt.Errorf("resolve folder %s: %w", folderID, err)
	}

	var files, subfolders []remote.File
	pageToken := ""
	for {
		listing, err := s.drive.ListFolder(ctx, sess, folderID, pageToken)
		if err != nil {
			return nil, fmt.Errorf("enumerate folder %s: %w", folderID, err)
		}
		for _, f := range listing.Files {
			if f.IsFolder() {
				subfolders = append(subfolders, f)
			} else {
				files = append(files, f)
			}
		}
		if listing.NextPageToken == "" {
			break
		}
		pageToken = listing.NextPageToken
	}

	parentID := ""
	if len(meta.Parents) > 0 {
		parentID = meta.Parents[0]
	}

	entry := &cache.CachedFolder{
		FolderID:   folderID,
		Name:       meta.Name,
		ParentID:   parentID,
		Files:      files,
		Subfolders: subfolders,
		LastSynced: time.Now(),
		TotalCount: len(files),
	}

	s.cache.Invalidate(userKey, folderID)
	s.cache.Put(userKey, entry)

	if s.metrics != nil {
		s.metrics.FoldersSynced.Inc()
	}
	log.Printf("[Cache] Synced folder %q (%s): %d files, %d subfolders",
		meta.Name, folderID, len(files), len(subfolders))
	return entry, nil
}

// EnsureFresh returns the cached snapshot, resyncing first when it is missing
// or older than the staleness window.
func (s *SyncStatusService) EnsureFresh(ctx context.Context, sess *auth.Session, userKey, folderID string) (*cache.CachedFolder, error) {
	if entry, ok := s.cache.Get(userKey, folderID); ok {
		if time.Since(entry.LastSynced) < s.staleAfter {
			return entry, nil
		}
	}
	return s.SyncFolderToCache(ctx, sess, userKey, folderID)
}

// CachedFolderFiles returns every file in the cached snapshot.
func (s *SyncStatusService) CachedFolderFiles(userKey, folderID string) ([]remote.File, error) {
	entry, ok := s.cache.Get(userKey, folderID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotCached, folderID)
	}
	return entry.Files, nil
}

// GetCachedFolderPage is a pure read over the cached snapshot.
func (s *SyncStatusService) GetCachedFolderPage(userKey, folderID string, offset, limit int) (*cache.FolderPage, error) {
	page, ok := s.cache.Page(userKey, folderID, offset, limit)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotCached, folderID)
	}
	return page, nil
}

// FileSyncStatus reports whether a single file is synced: a file is synced
// iff an upload record exists for it.
func (s *SyncStatusService) FileSyncStatus(ctx context.Context, userKey, fileID string) (*models.SyncStatusDetail, error) {
	exists, err := s.records.Exists(ctx, userKey, fileID)
	if err != nil {
		return nil, err
	}
	detail := &models.SyncStatusDetail{
		Status:      models.SyncStatusUnsynced,
		TotalCount:  1,
		LastChecked: time.Now(),
	}
	if exists {
		detail.Status = models.SyncStatusSynced
		detail.SyncedCount = 1
		detail.Percentage = 100
	}
	return detail, nil
}

// GetCachedFolderSyncStatus returns the stored rollup without recomputing.
// Nil means the folder has never been enumerated and has no status yet.
func (s *SyncStatusService) GetCachedFolderSyncStatus(ctx context.Context, userKey, folderID string) (*models.SyncStatusDetail, error) {
	return s.rollups.Get(ctx, userKey, folderID)
}

// CalculateFolderSyncStatus computes the folder's rollup. With force, the
// folder is hard-resynced and the rollup recomputed even downward; otherwise
// a stored rollup is served as-is.
func (s *SyncStatusService) CalculateFolderSyncStatus(ctx context.Context, sess *auth.Session, userKey, folderID string, force bool) (*models.SyncStatusDetail, error) {
	if !force {
		if stored, err := s.rollups.Get(ctx, userKey, folderID); err != nil {
			return nil, err
		} else if stored != nil {
			return stored, nil
		}
	}

	if force || !s.cache.IsCached(userKey, folderID) {
		if _, err := s.SyncFolderToCache(ctx, sess, userKey, folderID); err != nil {
			return nil, err
		}
	}
	return s.recompute(ctx, userKey, folderID, force)
}

// recompute derives the folder's rollup from its cached snapshot, the upload
// records of its direct files, and the stored rollups of its subfolders.
// Subfolders never enumerated contribute nothing (no "empty" badges for
// folders never visited). Unless forced, a recompute never lowers the stored
// percentage.
func (s *SyncStatusService) recompute(ctx context.Context, userKey, folderID string, force bool) (*models.SyncStatusDetail, error) {
	entry, ok := s.cache.Get(userKey, folderID)
	if !ok {
		// No snapshot to recompute from; keep whatever is stored.
		return s.rollups.Get(ctx, userKey, folderID)
	}

	fileIDs := make([]string, 0, len(entry.Files))
	for _, f := range entry.Files {
		fileIDs = append(fileIDs, f.ID)
	}
	syncedSet, err := s.records.SyncedSet(ctx, userKey, fileIDs)
	if err != nil {
		return nil, err
	}

	synced := 0
	for _, id := range fileIDs {
		if syncedSet[id] {
			synced++
		}
	}
	total := len(fileIDs)

	for _, sub := range entry.Subfolders {
		subRollup, err := s.rollups.Get(ctx, userKey, sub.ID)
		if err != nil {
			return nil, err
		}
		if subRollup == nil {
			continue
		}
		synced += subRollup.SyncedCount
		total += subRollup.TotalCount
	}

	detail := &models.SyncStatusDetail{
		SyncedCount: synced,
		TotalCount:  total,
		LastChecked: time.Now(),
	}
	if total > 0 {
		detail.Percentage = int(math.Round(float64(synced) / float64(total) * 100))
	}
	switch {
	case total > 0 && synced == total:
		detail.Status = models.SyncStatusSynced
	case synced == 0:
		detail.Status = models.SyncStatusUnsynced
	default:
		detail.Status = models.SyncStatusPartial
	}

	if !force {
		old, err := s.rollups.Get(ctx, userKey, folderID)
		if err != nil {
			return nil, err
		}
		if old != nil && old.Percentage > detail.Percentage {
			// Uploads only ever add records; a lower number here means the
			// cache snapshot grew. Keep the stored value until a forced
			// refresh confirms the downgrade.
			return old, nil
		}
	}

	if err := s.rollups.Upsert(ctx, userKey, folderID, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// InvalidateForFile recomputes the rollup of every ancestor of a file after
// its upload completed. A cycle guard bounds the walk even though the domain
// is expected to be a tree.
func (s *SyncStatusService) InvalidateForFile(ctx context.Context, userKey, fileID string) {
	folderID, ok := s.cache.FolderOfFile(userKey, fileID)
	if !ok {
		// File was enqueued without its folder ever being enumerated.
		return
	}

	visited := make(map[string]bool)
	for folderID != "" && !visited[folderID] {
		visited[folderID] = true
		if _, err := s.recompute(ctx, userKey, folderID, false); err != nil {
			log.Printf("[SyncStatus] Failed to recompute rollup for folder %s: %v", folderID, err)
			return
		}
		parent, ok := s.cache.ParentOf(userKey, folderID)
		if !ok {
			return
		}
		folderID = parent
	}
}

// RecursivelyRefresh walks the whole subtree on demand, resyncing stale
// folders and recomputing rollups bottom-up. It yields between folders so a
// deep tree cannot starve other users' requests.
func (s *SyncStatusService) RecursivelyRefresh(ctx context.Context, sess *auth.Session, userKey, folderID string) (*models.RecursiveRefreshResult, error) {
	start := time.Now()
	visited := make(map[string]bool)
	processed := 0

	root, err := s.refreshSubtree(ctx, sess, userKey, folderID, visited, 0, &processed)
	if err != nil {
		return nil, err
	}

	return &models.RecursiveRefreshResult{
		Root:           *root,
		ProcessedCount: processed,
		DurationMS:     time.Since(start).Milliseconds(),
	}, nil
}

func (s *SyncStatusService) refreshSubtree(ctx context.Context, sess *auth.Session, userKey, folderID string, visited map[string]bool, depth int, processed *int) (*models.FolderSyncTree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if visited[folderID] {
		return nil, fmt.Errorf("folder cycle detected at %s", folderID)
	}
	if depth > s.maxDepth {
		return nil, fmt.Errorf("folder nesting exceeds depth bound %d at %s", s.maxDepth, folderID)
	}
	visited[folderID] = true

	entry, err := s.EnsureFresh(ctx, sess, userKey, folderID)
	if err != nil {
		return nil, err
	}

	node := &models.FolderSyncTree{
		RemoteFolderID: folderID,
		FolderName:     entry.Name,
	}

	// Children first so the parent rollup aggregates fresh values.
	for _, sub := range entry.Subfolders {
		child, err := s.refreshSubtree(ctx, sess, userKey, sub.ID, visited, depth+1, processed)
		if err != nil {
			return nil, err
		}
		node.Subfolders = append(node.Subfolders, *child)
	}

	detail, err := s.recompute(ctx, userKey, folderID, true)
	if err != nil {
		return nil, err
	}
	if detail != nil {
		node.Detail = *detail
	}
	*processed++
	return node, nil
}
