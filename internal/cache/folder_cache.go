// Package cache holds the process-wide snapshot of remote folder contents.
// Entries are written only by a full resync and rebuilt lazily after restart.
package cache

import (
	"sync"
	"time"

	"photosync-backend/internal/remote"
)

// CachedFolder is the paginatable snapshot of one remote folder.
type CachedFolder struct {
	FolderID   string        `json:"folder_id"`
	Name       string        `json:"name"`
	ParentID   string        `json:"parent_id,omitempty"`
	Files      []remote.File `json:"files"`
	Subfolders []remote.File `json:"subfolders"`
	LastSynced time.Time     `json:"last_synced"`
	TotalCount int           `json:"total_count"`
}

// FolderPage is one offset/limit window over a cached folder's files.
type FolderPage struct {
	Files      []remote.File `json:"files"`
	Subfolders []remote.File `json:"subfolders,omitempty"`
	TotalCount int           `json:"total_count"`
	Offset     int           `json:"offset"`
	Limit      int           `json:"limit"`
	HasMore    bool          `json:"has_more"`
	LastSynced time.Time     `json:"last_synced"`
}

// FolderCache is the in-memory folder snapshot store, keyed per user.
// It also remembers each folder's parent so sync-status invalidation can
// walk the ancestor chain without remote calls.
type FolderCache struct {
	mu          sync.RWMutex
	entries     map[string]map[string]*CachedFolder // userKey -> folderID -> entry
	parents     map[string]map[string]string        // userKey -> folderID -> parent folderID
	fileParents map[string]map[string]string        // userKey -> fileID -> containing folderID
}

func NewFolderCache() *FolderCache {
	return &FolderCache{
		entries:     make(map[string]map[string]*CachedFolder),
		parents:     make(map[string]map[string]string),
		fileParents: make(map[string]map[string]string),
	}
}

// Get returns a copy of the cached entry, if present.
func (c *FolderCache) Get(userKey, folderID string) (*CachedFolder, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[userKey][folderID]
	if !ok {
		return nil, false
	}
	cp := *entry
	cp.Files = append([]remote.File(nil), entry.Files...)
	cp.Subfolders = append([]remote.File(nil), entry.Subfolders...)
	return &cp, true
}

// IsCached reports whether the folder has a live snapshot.
func (c *FolderCache) IsCached(userKey, folderID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[userKey][folderID]
	return ok
}

// Put overwrites the folder's snapshot and records parent links for the
// folder itself and all of its subfolders.
func (c *FolderCache) Put(userKey string, entry *CachedFolder) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[userKey] == nil {
		c.entries[userKey] = make(map[string]*CachedFolder)
	}
	if c.parents[userKey] == nil {
		c.parents[userKey] = make(map[string]string)
	}
	if c.fileParents[userKey] == nil {
		c.fileParents[userKey] = make(map[string]string)
	}

	cp := *entry
	cp.Files = append([]remote.File(nil), entry.Files...)
	cp.Subfolders = append([]remote.File(nil), entry.Subfolders...)
	cp.TotalCount = len(cp.Files)
	c.entries[userKey][entry.FolderID] = &cp

	if entry.ParentID != "" {
		c.parents[userKey][entry.FolderID] = entry.ParentID
	}
	for _, sub := range entry.Subfolders {
		c.parents[userKey][sub.ID] = entry.FolderID
	}
	for _, f := range entry.Files {
		c.fileParents[userKey][f.ID] = entry.FolderID
	}
}

// Invalidate drops the folder's snapshot so readers never see a mixed
// stale/fresh page during a hard refresh.
func (c *FolderCache) Invalidate(userKey, folderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries[userKey], folderID)
}

// Page returns one window of the cached folder's files. The second return is
// false when the folder has no snapshot.
func (c *FolderCache) Page(userKey, folderID string, offset, limit int) (*FolderPage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[userKey][folderID]
	if !ok {
		return nil, false
	}

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 50
	}

	total := len(entry.Files)
	end := offset + limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	page := &FolderPage{
		Files:      append([]remote.File(nil), entry.Files[offset:end]...),
		TotalCount: total,
		Offset:     offset,
		Limit:      limit,
		HasMore:    end < total,
		LastSynced: entry.LastSynced,
	}
	if offset == 0 {
		page.Subfolders = append([]remote.File(nil), entry.Subfolders...)
	}
	return page, true
}

// ParentOf returns the known parent of a folder, if the folder was seen
// during any sync.
func (c *FolderCache) ParentOf(userKey, folderID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	parent, ok := c.parents[userKey][folderID]
	return parent, ok
}

// FolderOfFile returns the folder a file was last seen in, if any sync has
// enumerated it.
func (c *FolderCache) FolderOfFile(userKey, fileID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	folder, ok := c.fileParents[userKey][fileID]
	return folder, ok
}

// ClearUser drops all cached state for one user.
func (c *FolderCache) ClearUser(userKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userKey)
	delete(c.parents, userKey)
	delete(c.fileParents, userKey)
}
