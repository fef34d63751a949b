package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photosync-backend/internal/remote"
)

func sampleFolder(id, parentID string, fileCount int) *CachedFolder {
	files := make([]remote.File, 0, fileCount)
	for i := 0; i < fileCount; i++ {
		files = append(files, remote.File{
			ID:       fmt.Sprintf("%s-file-%d", id, i),
			Name:     fmt.Sprintf("photo-%d.jpg", i),
			MimeType: "image/jpeg",
		})
	}
	return &CachedFolder{
		FolderID:   id,
		Name:       "Folder " + id,
		ParentID:   parentID,
		Files:      files,
		LastSynced: time.Now(),
	}
}

func TestFolderCache_PutGet(t *testing.T) {
	c := NewFolderCache()

	_, ok := c.Get("user1", "f1")
	assert.False(t, ok)

	c.Put("user1", sampleFolder("f1", "", 3))

	entry, ok := c.Get("user1", "f1")
	require.True(t, ok)
	assert.Equal(t, "f1", entry.FolderID)
	assert.Len(t, entry.Files, 3)
	assert.Equal(t, 3, entry.TotalCount)

	// Entries are per user.
	_, ok = c.Get("user2", "f1")
	assert.False(t, ok)
}

func TestFolderCache_GetReturnsCopy(t *testing.T) {
	c := NewFolderCache()
	c.Put("user1", sampleFolder("f1", "", 2))

	entry, _ := c.Get("user1", "f1")
	entry.Files[0].Name = "mutated"
	entry.Name = "mutated"

	fresh, _ := c.Get("user1", "f1")
	assert.Equal(t, "photo-0.jpg", fresh.Files[0].Name)
	assert.Equal(t, "Folder f1", fresh.Name)
}

func TestFolderCache_Invalidate(t *testing.T) {
	c := NewFolderCache()
	c.Put("user1", sampleFolder("f1", "", 1))

	c.Invalidate("user1", "f1")
	assert.False(t, c.IsCached("user1", "f1"))

	// Invalidating an unknown folder is a no-op.
	c.Invalidate("user1", "never-cached")
	c.Invalidate("ghost-user", "f1")
}

func TestFolderCache_PageWindows(t *testing.T) {
	c := NewFolderCache()
	folder := sampleFolder("f1", "", 25)
	folder.Subfolders = []remote.File{{ID: "sub1", Name: "Sub", MimeType: remote.FolderMimeType}}
	c.Put("user1", folder)

	// First page carries the subfolders.
	page, ok := c.Page("user1", "f1", 0, 10)
	require.True(t, ok)
	assert.Len(t, page.Files, 10)
	assert.Len(t, page.Subfolders, 1)
	assert.True(t, page.HasMore)
	assert.Equal(t, 25, page.TotalCount)

	// Middle page.
	page, _ = c.Page("user1", "f1", 10, 10)
	assert.Len(t, page.Files, 10)
	assert.Empty(t, page.Subfolders)
	assert.True(t, page.HasMore)

	// Final short page.
	page, _ = c.Page("user1", "f1", 20, 10)
	assert.Len(t, page.Files, 5)
	assert.False(t, page.HasMore)

	// Offset past the end yields an empty page, not an error.
	page, ok = c.Page("user1", "f1", 100, 10)
	require.True(t, ok)
	assert.Empty(t, page.Files)
	assert.False(t, page.HasMore)

	// Negative offset and zero limit fall back to defaults.
	page, _ = c.Page("user1", "f1", -5, 0)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, 50, page.Limit)
	assert.Len(t, page.Files, 25)

	_, ok = c.Page("user1", "missing", 0, 10)
	assert.False(t, ok)
}

func TestFolderCache_ParentLinks(t *testing.T) {
	c := NewFolderCache()

	root := sampleFolder("root", "", 1)
	root.Subfolders = []remote.File{{ID: "child", Name: "Child", MimeType: remote.FolderMimeType}}
	c.Put("user1", root)

	// Subfolder link recorded from the parent's listing.
	parent, ok := c.ParentOf("user1", "child")
	require.True(t, ok)
	assert.Equal(t, "root", parent)

	// A folder's own ParentID also records a link when present.
	c.Put("user1", sampleFolder("child", "root", 2))
	parent, ok = c.ParentOf("user1", "child")
	require.True(t, ok)
	assert.Equal(t, "root", parent)

	_, ok = c.ParentOf("user1", "root")
	assert.False(t, ok, "the root has no recorded parent")
}

func TestFolderCache_FolderOfFile(t *testing.T) {
	c := NewFolderCache()
	c.Put("user1", sampleFolder("f1", "", 2))

	folder, ok := c.FolderOfFile("user1", "f1-file-0")
	require.True(t, ok)
	assert.Equal(t, "f1", folder)

	_, ok = c.FolderOfFile("user1", "unknown-file")
	assert.False(t, ok)

	// File links survive snapshot invalidation so a late upload can still
	// find its folder.
	c.Invalidate("user1", "f1")
	folder, ok = c.FolderOfFile("user1", "f1-file-0")
	require.True(t, ok)
	assert.Equal(t, "f1", folder)
}

func TestFolderCache_ClearUser(t *testing.T) {
	c := NewFolderCache()
	c.Put("user1", sampleFolder("f1", "", 1))
	c.Put("user2", sampleFolder("f1", "", 1))

	c.ClearUser("user1")

	assert.False(t, c.IsCached("user1", "f1"))
	_, ok := c.FolderOfFile("user1", "f1-file-0")
	assert.False(t, ok)

	assert.True(t, c.IsCached("user2", "f1"), "other users' entries survive")
}
