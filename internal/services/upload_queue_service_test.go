package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photosync-backend/internal/cache"
	"photosync-backend/internal/models"
	"photosync-backend/internal/operations"
)

type uploadFixture struct {
	queue   *memUploadQueue
	records *memRecords
	drive   *fakeDrive
	photos  *fakePhotos
	hub     *operations.Hub
	service *UploadQueueService
}

func newUploadFixture() *uploadFixture {
	queue := newMemUploadQueue()
	records := newMemRecords()
	drive := newFakeDrive()
	photos := newFakePhotos()
	hub := operations.NewHub()
	syncStatus := NewSyncStatusService(cache.NewFolderCache(), drive, records, newMemRollups(), 20, nil)
	service := NewUploadQueueService(queue, records, drive, photos, syncStatus, hub, nil, stubProvider{}, NewRunnerRegistry())
	return &uploadFixture{
		queue:   queue,
		records: records,
		drive:   drive,
		photos:  photos,
		hub:     hub,
		service: service,
	}
}

func descriptors(ids ...string) []models.FileDescriptor {
	out := make([]models.FileDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.FileDescriptor{RemoteFileID: id, FileName: id + ".jpg", MimeType: "image/jpeg"})
	}
	return out
}

func waitForLoop(t *testing.T, f *uploadFixture, userKey string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !f.service.IsProcessing(userKey)
	}, 5*time.Second, 10*time.Millisecond, "processing loop did not finish")
}

func TestUploadQueue_AddToQueue_DedupReasons(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	// Seed one active item and one synced file.
	_, err := f.service.AddToQueue(ctx, "user1", descriptors("queued-file"))
	require.NoError(t, err)
	require.NoError(t, f.records.Upsert(ctx, "user1", "synced-file", "media-1", "synced.jpg"))

	result, err := f.service.AddToQueue(ctx, "user1", []models.FileDescriptor{
		{RemoteFileID: "queued-file", FileName: "a.jpg"},
		{RemoteFileID: "synced-file", FileName: "b.jpg"},
		{RemoteFileID: "", FileName: "c.jpg"},
		{RemoteFileID: "fresh-file", FileName: "d.jpg"},
	})
	require.NoError(t, err)

	require.Len(t, result.Added, 1)
	assert.Equal(t, "fresh-file", result.Added[0].RemoteFileID)
	assert.Equal(t, models.UploadStatusPending, result.Added[0].Status)

	require.Len(t, result.Skipped, 3)
	reasons := make(map[string]string)
	for _, s := range result.Skipped {
		reasons[s.RemoteFileID] = s.Reason
	}
	assert.Equal(t, "already queued", reasons["queued-file"])
	assert.Equal(t, "already synced", reasons["synced-file"])
	assert.Equal(t, "invalid descriptor", reasons[""])
}

func TestUploadQueue_AddToQueue_RequiresUserKey(t *testing.T) {
	f := newUploadFixture()
	_, err := f.service.AddToQueue(context.Background(), "", descriptors("x"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUploadQueue_ProcessAll_StatsAndRecords(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	f.drive.failDownload["file-b"] = true

	_, err := f.service.AddToQueue(ctx, "user1", descriptors("file-a", "file-b", "file-c"))
	require.NoError(t, err)

	started, err := f.service.StartProcessing(ctx, "user1", testTokens())
	require.NoError(t, err)
	require.True(t, started)

	waitForLoop(t, f, "user1")

	stats, err := f.service.GetStats(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, 3, stats.Total)

	// Completed files have durable upload records; the failed one does not.
	for _, id := range []string{"file-a", "file-c"} {
		exists, err := f.records.Exists(ctx, "user1", id)
		require.NoError(t, err)
		assert.True(t, exists, "upload record missing for %s", id)
	}
	exists, err := f.records.Exists(ctx, "user1", "file-b")
	require.NoError(t, err)
	assert.False(t, exists)

	// The failed item keeps its error for later requeue.
	failed, err := f.service.GetQueue(ctx, "user1", models.UploadStatusFailed, 0, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "file-b", failed[0].RemoteFileID)
	require.NotNil(t, failed[0].LastError)
}

func TestUploadQueue_StartProcessing_SecondStartIsNoOp(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	// Many items keep the loop alive long enough to observe the running slot.
	ids := make([]string, 200)
	for i := range ids {
		ids[i] = fmt.Sprintf("file-%03d", i)
	}
	_, err := f.service.AddToQueue(ctx, "user1", descriptors(ids...))
	require.NoError(t, err)

	// Hold the loop on its first transfer so the slot is observably taken.
	block := make(chan struct{})
	f.drive.blockDownload = block

	started, err := f.service.StartProcessing(ctx, "user1", testTokens())
	require.NoError(t, err)
	require.True(t, started)

	again, err := f.service.StartProcessing(ctx, "user1", testTokens())
	require.NoError(t, err)
	assert.False(t, again, "second start must not launch a second loop")

	close(block)
	waitForLoop(t, f, "user1")

	// Every item processed exactly once.
	assert.Equal(t, len(ids), f.photos.uploadCount())
}

func TestUploadQueue_StopProcessing_DrainsPending(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("stop-file-%02d", i)
	}
	_, err := f.service.AddToQueue(ctx, "user1", descriptors(ids...))
	require.NoError(t, err)

	// Gate the first transfer so the stop request lands mid-loop.
	block := make(chan struct{})
	f.drive.blockDownload = block

	started, err := f.service.StartProcessing(ctx, "user1", testTokens())
	require.NoError(t, err)
	require.True(t, started)

	assert.True(t, f.service.StopProcessing("user1"))
	close(block)
	waitForLoop(t, f, "user1")

	stats, err := f.service.GetStats(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Pending, "no pending items may survive a stop")
	assert.Equal(t, 0, stats.Uploading)

	// Drained items carry the stop reason and are requeueable.
	failed, err := f.service.GetQueue(ctx, "user1", models.UploadStatusFailed, 0, 0)
	require.NoError(t, err)
	drained := 0
	for _, it := range failed {
		if it.LastError != nil && *it.LastError == StopReason {
			drained++
		}
	}
	assert.Greater(t, drained, 0, "expected at least one item drained with the stop reason")

	// The slot is released: a new start succeeds.
	started, err = f.service.StartProcessing(ctx, "user1", testTokens())
	require.NoError(t, err)
	assert.True(t, started)
	waitForLoop(t, f, "user1")
}

func TestUploadQueue_StopWithoutLoopIsFalse(t *testing.T) {
	f := newUploadFixture()
	assert.False(t, f.service.StopProcessing("nobody"))
}

func TestUploadQueue_Requeue_FailedOnly(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	f.drive.failDownload["bad"] = true
	_, err := f.service.AddToQueue(ctx, "user1", descriptors("bad", "good"))
	require.NoError(t, err)

	started, err := f.service.StartProcessing(ctx, "user1", testTokens())
	require.NoError(t, err)
	require.True(t, started)
	waitForLoop(t, f, "user1")

	failed, err := f.service.GetQueue(ctx, "user1", models.UploadStatusFailed, 0, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	ok, err := f.service.Requeue(ctx, "user1", failed[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Completed items cannot be requeued.
	completed, err := f.service.GetQueue(ctx, "user1", models.UploadStatusCompleted, 0, 0)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	ok, err = f.service.Requeue(ctx, "user1", completed[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := f.service.GetStats(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
}

func TestUploadQueue_ClearFinished(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	f.drive.failDownload["bad"] = true
	_, err := f.service.AddToQueue(ctx, "user1", descriptors("bad", "good", "untouched"))
	require.NoError(t, err)

	started, err := f.service.StartProcessing(ctx, "user1", testTokens())
	require.NoError(t, err)
	require.True(t, started)
	waitForLoop(t, f, "user1")

	removed, err := f.service.ClearFinished(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	stats, err := f.service.GetStats(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestUploadQueue_UsersAreIsolated(t *testing.T) {
	f := newUploadFixture()
	ctx := context.Background()

	_, err := f.service.AddToQueue(ctx, "user1", descriptors("shared-id"))
	require.NoError(t, err)

	// The same remote file id is independent per user.
	result, err := f.service.AddToQueue(ctx, "user2", descriptors("shared-id"))
	require.NoError(t, err)
	assert.Len(t, result.Added, 1)

	started, err := f.service.StartProcessing(ctx, "user1", testTokens())
	require.NoError(t, err)
	require.True(t, started)
	waitForLoop(t, f, "user1")

	stats2, err := f.service.GetStats(ctx, "user2")
	require.NoError(t, err)
	assert.Equal(t, 1, stats2.Pending, "user2's queue must be untouched by user1's loop")
}
