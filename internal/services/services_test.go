package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"photosync-backend/internal/auth"
	"photosync-backend/internal/models"
	"photosync-backend/internal/remote"
)

// ---------------------------------------------------------------------------
// In-memory fakes shared by the service tests
// ---------------------------------------------------------------------------

type stubProvider struct{}

func (stubProvider) Refresh(ctx context.Context, refreshToken string) (auth.TokenSet, error) {
	return auth.TokenSet{AccessToken: "refreshed", RefreshToken: refreshToken}, nil
}

func testTokens() auth.TokenSet {
	return auth.TokenSet{AccessToken: "access", RefreshToken: "refresh", ExpiresAt: time.Now().Add(time.Hour)}
}

// memUploadQueue implements UploadQueueStore over a map, FIFO by insert order.
type memUploadQueue struct {
	mu    sync.Mutex
	items map[string]*models.QueueItem
	order []string
}

func newMemUploadQueue() *memUploadQueue {
	return &memUploadQueue{items: make(map[string]*models.QueueItem)}
}

func (m *memUploadQueue) Insert(ctx context.Context, item *models.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	cp.CreatedAt = time.Now()
	m.items[item.ID] = &cp
	m.order = append(m.order, item.ID)
	return nil
}

func (m *memUploadQueue) FindActive(ctx context.Context, userKey, remoteFileID string) (*models.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		it := m.items[id]
		if it != nil && it.UserKey == userKey && it.RemoteFileID == remoteFileID && it.Active() {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUploadQueue) NextPending(ctx context.Context, userKey string) (*models.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		it := m.items[id]
		if it != nil && it.UserKey == userKey && it.Status == models.UploadStatusPending {
			it.Status = models.UploadStatusUploading
			now := time.Now()
			it.StartedAt = &now
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUploadQueue) MarkCompleted(ctx context.Context, id, mediaItemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("item %s not found", id)
	}
	it.Status = models.UploadStatusCompleted
	it.MediaItemID = &mediaItemID
	now := time.Now()
	it.CompletedAt = &now
	return nil
}

func (m *memUploadQueue) MarkFailed(ctx context.Context, id, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("item %s not found", id)
	}
	it.Status = models.UploadStatusFailed
	it.LastError = &errMsg
	now := time.Now()
	it.CompletedAt = &now
	return nil
}

func (m *memUploadQueue) FailAllPending(ctx context.Context, userKey, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, it := range m.items {
		if it.UserKey == userKey && it.Status == models.UploadStatusPending {
			it.Status = models.UploadStatusFailed
			r := reason
			it.LastError = &r
			n++
		}
	}
	return n, nil
}

func (m *memUploadQueue) Requeue(ctx context.Context, userKey, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.UserKey != userKey || it.Status != models.UploadStatusFailed {
		return false, nil
	}
	it.Status = models.UploadStatusPending
	it.LastError = nil
	return true, nil
}

func (m *memUploadQueue) ClearFinished(ctx context.Context, userKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, it := range m.items {
		if it.UserKey == userKey && !it.Active() {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

func (m *memUploadQueue) List(ctx context.Context, userKey, status string, limit, offset int) ([]models.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QueueItem
	for _, id := range m.order {
		it, ok := m.items[id]
		if !ok || it.UserKey != userKey {
			continue
		}
		if status != "" && it.Status != status {
			continue
		}
		out = append(out, *it)
	}
	return out, nil
}

func (m *memUploadQueue) Stats(ctx context.Context, userKey string) (*models.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &models.QueueStats{}
	for _, it := range m.items {
		if it.UserKey != userKey {
			continue
		}
		stats.Total++
		switch it.Status {
		case models.UploadStatusPending:
			stats.Pending++
		case models.UploadStatusUploading:
			stats.Uploading++
		case models.UploadStatusCompleted:
			stats.Completed++
		case models.UploadStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// memRecords implements UploadRecordStore.
type memRecords struct {
	mu     sync.Mutex
	synced map[string]string // userKey+"/"+fileID -> mediaItemID
}

func newMemRecords() *memRecords {
	return &memRecords{synced: make(map[string]string)}
}

func (m *memRecords) key(userKey, fileID string) string { return userKey + "/" + fileID }

func (m *memRecords) Upsert(ctx context.Context, userKey, remoteFileID, mediaItemID, fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced[m.key(userKey, remoteFileID)] = mediaItemID
	return nil
}

func (m *memRecords) Exists(ctx context.Context, userKey, remoteFileID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.synced[m.key(userKey, remoteFileID)]
	return ok, nil
}

func (m *memRecords) SyncedSet(ctx context.Context, userKey string, remoteFileIDs []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for _, id := range remoteFileIDs {
		if _, ok := m.synced[m.key(userKey, id)]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// memAlbumQueue implements AlbumQueueStore. Every status change is recorded
// per workflow so tests can assert on the observed transition sequence.
type memAlbumQueue struct {
	mu          sync.Mutex
	items       map[string]*models.AlbumQueueItem
	order       []string
	transitions map[string][]string
}

func newMemAlbumQueue() *memAlbumQueue {
	return &memAlbumQueue{
		items:       make(map[string]*models.AlbumQueueItem),
		transitions: make(map[string][]string),
	}
}

func (m *memAlbumQueue) setStatusLocked(it *models.AlbumQueueItem, status string) {
	it.Status = status
	m.transitions[it.ID] = append(m.transitions[it.ID], status)
}

func (m *memAlbumQueue) history(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.transitions[id]...)
}

func (m *memAlbumQueue) Insert(ctx context.Context, item *models.AlbumQueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	cp.CreatedAt = time.Now()
	m.items[item.ID] = &cp
	m.order = append(m.order, item.ID)
	return nil
}

func (m *memAlbumQueue) FindActiveByFolder(ctx context.Context, userKey, remoteFolderID string) (*models.AlbumQueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		it := m.items[id]
		if it != nil && it.UserKey == userKey && it.RemoteFolderID == remoteFolderID && !it.Terminal() {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memAlbumQueue) Get(ctx context.Context, userKey, id string) (*models.AlbumQueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.UserKey != userKey {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (m *memAlbumQueue) NextPending(ctx context.Context, userKey string) (*models.AlbumQueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		it := m.items[id]
		if it != nil && it.UserKey == userKey && it.Status == models.AlbumStatusPending {
			now := time.Now()
			it.StartedAt = &now
			m.setStatusLocked(it, models.AlbumStatusUploading)
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memAlbumQueue) SetStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("workflow %s not found", id)
	}
	m.setStatusLocked(it, status)
	return nil
}

func (m *memAlbumQueue) SetTotalFiles(ctx context.Context, id string, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("workflow %s not found", id)
	}
	it.TotalFiles = &total
	return nil
}

func (m *memAlbumQueue) IncrementUploaded(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[id]; ok {
		it.UploadedFiles++
	}
	return nil
}

func (m *memAlbumQueue) SetAlbum(ctx context.Context, id, albumID, albumURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[id]; ok {
		it.AlbumID = &albumID
		it.AlbumURL = &albumURL
	}
	return nil
}

func (m *memAlbumQueue) MarkCompleted(ctx context.Context, id, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("workflow %s not found", id)
	}
	m.setStatusLocked(it, models.AlbumStatusCompleted)
	if errMsg != "" {
		it.LastError = &errMsg
	}
	now := time.Now()
	it.CompletedAt = &now
	return nil
}

func (m *memAlbumQueue) MarkFailed(ctx context.Context, id, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("workflow %s not found", id)
	}
	m.setStatusLocked(it, models.AlbumStatusFailed)
	it.LastError = &errMsg
	now := time.Now()
	it.CompletedAt = &now
	return nil
}

func (m *memAlbumQueue) MarkCancelled(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("workflow %s not found", id)
	}
	m.setStatusLocked(it, models.AlbumStatusCancelled)
	now := time.Now()
	it.CompletedAt = &now
	return nil
}

func (m *memAlbumQueue) CancelAllPending(ctx context.Context, userKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, it := range m.items {
		if it.UserKey == userKey && it.Status == models.AlbumStatusPending {
			m.setStatusLocked(it, models.AlbumStatusCancelled)
			n++
		}
	}
	return n, nil
}

func (m *memAlbumQueue) Requeue(ctx context.Context, userKey, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.UserKey != userKey {
		return false, nil
	}
	if it.Status != models.AlbumStatusFailed && it.Status != models.AlbumStatusCancelled {
		return false, nil
	}
	m.setStatusLocked(it, models.AlbumStatusPending)
	it.UploadedFiles = 0
	it.LastError = nil
	return true, nil
}

func (m *memAlbumQueue) ClearFinished(ctx context.Context, userKey string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, it := range m.items {
		if it.UserKey == userKey && it.Terminal() {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

func (m *memAlbumQueue) List(ctx context.Context, userKey, status string, limit, offset int) ([]models.AlbumQueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AlbumQueueItem
	for _, id := range m.order {
		it, ok := m.items[id]
		if !ok || it.UserKey != userKey {
			continue
		}
		if status != "" && it.Status != status {
			continue
		}
		out = append(out, *it)
	}
	return out, nil
}

func (m *memAlbumQueue) Stats(ctx context.Context, userKey string) (*models.AlbumQueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &models.AlbumQueueStats{}
	for _, it := range m.items {
		if it.UserKey != userKey {
			continue
		}
		stats.Total++
		switch it.Status {
		case models.AlbumStatusPending:
			stats.Pending++
		case models.AlbumStatusUploading:
			stats.Uploading++
		case models.AlbumStatusCreating:
			stats.Creating++
		case models.AlbumStatusUpdating:
			stats.Updating++
		case models.AlbumStatusCompleted:
			stats.Completed++
		case models.AlbumStatusFailed:
			stats.Failed++
		case models.AlbumStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

// memAlbumItems implements AlbumItemStore.
type memAlbumItems struct {
	mu    sync.Mutex
	items map[string]*models.AlbumItem
}

func newMemAlbumItems() *memAlbumItems {
	return &memAlbumItems{items: make(map[string]*models.AlbumItem)}
}

func (m *memAlbumItems) InsertBatch(ctx context.Context, items []models.AlbumItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		cp := it
		if cp.Status == "" {
			cp.Status = models.AlbumItemPending
		}
		m.items[it.ID] = &cp
	}
	return nil
}

func (m *memAlbumItems) ListByQueue(ctx context.Context, albumQueueID string) ([]models.AlbumItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AlbumItem
	for _, it := range m.items {
		if it.AlbumQueueID == albumQueueID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemoteFileID < out[j].RemoteFileID })
	return out, nil
}

func (m *memAlbumItems) MarkUploaded(ctx context.Context, id, mediaItemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("album item %s not found", id)
	}
	it.Status = models.AlbumItemUploaded
	it.MediaItemID = &mediaItemID
	return nil
}

func (m *memAlbumItems) MarkFailed(ctx context.Context, id, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return fmt.Errorf("album item %s not found", id)
	}
	it.Status = models.AlbumItemFailed
	it.LastError = &errMsg
	return nil
}

func (m *memAlbumItems) MarkFailedAdd(ctx context.Context, albumQueueID string, mediaItemIDs []string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rejected := make(map[string]bool, len(mediaItemIDs))
	for _, id := range mediaItemIDs {
		rejected[id] = true
	}
	for _, it := range m.items {
		if it.AlbumQueueID == albumQueueID && it.MediaItemID != nil && rejected[*it.MediaItemID] {
			it.Status = models.AlbumItemFailedAdd
			r := reason
			it.LastError = &r
		}
	}
	return nil
}

// memFolderAlbums implements FolderAlbumStore.
type memFolderAlbums struct {
	mu       sync.Mutex
	mappings map[string]*models.FolderAlbumMapping // userKey+"/"+folderID
}

func newMemFolderAlbums() *memFolderAlbums {
	return &memFolderAlbums{mappings: make(map[string]*models.FolderAlbumMapping)}
}

func (m *memFolderAlbums) key(userKey, folderID string) string { return userKey + "/" + folderID }

func (m *memFolderAlbums) Find(ctx context.Context, userKey, remoteFolderID string) (*models.FolderAlbumMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mapping, ok := m.mappings[m.key(userKey, remoteFolderID)]
	if !ok {
		return nil, nil
	}
	cp := *mapping
	return &cp, nil
}

func (m *memFolderAlbums) Upsert(ctx context.Context, mapping *models.FolderAlbumMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mapping
	cp.AlbumDeleted = false
	m.mappings[m.key(mapping.UserKey, mapping.RemoteFolderID)] = &cp
	return nil
}

func (m *memFolderAlbums) MarkAlbumDeleted(ctx context.Context, userKey, remoteFolderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mapping, ok := m.mappings[m.key(userKey, remoteFolderID)]; ok {
		mapping.AlbumDeleted = true
	}
	return nil
}

func (m *memFolderAlbums) ListForUser(ctx context.Context, userKey string) ([]models.FolderAlbumMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.FolderAlbumMapping
	for _, mapping := range m.mappings {
		if mapping.UserKey == userKey {
			out = append(out, *mapping)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemoteFolderID < out[j].RemoteFolderID })
	return out, nil
}

// memRollups implements SyncStatusStore.
type memRollups struct {
	mu      sync.Mutex
	rollups map[string]*models.SyncStatusDetail
}

func newMemRollups() *memRollups {
	return &memRollups{rollups: make(map[string]*models.SyncStatusDetail)}
}

func (m *memRollups) key(userKey, folderID string) string { return userKey + "/" + folderID }

func (m *memRollups) Get(ctx context.Context, userKey, remoteFolderID string) (*models.SyncStatusDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rollups[m.key(userKey, remoteFolderID)]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memRollups) Upsert(ctx context.Context, userKey, remoteFolderID string, d *models.SyncStatusDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.rollups[m.key(userKey, remoteFolderID)] = &cp
	return nil
}

func (m *memRollups) Delete(ctx context.Context, userKey, remoteFolderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rollups, m.key(userKey, remoteFolderID))
	return nil
}

// fakeDrive serves a scripted folder tree.
type fakeDrive struct {
	mu      sync.Mutex
	folders map[string]*fakeFolder
	// failDownload lists file ids whose download errors
	failDownload map[string]bool
	// blockDownload, when set, gates every download until the channel closes
	blockDownload chan struct{}
	// blockList, when set, gates every folder listing until the channel closes
	blockList chan struct{}
	listCalls int
}

type fakeFolder struct {
	name       string
	parentID   string
	files      []remote.File
	subfolders []remote.File
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		folders:      make(map[string]*fakeFolder),
		failDownload: make(map[string]bool),
	}
}

func (d *fakeDrive) addFolder(id, name, parentID string, files ...remote.File) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.folders[id] = &fakeFolder{name: name, parentID: parentID, files: files}
	if parent, ok := d.folders[parentID]; ok {
		parent.subfolders = append(parent.subfolders, remote.File{
			ID: id, Name: name, MimeType: remote.FolderMimeType,
		})
	}
}

func (d *fakeDrive) ListFolder(ctx context.Context, sess *auth.Session, folderID, pageToken string) (*remote.FolderListing, error) {
	d.mu.Lock()
	block := d.blockList
	d.mu.Unlock()
	if block != nil {
		<-block
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.listCalls++
	folder, ok := d.folders[folderID]
	if !ok {
		return nil, remote.ErrNotFoundOrGone
	}
	listing := &remote.FolderListing{}
	listing.Files = append(listing.Files, folder.files...)
	listing.Files = append(listing.Files, folder.subfolders...)
	return listing, nil
}

func (d *fakeDrive) GetFile(ctx context.Context, sess *auth.Session, fileID string) (*remote.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if folder, ok := d.folders[fileID]; ok {
		f := &remote.File{ID: fileID, Name: folder.name, MimeType: remote.FolderMimeType}
		if folder.parentID != "" {
			f.Parents = []string{folder.parentID}
		}
		return f, nil
	}
	return nil, remote.ErrNotFoundOrGone
}

func (d *fakeDrive) Download(ctx context.Context, sess *auth.Session, fileID string) (io.ReadCloser, error) {
	d.mu.Lock()
	block := d.blockDownload
	d.mu.Unlock()
	if block != nil {
		<-block
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failDownload[fileID] {
		return nil, fmt.Errorf("%w: download of %s", remote.ErrTransient, fileID)
	}
	return io.NopCloser(bytes.NewReader([]byte("content-" + fileID))), nil
}

// fakePhotos records uploads and album calls.
type fakePhotos struct {
	mu          sync.Mutex
	uploads     []string // file names, in order
	albums      map[string]*remote.Album
	rejectNext  []string // media item ids the next AddMediaItems call rejects
	addGone     bool     // next AddMediaItems returns ErrNotFoundOrGone
	added       map[string][]string
	albumSerial int
}

func newFakePhotos() *fakePhotos {
	return &fakePhotos{
		albums: make(map[string]*remote.Album),
		added:  make(map[string][]string),
	}
}

func (p *fakePhotos) Upload(ctx context.Context, sess *auth.Session, fileName, mimeType string, content io.Reader) (string, error) {
	if _, err := io.ReadAll(content); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploads = append(p.uploads, fileName)
	return "media-" + fileName, nil
}

func (p *fakePhotos) CreateAlbum(ctx context.Context, sess *auth.Session, title string) (*remote.Album, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.albumSerial++
	album := &remote.Album{
		ID:         fmt.Sprintf("album-%d", p.albumSerial),
		Title:      title,
		ProductURL: fmt.Sprintf("https://photos.example/album-%d", p.albumSerial),
	}
	p.albums[album.ID] = album
	return album, nil
}

func (p *fakePhotos) AddMediaItems(ctx context.Context, sess *auth.Session, albumID string, mediaItemIDs []string) (*remote.AddResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addGone {
		return nil, fmt.Errorf("%w: album %s", remote.ErrNotFoundOrGone, albumID)
	}
	rejected := make(map[string]bool, len(p.rejectNext))
	for _, id := range p.rejectNext {
		rejected[id] = true
	}
	result := &remote.AddResult{}
	for _, id := range mediaItemIDs {
		if rejected[id] {
			result.Rejected = append(result.Rejected, remote.RejectedItem{MediaItemID: id, Reason: "INVALID_ARGUMENT"})
			continue
		}
		result.Added = append(result.Added, id)
		p.added[albumID] = append(p.added[albumID], id)
	}
	return result, nil
}

func (p *fakePhotos) GetAlbum(ctx context.Context, sess *auth.Session, albumID string) (*remote.Album, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	album, ok := p.albums[albumID]
	if !ok {
		return nil, fmt.Errorf("%w: album %s", remote.ErrNotFoundOrGone, albumID)
	}
	cp := *album
	return &cp, nil
}

func (p *fakePhotos) uploadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.uploads)
}
