package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"photosync-backend/internal/auth"
	"photosync-backend/internal/services"
)

// CacheHandler exposes the remote cache and sync-status engine, plus the
// bulk discovery workflow.
type CacheHandler struct {
	syncStatus *services.SyncStatusService
	discovery  *services.DiscoveryService
	provider   auth.SessionProvider
}

func NewCacheHandler(syncStatus *services.SyncStatusService, discovery *services.DiscoveryService, provider auth.SessionProvider) *CacheHandler {
	return &CacheHandler{syncStatus: syncStatus, discovery: discovery, provider: provider}
}

type folderSyncRequest struct {
	credentialsRequest
	Force bool `json:"force"`
}

// SyncFolder re-enumerates a folder from the remote source into the cache.
// POST /api/cache/folders/{id}/sync
func (h *CacheHandler) SyncFolder(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess := auth.NewSession(h.provider, req.tokenSet())
	folder, err := h.syncStatus.SyncFolderToCache(r.Context(), sess, userKey(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// IsCached reports whether a folder has a live cached snapshot.
// GET /api/cache/folders/{id}/cached
func (h *CacheHandler) IsCached(w http.ResponseWriter, r *http.Request) {
	cached := h.syncStatus.IsFolderCached(userKey(r), mux.Vars(r)["id"])
	writeJSON(w, http.StatusOK, map[string]bool{"cached": cached})
}

// FolderPage serves a page of a cached folder's listing.
// GET /api/cache/folders/{id}?offset=&limit=
func (h *CacheHandler) FolderPage(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := h.syncStatus.GetCachedFolderPage(userKey(r), mux.Vars(r)["id"], offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// FolderStatus reports (and lazily computes) a folder's sync rollup.
// POST /api/cache/folders/{id}/status
func (h *CacheHandler) FolderStatus(w http.ResponseWriter, r *http.Request) {
	var req folderSyncRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess := auth.NewSession(h.provider, req.tokenSet())
	detail, err := h.syncStatus.CalculateFolderSyncStatus(r.Context(), sess, userKey(r), mux.Vars(r)["id"], req.Force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// CachedFolderStatus reports the stored rollup without touching the remote.
// GET /api/cache/folders/{id}/status
func (h *CacheHandler) CachedFolderStatus(w http.ResponseWriter, r *http.Request) {
	detail, err := h.syncStatus.GetCachedFolderSyncStatus(r.Context(), userKey(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// FileStatus reports a single file's sync state.
// GET /api/cache/files/{id}/status
func (h *CacheHandler) FileStatus(w http.ResponseWriter, r *http.Request) {
	detail, err := h.syncStatus.FileSyncStatus(r.Context(), userKey(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// RefreshTree walks a folder subtree and recomputes every rollup in it.
// POST /api/cache/folders/{id}/refresh
func (h *CacheHandler) RefreshTree(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess := auth.NewSession(h.provider, req.tokenSet())
	result, err := h.syncStatus.RecursivelyRefresh(r.Context(), sess, userKey(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// EnqueueAll discovers a subtree and enqueues every file in it.
// POST /api/cache/folders/{id}/enqueue-all
func (h *CacheHandler) EnqueueAll(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	opID, err := h.discovery.EnqueueAll(r.Context(), userKey(r), req.tokenSet(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"operation_id": opID})
}
