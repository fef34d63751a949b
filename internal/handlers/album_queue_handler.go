package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"photosync-backend/internal/models"
	"photosync-backend/internal/services"
)

// AlbumQueueHandler exposes the album queue manager over JSON.
type AlbumQueueHandler struct {
	service *services.AlbumQueueService
}

func NewAlbumQueueHandler(service *services.AlbumQueueService) *AlbumQueueHandler {
	return &AlbumQueueHandler{service: service}
}

// Add enqueues a folder for album creation or update.
// POST /api/album-queue
func (h *AlbumQueueHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FolderID   string `json:"folder_id"`
		FolderName string `json:"folder_name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.FolderID) == "" || strings.TrimSpace(req.FolderName) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "folder_id and folder_name are required"})
		return
	}

	item, err := h.service.AddToQueue(r.Context(), userKey(r), req.FolderID, req.FolderName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Start launches the user's album workflow loop.
// POST /api/album-queue/start
func (h *AlbumQueueHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	started, err := h.service.StartProcessing(r.Context(), userKey(r), req.tokenSet())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"started": started})
}

// Stop cancels pending entries and flags the running workflow.
// POST /api/album-queue/stop
func (h *AlbumQueueHandler) Stop(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.service.StopProcessing(r.Context(), userKey(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"cancelled": cancelled})
}

// List returns album queue entries, optionally filtered by status.
// GET /api/album-queue?status=&limit=&offset=
func (h *AlbumQueueHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.service.GetQueue(r.Context(), userKey(r), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []models.AlbumQueueItem{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// Stats returns aggregate status counts.
// GET /api/album-queue/stats
func (h *AlbumQueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context(), userKey(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Requeue resets a failed or cancelled entry to pending.
// POST /api/album-queue/{id}/requeue
func (h *AlbumQueueHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	ok, err := h.service.Requeue(r.Context(), userKey(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no failed or cancelled entry with that id"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"requeued": true})
}

// Mappings lists the user's folder-to-album mappings.
// GET /api/album-queue/mappings
func (h *AlbumQueueHandler) Mappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.service.ListMappings(r.Context(), userKey(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if mappings == nil {
		mappings = []models.FolderAlbumMapping{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"mappings": mappings})
}

// Clear removes terminal entries.
// POST /api/album-queue/clear
func (h *AlbumQueueHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.ClearFinished(r.Context(), userKey(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}
