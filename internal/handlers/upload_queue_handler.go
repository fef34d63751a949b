package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"photosync-backend/internal/models"
	"photosync-backend/internal/services"
)

// UploadQueueHandler exposes the upload queue manager over JSON.
type UploadQueueHandler struct {
	service *services.UploadQueueService
}

func NewUploadQueueHandler(service *services.UploadQueueService) *UploadQueueHandler {
	return &UploadQueueHandler{service: service}
}

// Add enqueues file descriptors.
// POST /api/upload-queue
func (h *UploadQueueHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Files []models.FileDescriptor `json:"files"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.AddToQueue(r.Context(), userKey(r), req.Files)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Start launches the user's processing loop.
// POST /api/upload-queue/start
func (h *UploadQueueHandler) Start(w http.ResponseWriter, r *http.Request) {
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

// Stop sets the cooperative stop flag.
// POST /api/upload-queue/stop
func (h *UploadQueueHandler) Stop(w http.ResponseWriter, r *http.Request) {
	stopped := h.service.StopProcessing(userKey(r))
	writeJSON(w, http.StatusOK, map[string]bool{"stopping": stopped})
}

// List returns queue items, optionally filtered by status.
// GET /api/upload-queue?status=&limit=&offset=
func (h *UploadQueueHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.service.GetQueue(r.Context(), userKey(r), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []models.QueueItem{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":      items,
		"processing": h.service.IsProcessing(userKey(r)),
	})
}

// Stats returns aggregate status counts.
// GET /api/upload-queue/stats
func (h *UploadQueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context(), userKey(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Requeue resets a failed item to pending.
// POST /api/upload-queue/{id}/requeue
func (h *UploadQueueHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	ok, err := h.service.Requeue(r.Context(), userKey(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no failed item with that id"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"requeued": true})
}

// Clear removes terminal items.
// POST /api/upload-queue/clear
func (h *UploadQueueHandler) Clear(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.ClearFinished(r.Context(), userKey(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}
