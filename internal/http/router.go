// Package http assembles the route table for the sync backend.
package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"photosync-backend/internal/handlers"
	"photosync-backend/internal/health"
	"photosync-backend/internal/metrics"
	"photosync-backend/internal/middleware"
)

// NewRouter wires every handler behind the shared middleware chain. The
// health and metrics endpoints stay outside authentication so probes and
// scrapers need no token.
func NewRouter(
	uploadQueue *handlers.UploadQueueHandler,
	albumQueue *handlers.AlbumQueueHandler,
	cache *handlers.CacheHandler,
	operations *handlers.OperationsHandler,
	healthHandler *health.Handler,
	m *metrics.Metrics,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestLogging)

	r.HandleFunc("/health", healthHandler.Check).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Handler)

	// Upload queue
	api.HandleFunc("/upload-queue", uploadQueue.Add).Methods(http.MethodPost)
	api.HandleFunc("/upload-queue", uploadQueue.List).Methods(http.MethodGet)
	api.HandleFunc("/upload-queue/start", uploadQueue.Start).Methods(http.MethodPost)
	api.HandleFunc("/upload-queue/stop", uploadQueue.Stop).Methods(http.MethodPost)
	api.HandleFunc("/upload-queue/stats", uploadQueue.Stats).Methods(http.MethodGet)
	api.HandleFunc("/upload-queue/clear", uploadQueue.Clear).Methods(http.MethodPost)
	api.HandleFunc("/upload-queue/{id}/requeue", uploadQueue.Requeue).Methods(http.MethodPost)

	// Album queue
	api.HandleFunc("/album-queue", albumQueue.Add).Methods(http.MethodPost)
	api.HandleFunc("/album-queue", albumQueue.List).Methods(http.MethodGet)
	api.HandleFunc("/album-queue/start", albumQueue.Start).Methods(http.MethodPost)
	api.HandleFunc("/album-queue/stop", albumQueue.Stop).Methods(http.MethodPost)
	api.HandleFunc("/album-queue/stats", albumQueue.Stats).Methods(http.MethodGet)
	api.HandleFunc("/album-queue/mappings", albumQueue.Mappings).Methods(http.MethodGet)
	api.HandleFunc("/album-queue/clear", albumQueue.Clear).Methods(http.MethodPost)
	api.HandleFunc("/album-queue/{id}/requeue", albumQueue.Requeue).Methods(http.MethodPost)

	// Remote cache and sync status
	api.HandleFunc("/cache/folders/{id}", cache.FolderPage).Methods(http.MethodGet)
	api.HandleFunc("/cache/folders/{id}/sync", cache.SyncFolder).Methods(http.MethodPost)
	api.HandleFunc("/cache/folders/{id}/cached", cache.IsCached).Methods(http.MethodGet)
	api.HandleFunc("/cache/folders/{id}/status", cache.CachedFolderStatus).Methods(http.MethodGet)
	api.HandleFunc("/cache/folders/{id}/status", cache.FolderStatus).Methods(http.MethodPost)
	api.HandleFunc("/cache/folders/{id}/refresh", cache.RefreshTree).Methods(http.MethodPost)
	api.HandleFunc("/cache/folders/{id}/enqueue-all", cache.EnqueueAll).Methods(http.MethodPost)
	api.HandleFunc("/cache/files/{id}/status", cache.FileStatus).Methods(http.MethodGet)

	// Operations
	api.HandleFunc("/operations", operations.List).Methods(http.MethodGet)
	api.HandleFunc("/operations/stream", operations.Stream).Methods(http.MethodGet)
	api.HandleFunc("/operations/{id}", operations.Get).Methods(http.MethodGet)
	api.HandleFunc("/operations/{id}", operations.Remove).Methods(http.MethodDelete)

	return r
}
