package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"photosync-backend/internal/auth"
	"photosync-backend/internal/cache"
	"photosync-backend/internal/config"
	"photosync-backend/internal/database"
	"photosync-backend/internal/db"
	"photosync-backend/internal/handlers"
	"photosync-backend/internal/health"
	h "photosync-backend/internal/http"
	"photosync-backend/internal/metrics"
	"photosync-backend/internal/middleware"
	"photosync-backend/internal/monitoring"
	"photosync-backend/internal/operations"
	"photosync-backend/internal/remote"
	"photosync-backend/internal/repositories"
	"photosync-backend/internal/services"
	"photosync-backend/migrations"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Connect to database and bring the schema up to date
	pool := db.Connect(cfg)
	defer pool.Close()

	migrator := database.NewMigrator(pool, migrations.FS)
	if err := migrator.Run(context.Background()); err != nil {
		log.Fatalf("[Server] Migrations failed: %v", err)
	}

	// Shared infrastructure
	jwtManager := auth.NewJWTManager(cfg)
	provider := auth.NewOAuthSessionProvider(cfg.Auth.ClientID, cfg.Auth.ClientSecret, cfg.Auth.TokenURL)
	folderCache := cache.NewFolderCache()
	m := metrics.New()

	hub := operations.NewHub()
	hub.OnCount = func(n int) { m.OperationsLive.Set(float64(n)) }
	hub.Start()
	defer hub.Stop()

	collector := monitoring.NewCollector(m.Registry())
	collector.Start()
	defer collector.Stop()

	// Remote API clients
	callerOpts := remote.CallerOpts{
		RateLimit:   cfg.Remote.RateLimit,
		MaxAttempts: cfg.Remote.MaxAttempts,
		BaseDelay:   cfg.Remote.RetryDelay,
	}
	driveClient := remote.NewDriveClient(cfg.Remote.DriveBaseURL, cfg.Queue.ListPageSize, callerOpts)
	photosClient := remote.NewPhotosClient(cfg.Remote.PhotosBaseURL, callerOpts)

	// Repositories
	uploadQueueRepo := repositories.NewUploadQueueRepository(pool)
	uploadRecordRepo := repositories.NewUploadRecordRepository(pool)
	albumQueueRepo := repositories.NewAlbumQueueRepository(pool)
	albumItemRepo := repositories.NewAlbumItemRepository(pool)
	folderAlbumRepo := repositories.NewFolderAlbumRepository(pool)
	syncStatusRepo := repositories.NewSyncStatusRepository(pool)

	// Services
	runners := services.NewRunnerRegistry()
	syncStatusService := services.NewSyncStatusService(folderCache, driveClient, uploadRecordRepo, syncStatusRepo, cfg.Queue.MaxFolderDepth, m)
	uploadQueueService := services.NewUploadQueueService(uploadQueueRepo, uploadRecordRepo, driveClient, photosClient, syncStatusService, hub, m, provider, runners)
	albumQueueService := services.NewAlbumQueueService(albumQueueRepo, albumItemRepo, folderAlbumRepo, uploadQueueService, syncStatusService, photosClient, hub, m, provider, runners)
	discoveryService := services.NewDiscoveryService(syncStatusService, uploadQueueService, hub, provider, cfg.Queue.MaxFolderDepth)

	// Handlers
	uploadQueueHandler := handlers.NewUploadQueueHandler(uploadQueueService)
	albumQueueHandler := handlers.NewAlbumQueueHandler(albumQueueService)
	cacheHandler := handlers.NewCacheHandler(syncStatusService, discoveryService, provider)
	operationsHandler := handlers.NewOperationsHandler(hub, cfg.Server.AllowedOrigins)
	healthHandler := health.NewHandler(pool)

	// Router and middleware chain
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)
	corsMiddleware := middleware.NewCORS(cfg)
	router := h.NewRouter(uploadQueueHandler, albumQueueHandler, cacheHandler, operationsHandler, healthHandler, m, authMiddleware)
	handler := corsMiddleware(router)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("[Server] Listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
}
