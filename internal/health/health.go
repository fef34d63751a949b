// Package health reports process liveness for load balancers and probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbPingTimeout = 2 * time.Second

type Status struct {
	Status     string   `json:"status"`
	UptimeSec  int64    `json:"uptime_sec"`
	Goroutines int      `json:"goroutines"`
	Database   DBStatus `json:"database"`
}

type DBStatus struct {
	Status         string `json:"status"`
	ResponseTimeMS int64  `json:"response_time_ms"`
}

// Handler answers /health. Degraded database connectivity flips the
// overall status and the HTTP code so probes can act on it.
type Handler struct {
	pool    *pgxpool.Pool
	started time.Time
}

func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool, started: time.Now()}
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	db := h.pingDatabase(r.Context())

	status := "healthy"
	code := http.StatusOK
	if db.Status != "healthy" {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(Status{
		Status:     status,
		UptimeSec:  int64(time.Since(h.started).Seconds()),
		Goroutines: runtime.NumGoroutine(),
		Database:   db,
	})
}

func (h *Handler) pingDatabase(ctx context.Context) DBStatus {
	ctx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()

	start := time.Now()
	err := h.pool.Ping(ctx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return DBStatus{Status: "unhealthy", ResponseTimeMS: elapsed}
	}
	return DBStatus{Status: "healthy", ResponseTimeMS: elapsed}
}
