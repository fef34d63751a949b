package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"photosync-backend/internal/models"
)

// SyncStatusRepository caches computed folder rollups in the durable store so
// a restart doesn't force a full recompute of every folder ever visited.
type SyncStatusRepository struct {
	pool *pgxpool.Pool
}

func NewSyncStatusRepository(pool *pgxpool.Pool) *SyncStatusRepository {
	return &SyncStatusRepository{pool: pool}
}

// Get returns the cached rollup for a folder, or nil if never computed.
func (r *SyncStatusRepository) Get(ctx context.Context, userKey, remoteFolderID string) (*models.SyncStatusDetail, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT status, synced_count, total_count, percentage, last_checked
		FROM folder_sync_status
		WHERE user_key = $1 AND remote_folder_id = $2`, userKey, remoteFolderID)

	d := &models.SyncStatusDetail{}
	err := row.Scan(&d.Status, &d.SyncedCount, &d.TotalCount, &d.Percentage, &d.LastChecked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Upsert stores a freshly computed rollup.
func (r *SyncStatusRepository) Upsert(ctx context.Context, userKey, remoteFolderID string, d *models.SyncStatusDetail) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO folder_sync_status
			(user_key, remote_folder_id, status, synced_count, total_count, percentage, last_checked)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_key, remote_folder_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			synced_count = EXCLUDED.synced_count,
			total_count = EXCLUDED.total_count,
			percentage = EXCLUDED.percentage,
			last_checked = EXCLUDED.last_checked`,
		userKey, remoteFolderID, d.Status, d.SyncedCount, d.TotalCount, d.Percentage, d.LastChecked)
	return err
}

// Delete drops a folder's cached rollup (invalidation).
func (r *SyncStatusRepository) Delete(ctx context.Context, userKey, remoteFolderID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM folder_sync_status
		WHERE user_key = $1 AND remote_folder_id = $2`, userKey, remoteFolderID)
	return err
}
