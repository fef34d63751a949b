package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"photosync-backend/internal/models"
)

type UploadQueueRepository struct {
	pool *pgxpool.Pool
}

func NewUploadQueueRepository(pool *pgxpool.Pool) *UploadQueueRepository {
	return &UploadQueueRepository{pool: pool}
}

const queueItemColumns = `id, user_key, remote_file_id, file_name, mime_type, file_size,
	status, last_error, media_item_id, created_at, started_at, completed_at`

func scanQueueItem(row pgx.Row) (*models.QueueItem, error) {
	item := &models.QueueItem{}
	err := row.Scan(
		&item.ID, &item.UserKey, &item.RemoteFileID, &item.FileName, &item.MimeType, &item.FileSize,
		&item.Status, &item.LastError, &item.MediaItemID, &item.CreatedAt, &item.StartedAt, &item.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Insert adds a new pending queue item.
func (r *UploadQueueRepository) Insert(ctx context.Context, item *models.QueueItem) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO upload_queue (id, user_key, remote_file_id, file_name, mime_type, file_size, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')`,
		item.ID, item.UserKey, item.RemoteFileID, item.FileName, item.MimeType, item.FileSize,
	)
	return err
}

// FindActive returns the pending/uploading item for a file, if one exists.
func (r *UploadQueueRepository) FindActive(ctx context.Context, userKey, remoteFileID string) (*models.QueueItem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+queueItemColumns+`
		FROM upload_queue
		WHERE user_key = $1 AND remote_file_id = $2 AND status IN ('pending', 'uploading')`,
		userKey, remoteFileID)

	item, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// NextPending claims the oldest pending item for the user and marks it
// uploading. Returns nil when the queue is drained.
func (r *UploadQueueRepository) NextPending(ctx context.Context, userKey string) (*models.QueueItem, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE upload_queue
		SET status = 'uploading', started_at = NOW()
		WHERE id = (
			SELECT id FROM upload_queue
			WHERE user_key = $1 AND status = 'pending'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+queueItemColumns,
		userKey)

	item, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// MarkCompleted records a successful transfer and its resulting media item.
func (r *UploadQueueRepository) MarkCompleted(ctx context.Context, id, mediaItemID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE upload_queue
		SET status = 'completed', media_item_id = $2, last_error = NULL, completed_at = NOW()
		WHERE id = $1`, id, mediaItemID)
	return err
}

// MarkFailed records a failed transfer with its error text.
func (r *UploadQueueRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE upload_queue
		SET status = 'failed', last_error = $2, completed_at = NOW()
		WHERE id = $1`, id, errMsg)
	return err
}

// FailAllPending marks every remaining pending item failed with the given
// reason. Used when a stop request drains the queue.
func (r *UploadQueueRepository) FailAllPending(ctx context.Context, userKey, reason string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE upload_queue
		SET status = 'failed', last_error = $2, completed_at = NOW()
		WHERE user_key = $1 AND status = 'pending'`, userKey, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Requeue resets a failed item back to pending and clears its error.
func (r *UploadQueueRepository) Requeue(ctx context.Context, userKey, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE upload_queue
		SET status = 'pending', last_error = NULL, started_at = NULL, completed_at = NULL
		WHERE id = $1 AND user_key = $2 AND status = 'failed'`, id, userKey)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClearFinished deletes terminal items (completed and failed).
func (r *UploadQueueRepository) ClearFinished(ctx context.Context, userKey string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM upload_queue
		WHERE user_key = $1 AND status IN ('completed', 'failed')`, userKey)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// List returns queue items for a user, newest first, optionally filtered by status.
func (r *UploadQueueRepository) List(ctx context.Context, userKey, status string, limit, offset int) ([]models.QueueItem, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + queueItemColumns + ` FROM upload_queue WHERE user_key = $1`
	args := []interface{}{userKey}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ` + itoa(limit) + ` OFFSET ` + itoa(offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Stats returns aggregate status counts for a user's queue.
func (r *UploadQueueRepository) Stats(ctx context.Context, userKey string) (*models.QueueStats, error) {
	stats := &models.QueueStats{}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'uploading'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*)
		FROM upload_queue
		WHERE user_key = $1`, userKey,
	).Scan(&stats.Pending, &stats.Uploading, &stats.Completed, &stats.Failed, &stats.Total)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
