package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"photosync-backend/internal/models"
)

type AlbumQueueRepository struct {
	pool *pgxpool.Pool
}

func NewAlbumQueueRepository(pool *pgxpool.Pool) *AlbumQueueRepository {
	return &AlbumQueueRepository{pool: pool}
}

const albumQueueColumns = `id, user_key, remote_folder_id, folder_name, status, mode,
	total_files, uploaded_files, album_id, album_url, last_error, created_at, started_at, completed_at`

func scanAlbumQueueItem(row pgx.Row) (*models.AlbumQueueItem, error) {
	item := &models.AlbumQueueItem{}
	err := row.Scan(
		&item.ID, &item.UserKey, &item.RemoteFolderID, &item.FolderName, &item.Status, &item.Mode,
		&item.TotalFiles, &item.UploadedFiles, &item.AlbumID, &item.AlbumURL, &item.LastError,
		&item.CreatedAt, &item.StartedAt, &item.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Insert adds a new PENDING album workflow with its resolved mode.
func (r *AlbumQueueRepository) Insert(ctx context.Context, item *models.AlbumQueueItem) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO album_queue (id, user_key, remote_folder_id, folder_name, status, mode)
		VALUES ($1, $2, $3, $4, 'PENDING', $5)`,
		item.ID, item.UserKey, item.RemoteFolderID, item.FolderName, item.Mode,
	)
	return err
}

// FindActiveByFolder returns the non-terminal workflow for a folder, if any.
func (r *AlbumQueueRepository) FindActiveByFolder(ctx context.Context, userKey, remoteFolderID string) (*models.AlbumQueueItem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+albumQueueColumns+`
		FROM album_queue
		WHERE user_key = $1 AND remote_folder_id = $2
		  AND status IN ('PENDING', 'UPLOADING', 'CREATING', 'UPDATING')`,
		userKey, remoteFolderID)

	item, err := scanAlbumQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// Get returns one workflow by id scoped to a user.
func (r *AlbumQueueRepository) Get(ctx context.Context, userKey, id string) (*models.AlbumQueueItem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+albumQueueColumns+`
		FROM album_queue
		WHERE id = $1 AND user_key = $2`, id, userKey)

	item, err := scanAlbumQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// NextPending claims the oldest PENDING workflow for the user, moving it to
// UPLOADING so a concurrent cancel sweep cannot touch the claimed row.
// Returns nil when none remain.
func (r *AlbumQueueRepository) NextPending(ctx context.Context, userKey string) (*models.AlbumQueueItem, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE album_queue
		SET status = 'UPLOADING', started_at = NOW()
		WHERE id = (
			SELECT id FROM album_queue
			WHERE user_key = $1 AND status = 'PENDING'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+albumQueueColumns,
		userKey)

	item, err := scanAlbumQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// SetStatus moves a workflow along its state graph.
func (r *AlbumQueueRepository) SetStatus(ctx context.Context, id, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE album_queue SET status = $2 WHERE id = $1`, id, status)
	return err
}

// SetTotalFiles snapshots the folder's file count at workflow start.
func (r *AlbumQueueRepository) SetTotalFiles(ctx context.Context, id string, total int) error {
	_, err := r.pool.Exec(ctx, `UPDATE album_queue SET total_files = $2 WHERE id = $1`, id, total)
	return err
}

// IncrementUploaded bumps the uploaded-files counter.
func (r *AlbumQueueRepository) IncrementUploaded(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE album_queue SET uploaded_files = uploaded_files + 1 WHERE id = $1`, id)
	return err
}

// SetAlbum records the created/resolved album id and url.
func (r *AlbumQueueRepository) SetAlbum(ctx context.Context, id, albumID, albumURL string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE album_queue SET album_id = $2, album_url = $3 WHERE id = $1`, id, albumID, albumURL)
	return err
}

// MarkCompleted finishes the workflow. errMsg is non-empty when the album
// call partially rejected items.
func (r *AlbumQueueRepository) MarkCompleted(ctx context.Context, id, errMsg string) error {
	var errPtr *string
	if errMsg != "" {
		errPtr = &errMsg
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE album_queue
		SET status = 'COMPLETED', last_error = $2, completed_at = NOW()
		WHERE id = $1`, id, errPtr)
	return err
}

// MarkFailed finishes the workflow with an error.
func (r *AlbumQueueRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE album_queue
		SET status = 'FAILED', last_error = $2, completed_at = NOW()
		WHERE id = $1`, id, errMsg)
	return err
}

// MarkCancelled finishes a mid-flight workflow that observed a stop request
// at one of its checkpoints.
func (r *AlbumQueueRepository) MarkCancelled(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE album_queue
		SET status = 'CANCELLED', completed_at = NOW()
		WHERE id = $1`, id)
	return err
}

// CancelAllPending marks every still-PENDING workflow CANCELLED.
func (r *AlbumQueueRepository) CancelAllPending(ctx context.Context, userKey string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE album_queue
		SET status = 'CANCELLED', completed_at = NOW()
		WHERE user_key = $1 AND status = 'PENDING'`, userKey)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Requeue resets a FAILED or CANCELLED workflow back to PENDING.
func (r *AlbumQueueRepository) Requeue(ctx context.Context, userKey, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE album_queue
		SET status = 'PENDING', last_error = NULL, uploaded_files = 0,
		    started_at = NULL, completed_at = NULL
		WHERE id = $1 AND user_key = $2 AND status IN ('FAILED', 'CANCELLED')`, id, userKey)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClearFinished deletes terminal workflows (album items cascade).
func (r *AlbumQueueRepository) ClearFinished(ctx context.Context, userKey string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM album_queue
		WHERE user_key = $1 AND status IN ('COMPLETED', 'FAILED', 'CANCELLED')`, userKey)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// List returns workflows for a user, newest first, optionally filtered by status.
func (r *AlbumQueueRepository) List(ctx context.Context, userKey, status string, limit, offset int) ([]models.AlbumQueueItem, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + albumQueueColumns + ` FROM album_queue WHERE user_key = $1`
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

	var items []models.AlbumQueueItem
	for rows.Next() {
		item, err := scanAlbumQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Stats returns aggregate status counts for a user's album queue.
func (r *AlbumQueueRepository) Stats(ctx context.Context, userKey string) (*models.AlbumQueueStats, error) {
	stats := &models.AlbumQueueStats{}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'UPLOADING'),
			COUNT(*) FILTER (WHERE status = 'CREATING'),
			COUNT(*) FILTER (WHERE status = 'UPDATING'),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'FAILED'),
			COUNT(*) FILTER (WHERE status = 'CANCELLED'),
			COUNT(*)
		FROM album_queue
		WHERE user_key = $1`, userKey,
	).Scan(
		&stats.Pending, &stats.Uploading, &stats.Creating, &stats.Updating,
		&stats.Completed, &stats.Failed, &stats.Cancelled, &stats.Total,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
