package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"photosync-backend/internal/models"
)

type AlbumItemRepository struct {
	pool *pgxpool.Pool
}

func NewAlbumItemRepository(pool *pgxpool.Pool) *AlbumItemRepository {
	return &AlbumItemRepository{pool: pool}
}

// InsertBatch creates PENDING items for each file in the workflow, skipping
// files already tracked (a requeued workflow keeps its UPLOADED items).
func (r *AlbumItemRepository) InsertBatch(ctx context.Context, items []models.AlbumItem) error {
	for _, item := range items {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO album_items (id, album_queue_id, remote_file_id, status)
			VALUES ($1, $2, $3, 'PENDING')
			ON CONFLICT (album_queue_id, remote_file_id) DO NOTHING`,
			item.ID, item.AlbumQueueID, item.RemoteFileID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListByQueue returns all items of a workflow in insertion order.
func (r *AlbumItemRepository) ListByQueue(ctx context.Context, albumQueueID string) ([]models.AlbumItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, album_queue_id, remote_file_id, media_item_id, status, last_error
		FROM album_items
		WHERE album_queue_id = $1
		ORDER BY id`, albumQueueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.AlbumItem
	for rows.Next() {
		var item models.AlbumItem
		if err := rows.Scan(&item.ID, &item.AlbumQueueID, &item.RemoteFileID,
			&item.MediaItemID, &item.Status, &item.LastError); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkUploaded records the media item produced by a successful transfer.
func (r *AlbumItemRepository) MarkUploaded(ctx context.Context, id, mediaItemID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE album_items
		SET status = 'UPLOADED', media_item_id = $2, last_error = NULL
		WHERE id = $1`, id, mediaItemID)
	return err
}

// MarkFailed records an upload failure for one item.
func (r *AlbumItemRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE album_items SET status = 'FAILED', last_error = $2 WHERE id = $1`, id, errMsg)
	return err
}

// MarkFailedAdd flags items the album call rejected after a clean upload.
func (r *AlbumItemRepository) MarkFailedAdd(ctx context.Context, albumQueueID string, mediaItemIDs []string, reason string) error {
	if len(mediaItemIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE album_items
		SET status = 'FAILED_ADD', last_error = $3
		WHERE album_queue_id = $1 AND media_item_id = ANY($2)`,
		albumQueueID, mediaItemIDs, reason)
	return err
}
