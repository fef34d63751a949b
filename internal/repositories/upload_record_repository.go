package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UploadRecordRepository stores the durable file -> media item mappings.
// A record's existence is what makes a file "synced".
type UploadRecordRepository struct {
	pool *pgxpool.Pool
}

func NewUploadRecordRepository(pool *pgxpool.Pool) *UploadRecordRepository {
	return &UploadRecordRepository{pool: pool}
}

// Upsert persists the mapping, replacing the media item id on conflict
// (idempotent retries can legitimately re-upload).
func (r *UploadRecordRepository) Upsert(ctx context.Context, userKey, remoteFileID, mediaItemID, fileName string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO upload_records (id, user_key, remote_file_id, media_item_id, file_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_key, remote_file_id)
		DO UPDATE SET media_item_id = EXCLUDED.media_item_id, uploaded_at = NOW()`,
		uuid.NewString(), userKey, remoteFileID, mediaItemID, fileName)
	return err
}

// Exists reports whether the file already has an upload record.
func (r *UploadRecordRepository) Exists(ctx context.Context, userKey, remoteFileID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM upload_records WHERE user_key = $1 AND remote_file_id = $2
		)`, userKey, remoteFileID).Scan(&exists)
	return exists, err
}

// SyncedSet returns which of the given file ids already have upload records.
func (r *UploadRecordRepository) SyncedSet(ctx context.Context, userKey string, remoteFileIDs []string) (map[string]bool, error) {
	synced := make(map[string]bool, len(remoteFileIDs))
	if len(remoteFileIDs) == 0 {
		return synced, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT remote_file_id FROM upload_records
		WHERE user_key = $1 AND remote_file_id = ANY($2)`, userKey, remoteFileIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		synced[id] = true
	}
	return synced, rows.Err()
}
