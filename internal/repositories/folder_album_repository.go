package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"photosync-backend/internal/models"
)

// FolderAlbumRepository stores the folder -> album mappings. This table is
// the single source of truth for "does this folder have an album".
type FolderAlbumRepository struct {
	pool *pgxpool.Pool
}

func NewFolderAlbumRepository(pool *pgxpool.Pool) *FolderAlbumRepository {
	return &FolderAlbumRepository{pool: pool}
}

// Find returns the mapping for a folder, or nil if absent.
func (r *FolderAlbumRepository) Find(ctx context.Context, userKey, remoteFolderID string) (*models.FolderAlbumMapping, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_key, remote_folder_id, folder_name, album_id, album_url,
		       total_items_in_album, discovered_via_api, album_deleted, created_at, last_updated_at
		FROM folder_album_mappings
		WHERE user_key = $1 AND remote_folder_id = $2`, userKey, remoteFolderID)

	m := &models.FolderAlbumMapping{}
	err := row.Scan(&m.ID, &m.UserKey, &m.RemoteFolderID, &m.FolderName, &m.AlbumID, &m.AlbumURL,
		&m.TotalItemsInAlbum, &m.DiscoveredViaAPI, &m.AlbumDeleted, &m.CreatedAt, &m.LastUpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Upsert persists the mapping after a successful album workflow.
func (r *FolderAlbumRepository) Upsert(ctx context.Context, m *models.FolderAlbumMapping) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO folder_album_mappings
			(id, user_key, remote_folder_id, folder_name, album_id, album_url,
			 total_items_in_album, discovered_via_api, album_deleted, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, NOW())
		ON CONFLICT (user_key, remote_folder_id)
		DO UPDATE SET
			folder_name = EXCLUDED.folder_name,
			album_id = EXCLUDED.album_id,
			album_url = EXCLUDED.album_url,
			total_items_in_album = EXCLUDED.total_items_in_album,
			discovered_via_api = EXCLUDED.discovered_via_api,
			album_deleted = FALSE,
			last_updated_at = NOW()`,
		m.ID, m.UserKey, m.RemoteFolderID, m.FolderName, m.AlbumID, m.AlbumURL,
		m.TotalItemsInAlbum, m.DiscoveredViaAPI,
	)
	return err
}

// MarkAlbumDeleted flags the mapping when the remote album is gone.
// The next workflow for the folder falls back to CREATE mode.
func (r *FolderAlbumRepository) MarkAlbumDeleted(ctx context.Context, userKey, remoteFolderID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE folder_album_mappings
		SET album_deleted = TRUE, last_updated_at = NOW()
		WHERE user_key = $1 AND remote_folder_id = $2`, userKey, remoteFolderID)
	return err
}

// ListForUser returns all mappings for a user.
func (r *FolderAlbumRepository) ListForUser(ctx context.Context, userKey string) ([]models.FolderAlbumMapping, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_key, remote_folder_id, folder_name, album_id, album_url,
		       total_items_in_album, discovered_via_api, album_deleted, created_at, last_updated_at
		FROM folder_album_mappings
		WHERE user_key = $1
		ORDER BY created_at DESC`, userKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FolderAlbumMapping
	for rows.Next() {
		var m models.FolderAlbumMapping
		if err := rows.Scan(&m.ID, &m.UserKey, &m.RemoteFolderID, &m.FolderName, &m.AlbumID, &m.AlbumURL,
			&m.TotalItemsInAlbum, &m.DiscoveredViaAPI, &m.AlbumDeleted, &m.CreatedAt, &m.LastUpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
