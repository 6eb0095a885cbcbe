package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/shared"
)

const playlistColumns = `id, sequence, name, description, owner_id, group_id, play_count, created_at, updated_at`

// PlaylistRepository implements models.Repository[*models.Playlist].
//
// Handles playlist CRUD operations with soft delete support. Reads include the playlist's items in
// position order.
type PlaylistRepository struct {
	db    *sql.DB
	items *MediaItemRepository
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db, items: NewMediaItemRepository(db)}
}

// Items returns the repository used for the playlist's media items.
func (r *PlaylistRepository) Items() *MediaItemRepository { return r.items }

// Create inserts a new playlist and any items it carries. An empty ID is generated.
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	if playlist.ID == "" {
		playlist.ID = shared.GenerateID()
	}
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	now := time.Now().UTC()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO playlists (id, sequence, name, description, owner_id, group_id, play_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		playlist.ID,
		sequence,
		playlist.Name,
		playlist.Description,
		playlist.OwnerID,
		playlist.GroupID,
		playlist.PlayCount,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	for _, item := range playlist.MediaItems {
		if err := insertItem(tx, playlist.ID, item, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist: %w", err)
	}
	return nil
}

// Get retrieves a playlist with its items, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ? AND deleted_at IS NULL`

	playlist, err := scanPlaylist(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	items, err := r.items.ListByPlaylist(id)
	if err != nil {
		return nil, err
	}
	playlist.MediaItems = items
	return playlist, nil
}

// Update modifies a playlist's metadata and play count. Items are managed by [MediaItemRepository].
//
// The play count only ever grows; a lower value is ignored.
func (r *PlaylistRepository) Update(playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	query := `
		UPDATE playlists
		SET name = ?, description = ?, group_id = ?, play_count = MAX(play_count, ?), updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		playlist.Name,
		playlist.Description,
		playlist.GroupID,
		playlist.PlayCount,
		now,
		playlist.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	if err := expectRow(result, shared.ErrPlaylistNotFound, playlist.ID); err != nil {
		return err
	}
	playlist.UpdatedAt = now
	return nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	query := `
		UPDATE playlists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return expectRow(result, shared.ErrPlaylistNotFound, id)
}

// List retrieves all playlists matching the given criteria, excluding soft-deleted playlists.
//
// Supported criteria: "owner_id" and "group_id" (strings).
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE deleted_at IS NULL`
	args := []any{}

	if ownerID, ok := criteria["owner_id"].(string); ok && ownerID != "" {
		query += " AND owner_id = ?"
		args = append(args, ownerID)
	}

	if groupID, ok := criteria["group_id"].(string); ok && groupID != "" {
		query += " AND group_id = ?"
		args = append(args, groupID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, playlist := range playlists {
		items, err := r.items.ListByPlaylist(playlist.ID)
		if err != nil {
			return nil, err
		}
		playlist.MediaItems = items
	}

	return playlists, nil
}

// scanPlaylist scans one playlist row; the error wraps [sql.ErrNoRows] when there is none.
func scanPlaylist(row rowScanner) (*models.Playlist, error) {
	var (
		p        models.Playlist
		sequence int
		groupID  sql.NullString
	)

	err := row.Scan(&p.ID, &sequence, &p.Name, &p.Description, &p.OwnerID, &groupID, &p.PlayCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	if groupID.Valid {
		g := groupID.String
		p.GroupID = &g
	}
	return &p, nil
}

func expectRow(result sql.Result, notFound error, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}
