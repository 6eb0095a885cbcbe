package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// MediaItemRepository stores the ordered items of playlists.
type MediaItemRepository struct {
	db *sql.DB
}

// NewMediaItemRepository creates a new MediaItemRepository with the given database connection
func NewMediaItemRepository(db *sql.DB) *MediaItemRepository {
	return &MediaItemRepository{db: db}
}

// ListByPlaylist returns a playlist's items in position order.
func (r *MediaItemRepository) ListByPlaylist(playlistID string) ([]models.MediaItem, error) {
	return listItems(r.db, playlistID)
}

// Append adds item at the end of the playlist and returns the stored ordering.
func (r *MediaItemRepository) Append(playlistID string, item models.MediaItem) ([]models.MediaItem, error) {
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return r.write(playlistID, func(tx *sql.Tx, items []models.MediaItem, now time.Time) error {
		item.Position = len(items)
		return insertItem(tx, playlistID, item, now)
	})
}

// Remove deletes an item and closes the gap it leaves.
func (r *MediaItemRepository) Remove(playlistID, itemID string) ([]models.MediaItem, error) {
	return r.write(playlistID, func(tx *sql.Tx, items []models.MediaItem, _ time.Time) error {
		pos := -1
		for _, item := range items {
			if item.ID == itemID {
				pos = item.Position
			}
		}
		if pos < 0 {
			return fmt.Errorf("%w: %s", shared.ErrMediaItemNotFound, itemID)
		}

		if _, err := tx.Exec(`DELETE FROM media_items WHERE id = ? AND playlist_id = ?`, itemID, playlistID); err != nil {
			return fmt.Errorf("failed to delete media item: %w", err)
		}
		_, err := tx.Exec(`UPDATE media_items SET position = position - 1 WHERE playlist_id = ? AND position > ?`, playlistID, pos)
		if err != nil {
			return fmt.Errorf("failed to shift positions: %w", err)
		}
		return nil
	})
}

// Reorder stores ids as the playlist's new ordering. ids must name exactly the stored items.
func (r *MediaItemRepository) Reorder(playlistID string, ids []string) ([]models.MediaItem, error) {
	return r.write(playlistID, func(tx *sql.Tx, items []models.MediaItem, _ time.Time) error {
		if len(ids) != len(items) {
			return fmt.Errorf("%w: expected %d items, got %d", shared.ErrPersistenceConflict, len(items), len(ids))
		}

		stored := make(map[string]bool, len(items))
		for _, item := range items {
			stored[item.ID] = true
		}
		for _, id := range ids {
			if !stored[id] {
				return fmt.Errorf("%w: unknown or repeated media item %s", shared.ErrPersistenceConflict, id)
			}
			delete(stored, id)
		}

		for pos, id := range ids {
			if _, err := tx.Exec(`UPDATE media_items SET position = ? WHERE id = ? AND playlist_id = ?`, pos, id, playlistID); err != nil {
				return fmt.Errorf("failed to update position: %w", err)
			}
		}
		return nil
	})
}

// write runs fn in a transaction against the playlist's current items, touches the playlist and
// returns the resulting ordering.
func (r *MediaItemRepository) write(playlistID string, fn func(tx *sql.Tx, items []models.MediaItem, now time.Time) error) ([]models.MediaItem, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.Exec(`UPDATE playlists SET updated_at = ? WHERE id = ? AND deleted_at IS NULL`, now, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch playlist: %w", err)
	}
	if err := expectRow(result, shared.ErrPlaylistNotFound, playlistID); err != nil {
		return nil, err
	}

	items, err := listItems(tx, playlistID)
	if err != nil {
		return nil, err
	}
	if err := fn(tx, items, now); err != nil {
		return nil, err
	}

	items, err = listItems(tx, playlistID)
	if err != nil {
		return nil, err
	}
	if err := models.CheckDense(items); err != nil {
		return nil, fmt.Errorf("positions out of order after write: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit media items: %w", err)
	}
	return items, nil
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func listItems(q querier, playlistID string) ([]models.MediaItem, error) {
	rows, err := q.Query(`
		SELECT id, type, title, url, duration, position
		FROM media_items
		WHERE playlist_id = ?
		ORDER BY position ASC
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query media items: %w", err)
	}
	defer rows.Close()

	items := []models.MediaItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func scanItem(row rowScanner) (models.MediaItem, error) {
	var (
		item     models.MediaItem
		itemType string
	)
	if err := row.Scan(&item.ID, &itemType, &item.Title, &item.URL, &item.Duration, &item.Position); err != nil {
		return item, fmt.Errorf("failed to scan media item: %w", err)
	}

	t, err := models.ParseMediaType(itemType)
	if err != nil {
		return item, err
	}
	item.Type = t
	return item, nil
}

func insertItem(tx *sql.Tx, playlistID string, item models.MediaItem, now time.Time) error {
	query := `
		INSERT INTO media_items (id, playlist_id, type, title, url, duration, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.Exec(query, item.ID, playlistID, item.Type.String(), item.Title, item.URL, item.Duration, item.Position, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: media item %s already exists", shared.ErrInvalidInput, item.ID)
		}
		return fmt.Errorf("failed to insert media item: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
}
