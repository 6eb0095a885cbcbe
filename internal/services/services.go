// package services implements the client side of the Playlist Persistence API
package services

import (
	"github.com/desertthunder/playq/internal/models"
)

// EventPlaylistUpdated is the change feed event type emitted after every playlist write.
const EventPlaylistUpdated = "playlist.updated"

// ItemPosition is one entry of a reorder request.
type ItemPosition struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// ReorderRequest is the body of PUT /playlists/{id}/reorder.
type ReorderRequest struct {
	MediaItems []ItemPosition `json:"mediaItems"`
}

// ReorderResponse carries the persisted, authoritative ordering.
type ReorderResponse struct {
	MediaItems []models.MediaItem `json:"mediaItems"`
}

// AddMediaRequest is the body of POST /playlists/{id}/media.
type AddMediaRequest struct {
	MediaItem models.MediaItem `json:"mediaItem"`
}

// CreatePlaylistRequest is the body of POST /playlists.
type CreatePlaylistRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	OwnerID     string  `json:"ownerId"`
	GroupID     *string `json:"groupId,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Event is one message on the change feed.
type Event struct {
	Type     string           `json:"type"`
	Playlist *models.Playlist `json:"playlist"`
}

// Positions converts an ordering into reorder request entries.
func Positions(items []models.MediaItem) []ItemPosition {
	out := make([]ItemPosition, len(items))
	for i, item := range items {
		out[i] = ItemPosition{ID: item.ID, Position: i}
	}
	return out
}
