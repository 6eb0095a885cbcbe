package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/playq/internal/shared"
)

// MediaType enumerates the kinds of media a playlist can hold.
type MediaType int

const (
	MediaMusic MediaType = iota
	MediaVideo
	MediaSocial
	MediaPodcast
)

func (t MediaType) String() string {
	switch t {
	case MediaMusic:
		return "music"
	case MediaVideo:
		return "video"
	case MediaSocial:
		return "social"
	case MediaPodcast:
		return "podcast"
	default:
		return ""
	}
}

// ParseMediaType converts a lowercase type name into a [MediaType].
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "music":
		return MediaMusic, nil
	case "video":
		return MediaVideo, nil
	case "social":
		return MediaSocial, nil
	case "podcast":
		return MediaPodcast, nil
	default:
		return 0, fmt.Errorf("%w: unknown media type %q", shared.ErrInvalidInput, s)
	}
}

func (t MediaType) MarshalJSON() ([]byte, error) {
	s := t.String()
	if s == "" {
		return nil, fmt.Errorf("%w: unknown media type %d", shared.ErrInvalidInput, int(t))
	}
	return json.Marshal(s)
}

func (t *MediaType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMediaType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MediaItem is a single playable entry of a playlist.
//
// Everything but Position is immutable once created.
type MediaItem struct {
	ID       string    `json:"id"`
	Type     MediaType `json:"type"`
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Duration int       `json:"duration"` // seconds
	Position int       `json:"position"`
}

// GetID implements [Model].
func (m MediaItem) GetID() string { return m.ID }

// Validate checks the item's own fields; position density is a playlist-level concern.
func (m MediaItem) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: media item id is required", shared.ErrInvalidInput)
	}
	if m.Type.String() == "" {
		return fmt.Errorf("%w: media item %s has unknown type", shared.ErrInvalidInput, m.ID)
	}
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: media item %s has no title", shared.ErrInvalidInput, m.ID)
	}
	if m.Duration < 0 {
		return fmt.Errorf("%w: media item %s has negative duration", shared.ErrInvalidInput, m.ID)
	}
	return nil
}

// CloneItems returns a copy of items that shares no backing array with the input.
func CloneItems(items []MediaItem) []MediaItem {
	if items == nil {
		return nil
	}
	out := make([]MediaItem, len(items))
	copy(out, items)
	return out
}

// IDs returns the id sequence of items, in order.
func IDs(items []MediaItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

// CheckDense reports an error unless items[i].Position == i for every i and ids are unique.
func CheckDense(items []MediaItem) error {
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item.Position != i {
			return fmt.Errorf("%w: item %s at index %d has position %d", shared.ErrInvalidInput, item.ID, i, item.Position)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("%w: duplicate media item %s", shared.ErrInvalidInput, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}
