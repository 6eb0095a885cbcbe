package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/playq/internal/shared"
)

// Playlist is an ordered collection of media items owned by a user and optionally shared with a group.
type Playlist struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	OwnerID     string      `json:"ownerId"`
	GroupID     *string     `json:"groupId,omitempty"`
	MediaItems  []MediaItem `json:"mediaItems"`
	PlayCount   int         `json:"playCount"`
	Timestamps
}

// GetID implements [Model].
func (p *Playlist) GetID() string { return p.ID }

// TotalDuration is the sum of item durations in seconds.
func (p *Playlist) TotalDuration() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, item := range p.MediaItems {
		total += item.Duration
	}
	return total
}

// Len returns the number of media items; nil playlists are empty.
func (p *Playlist) Len() int {
	if p == nil {
		return 0
	}
	return len(p.MediaItems)
}

// Item returns the item at index i, or nil when i is out of range.
func (p *Playlist) Item(i int) *MediaItem {
	if p == nil || i < 0 || i >= len(p.MediaItems) {
		return nil
	}
	return &p.MediaItems[i]
}

// Clone returns a deep copy of the playlist.
func (p *Playlist) Clone() *Playlist {
	if p == nil {
		return nil
	}
	cp := *p
	cp.MediaItems = CloneItems(p.MediaItems)
	if p.GroupID != nil {
		g := *p.GroupID
		cp.GroupID = &g
	}
	return &cp
}

// WithItems returns a copy of the playlist carrying items instead of its own.
func (p *Playlist) WithItems(items []MediaItem) *Playlist {
	cp := p.Clone()
	cp.MediaItems = CloneItems(items)
	return cp
}

// Validate checks required fields, every item, and the dense-position invariant.
func (p *Playlist) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: playlist %s has no name", shared.ErrInvalidInput, p.ID)
	}
	if p.PlayCount < 0 {
		return fmt.Errorf("%w: playlist %s has negative play count", shared.ErrInvalidInput, p.ID)
	}
	for _, item := range p.MediaItems {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return CheckDense(p.MediaItems)
}
