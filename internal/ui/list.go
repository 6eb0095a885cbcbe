package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/shared"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = mediaItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d items • %s", i.playlist.Len(), shared.FormatDuration(i.playlist.TotalDuration()))
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Description)
	}
	return desc
}

// mediaItem wraps [models.MediaItem] to implement [list.Item]. index is the item's playlist position.
type mediaItem struct {
	item    models.MediaItem
	index   int
	playing bool
}

func (i mediaItem) FilterValue() string { return i.item.Title }
func (i mediaItem) Title() string {
	if i.playing {
		return "▶ " + i.item.Title
	}
	return i.item.Title
}
func (i mediaItem) Description() string {
	return fmt.Sprintf("%d • %s • %s", i.index+1, i.item.Type, shared.FormatDuration(i.item.Duration))
}

// mediaItems builds list items for the state's playlist, marking the playlist-sourced current track.
func mediaItems(st models.QueueState) []list.Item {
	if st.CurrentPlaylist == nil {
		return []list.Item{}
	}
	current := -1
	if st.CurrentTrackIndex != nil && st.QueueTrack == nil {
		current = *st.CurrentTrackIndex
	}
	items := make([]list.Item, st.CurrentPlaylist.Len())
	for i, item := range st.CurrentPlaylist.MediaItems {
		items[i] = mediaItem{item: item, index: i, playing: i == current}
	}
	return items
}
