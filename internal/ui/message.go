package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/player"
	"github.com/desertthunder/playq/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgPlaylistLoaded
	MsgStateChanged
	MsgNotice
	MsgDispatched
)

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{
		kind: MsgPlaylistsFetched,
		data: struct {
			playlists []models.Playlist
			err       error
		}{playlists, err},
	}
}

// playlistLoadedMsg is the constructor for [MsgPlaylistLoaded]
func playlistLoadedMsg(err error) Msg {
	return Msg{kind: MsgPlaylistLoaded, data: err}
}

// stateChangedMsg is the constructor for [MsgStateChanged]
func stateChangedMsg(st models.QueueState) Msg {
	return Msg{kind: MsgStateChanged, data: st}
}

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(n tasks.Notice) Msg {
	return Msg{kind: MsgNotice, data: n}
}

// dispatchedMsg is the constructor for [MsgDispatched]
func dispatchedMsg(kind player.EventKind, err error) Msg {
	return Msg{
		kind: MsgDispatched,
		data: struct {
			kind player.EventKind
			err  error
		}{kind, err},
	}
}
