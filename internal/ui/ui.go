package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/player"
	"github.com/desertthunder/playq/internal/shared"
	"github.com/desertthunder/playq/internal/tasks"
)

const (
	maxNotices   = 3
	maxQueueRows = 5
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	PlayerView
)

// PlaylistSource lists the playlists offered in [PlaylistListView].
type PlaylistSource interface {
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	source       PlaylistSource
	player       *player.Player
	width        int
	height       int
	playlistList list.Model
	itemList     list.Model
	state        models.QueueState
	stateCh      chan models.QueueState
	unsubscribe  func()
	notices      []tasks.Notice
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model and subscribes it to the player's state.
//
// Call [Model.Close] once the program exits.
func NewModel(ctx context.Context, source PlaylistSource, p *player.Player) *Model {
	m := &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		source:       source,
		player:       p,
		playlistList: newList("Playlists"),
		itemList:     newList("Items"),
		state:        p.State(),
		stateCh:      make(chan models.QueueState, 1),
		help:         help.New(),
		keys:         newKeyMap(),
	}
	m.unsubscribe = p.Subscribe(m.publish)
	return m
}

func newList(title string) list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// publish keeps only the latest snapshot so a slow render loop never blocks the store.
func (m *Model) publish(st models.QueueState) {
	for {
		select {
		case m.stateCh <- st:
			return
		default:
		}
		select {
		case <-m.stateCh:
		default:
		}
	}
}

// Close unsubscribes from the player.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Init fetches playlists and starts listening for state changes and notices.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchPlaylists(), m.waitForState(), m.waitForNotice())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		m.itemList.SetSize(msg.Width-4, msg.Height-14)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case PlayerView:
			return m.handlePlayerKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(struct {
			playlists []models.Playlist
			err       error
		})
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		items := make([]list.Item, len(data.playlists))
		for i, pl := range data.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		return m, m.playlistList.SetItems(items)

	case MsgPlaylistLoaded:
		if err, _ := msg.data.(error); err != nil {
			m.status = fmt.Sprintf("failed to load playlist: %v", err)
			return m, nil
		}
		m.status = ""
		m.view = PlayerView
		return m, nil

	case MsgStateChanged:
		return m, tea.Batch(m.applyState(msg.data.(models.QueueState)), m.waitForState())

	case MsgNotice:
		n := msg.data.(tasks.Notice)
		m.notices = append(m.notices, n)
		if len(m.notices) > maxNotices {
			m.notices = m.notices[len(m.notices)-maxNotices:]
		}
		return m, m.waitForNotice()

	case MsgDispatched:
		data := msg.data.(struct {
			kind player.EventKind
			err  error
		})
		m.status = ""
		if data.err != nil {
			m.status = dispatchError(data.kind, data.err)
		}
		return m, nil
	}
	return m, nil
}

// applyState installs a snapshot and rebuilds the item list, keeping the cursor on the same row.
func (m *Model) applyState(st models.QueueState) tea.Cmd {
	cursor := m.itemList.Index()
	m.state = st
	cmd := m.itemList.SetItems(mediaItems(st))
	if st.CurrentPlaylist != nil {
		m.itemList.Title = st.CurrentPlaylist.Name
		if n := st.CurrentPlaylist.Len(); cursor >= n && n > 0 {
			cursor = n - 1
		}
		m.itemList.Select(cursor)
	}
	return cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case PlayerView:
		return m.renderPlayer()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.SettingFilter() {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.status = fmt.Sprintf("loading %s...", pl.playlist.Name)
			return m, m.loadPlaylist(pl.playlist.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handlePlayerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.itemList.SettingFilter() {
		var cmd tea.Cmd
		m.itemList, cmd = m.itemList.Update(msg)
		return m, cmd
	}

	selected, hasSelection := m.itemList.SelectedItem().(mediaItem)

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.itemList.FilterState() != list.Unfiltered {
			m.itemList.ResetFilter()
			return m, nil
		}
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		return m, m.move(selected, hasSelection, -1)
	case key.Matches(msg, m.keys.moveDown):
		return m, m.move(selected, hasSelection, 1)
	case key.Matches(msg, m.keys.enter):
		if hasSelection {
			return m, m.dispatch(player.Event{Kind: player.SetTrackIndex, Index: selected.index})
		}
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		return m, m.dispatch(player.Event{Kind: player.TogglePlay})
	case key.Matches(msg, m.keys.next):
		return m, m.dispatch(player.Event{Kind: player.SkipNext})
	case key.Matches(msg, m.keys.prev):
		return m, m.dispatch(player.Event{Kind: player.SkipPrevious})
	case key.Matches(msg, m.keys.trackEnd):
		return m, m.dispatch(player.Event{Kind: player.TrackEnded})
	case key.Matches(msg, m.keys.stop):
		return m, m.dispatch(player.Event{Kind: player.Stop})
	case key.Matches(msg, m.keys.enqueue):
		if hasSelection {
			return m, m.dispatch(player.Event{Kind: player.AddToQueue, Item: selected.item})
		}
		return m, nil
	case key.Matches(msg, m.keys.dequeue):
		if n := len(m.state.Queue); n > 0 {
			return m, m.dispatch(player.Event{Kind: player.RemoveFromQueue, Index: n - 1})
		}
		return m, nil
	case key.Matches(msg, m.keys.clearQueue):
		return m, m.dispatch(player.Event{Kind: player.ClearQueue})
	case key.Matches(msg, m.keys.remove):
		if hasSelection {
			return m, m.dispatch(player.Event{Kind: player.RemoveMedia, ItemID: selected.item.ID})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.itemList, cmd = m.itemList.Update(msg)
	return m, cmd
}

// move requests a one-step reorder of the selected item. The cursor follows the item right away;
// the ordering itself arrives through the store.
func (m *Model) move(selected mediaItem, ok bool, delta int) tea.Cmd {
	if !ok || m.state.CurrentPlaylist == nil {
		return nil
	}
	if m.itemList.FilterState() != list.Unfiltered {
		m.status = "clear the filter to reorder"
		return nil
	}
	dest := selected.index + delta
	if dest < 0 || dest >= m.state.CurrentPlaylist.Len() {
		return nil
	}
	m.itemList.Select(dest)
	return m.dispatch(player.Event{Kind: player.ReorderRequested, Source: selected.index, Dest: dest})
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case PlayerView:
		m.itemList, cmd = m.itemList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.source.ListPlaylists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) loadPlaylist(id string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.player.Dispatch(m.ctx, player.Event{Kind: player.SetPlaylist, PlaylistID: id})
		return playlistLoadedMsg(err)
	}
}

func (m *Model) dispatch(ev player.Event) tea.Cmd {
	return func() tea.Msg {
		_, err := m.player.Dispatch(m.ctx, ev)
		return dispatchedMsg(ev.Kind, err)
	}
}

func (m *Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		select {
		case st := <-m.stateCh:
			return stateChangedMsg(st)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForNotice() tea.Cmd {
	return func() tea.Msg {
		select {
		case n := <-m.player.Notices():
			return noticeMsg(n)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func dispatchError(kind player.EventKind, err error) string {
	switch {
	case errors.Is(err, shared.ErrNothingToPlay):
		return "nothing to play"
	case errors.Is(err, shared.ErrInvalidIndex), errors.Is(err, shared.ErrOutOfRange):
		return "no such item"
	default:
		return fmt.Sprintf("%s failed: %v", strings.ToLower(kind.String()), err)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	out := fmt.Sprintf("%s\n\n%s", m.playlistList.View(), m.help.ShortHelpView(helpKeys))
	if m.status != "" {
		out += "\n" + styles.help.Render(m.status)
	}
	return out
}

func (m *Model) renderPlayer() string {
	var b strings.Builder

	b.WriteString(styles.nowBar.Render(nowPlayingLine(m.state)))
	b.WriteString("\n")
	b.WriteString(m.itemList.View())
	b.WriteString("\n")

	if len(m.state.Queue) > 0 {
		b.WriteString(styles.section.Render(fmt.Sprintf("Up next (%d)", len(m.state.Queue))))
		b.WriteString("\n")
		for i, item := range m.state.Queue {
			if i == maxQueueRows {
				b.WriteString(styles.help.Render(fmt.Sprintf("  … %d more", len(m.state.Queue)-maxQueueRows)))
				b.WriteString("\n")
				break
			}
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, item.Title))
		}
	}

	for _, n := range m.notices {
		b.WriteString(styles.notice(n).Render(n.String()))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(styles.warn.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

// nowPlayingLine renders the status bar: play state, track, and where it came from.
func nowPlayingLine(st models.QueueState) string {
	item := st.NowPlaying()
	if item == nil {
		return "■ nothing playing"
	}

	marker := "⏸"
	if st.IsPlaying {
		marker = "▶"
	}
	source := ""
	if st.QueueTrack != nil {
		source = " (from queue)"
	}
	return fmt.Sprintf("%s %s [%s]%s", marker, item.Title, shared.FormatDuration(item.Duration), source)
}
