// Package player is the UI-facing surface of the engine: a state getter, an event dispatcher and
// a subscription for re-rendering.
//
// Events that only touch playback state go straight to the queue store or controller. Playlist
// edits go through the sync coordinator, which applies them optimistically and persists them in
// the background; their outcome arrives later as a [tasks.Notice], never as a Dispatch error.
package player

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/queue"
	"github.com/desertthunder/playq/internal/shared"
	"github.com/desertthunder/playq/internal/tasks"
)

// EventKind enumerates the events a UI may dispatch.
type EventKind int

const (
	SetPlaylist EventKind = iota
	SetTrackIndex
	TogglePlay
	AddToQueue
	RemoveFromQueue
	ClearQueue
	ReorderRequested
	AddMedia
	RemoveMedia
	TrackEnded
	SkipNext
	SkipPrevious
	Stop
)

func (k EventKind) String() string {
	switch k {
	case SetPlaylist:
		return "SET_PLAYLIST"
	case SetTrackIndex:
		return "SET_TRACK_INDEX"
	case TogglePlay:
		return "TOGGLE_PLAY"
	case AddToQueue:
		return "ADD_TO_QUEUE"
	case RemoveFromQueue:
		return "REMOVE_FROM_QUEUE"
	case ClearQueue:
		return "CLEAR_QUEUE"
	case ReorderRequested:
		return "REORDER_REQUESTED"
	case AddMedia:
		return "ADD_MEDIA"
	case RemoveMedia:
		return "REMOVE_MEDIA"
	case TrackEnded:
		return "TRACK_ENDED"
	case SkipNext:
		return "SKIP_NEXT"
	case SkipPrevious:
		return "SKIP_PREVIOUS"
	case Stop:
		return "STOP"
	default:
		return ""
	}
}

// Event carries the payload for one [EventKind]. Only the fields the kind uses are read.
type Event struct {
	Kind       EventKind
	PlaylistID string           // SetPlaylist
	Index      int              // SetTrackIndex, RemoveFromQueue
	Source     int              // ReorderRequested
	Dest       int              // ReorderRequested
	Item       models.MediaItem // AddToQueue, AddMedia
	ItemID     string           // RemoveMedia
}

// Player wires the store, the playback controller and the sync coordinator together.
type Player struct {
	store      *queue.Store
	controller *queue.Controller
	coord      *tasks.Coordinator
	logger     *log.Logger
}

// New creates a player. The coordinator must reconcile into the same store.
func New(store *queue.Store, coord *tasks.Coordinator, logger *log.Logger) *Player {
	if logger == nil {
		logger = shared.NewLogger(os.Stderr)
	}
	return &Player{
		store:      store,
		controller: queue.NewController(store, logger),
		coord:      coord,
		logger:     logger,
	}
}

// State returns a snapshot of the queue state.
func (p *Player) State() models.QueueState { return p.store.State() }

// Subscribe registers fn for every state change and returns its unsubscribe function.
func (p *Player) Subscribe(fn queue.Listener) func() { return p.store.Subscribe(fn) }

// Notices exposes the coordinator's notices.
func (p *Player) Notices() <-chan tasks.Notice { return p.coord.Notices() }

// ApplyRemote reconciles a collaborator's change pushed by the change feed. It reports whether the
// visible ordering changed.
func (p *Player) ApplyRemote(pl *models.Playlist) bool { return p.coord.ApplyRemote(pl) }

// NowPlaying returns the active track, or nil.
func (p *Player) NowPlaying() *models.MediaItem { return p.controller.NowPlaying() }

// Dispatch handles one event. Index errors are returned synchronously; persistence outcomes are
// reported through the returned mutation and [Player.Notices].
func (p *Player) Dispatch(ctx context.Context, ev Event) (*tasks.Mutation, error) {
	p.logger.Debug("dispatch", "event", ev.Kind)

	switch ev.Kind {
	case SetPlaylist:
		loaded, err := p.coord.Load(ctx, ev.PlaylistID)
		if err != nil {
			return nil, err
		}
		return nil, p.store.SetPlaylist(loaded)
	case SetTrackIndex:
		return nil, p.store.SetTrackIndex(ev.Index)
	case TogglePlay:
		return nil, p.store.TogglePlay()
	case AddToQueue:
		p.store.AddToQueue(ev.Item)
		return nil, nil
	case RemoveFromQueue:
		p.store.RemoveFromQueue(ev.Index)
		return nil, nil
	case ClearQueue:
		p.store.ClearQueue()
		return nil, nil
	case ReorderRequested:
		id, err := p.currentPlaylistID()
		if err != nil {
			return nil, err
		}
		return p.coord.Reorder(id, ev.Source, ev.Dest)
	case AddMedia:
		id, err := p.currentPlaylistID()
		if err != nil {
			return nil, err
		}
		return p.coord.Add(id, ev.Item)
	case RemoveMedia:
		id, err := p.currentPlaylistID()
		if err != nil {
			return nil, err
		}
		return p.coord.Remove(id, ev.ItemID)
	case TrackEnded:
		p.controller.OnTrackEnd()
		return nil, nil
	case SkipNext:
		p.controller.SkipNext()
		return nil, nil
	case SkipPrevious:
		p.controller.SkipPrevious()
		return nil, nil
	case Stop:
		p.controller.Stop()
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown event %d", shared.ErrInvalidInput, ev.Kind)
	}
}

func (p *Player) currentPlaylistID() (string, error) {
	st := p.store.State()
	if st.CurrentPlaylist == nil {
		return "", shared.ErrPlaylistNotLoaded
	}
	return st.CurrentPlaylist.ID, nil
}
