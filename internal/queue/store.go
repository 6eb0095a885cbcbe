package queue

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/shared"
)

// Listener receives a snapshot after every state change.
type Listener func(models.QueueState)

// Store is a mutex-guarded container for [models.QueueState].
type Store struct {
	mu        sync.Mutex
	state     models.QueueState
	listeners map[int]Listener
	nextID    int
	logger    *log.Logger

	// outbox holds snapshots not yet delivered. Only the goroutine that set dispatching drains it,
	// so listeners see snapshots in the order the changes were made.
	outbox      []models.QueueState
	dispatching bool
}

// NewStore creates an empty (Idle) store. A nil logger writes to stderr.
func NewStore(logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(os.Stderr)
	}
	return &Store{
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// State returns a deep copy of the current state.
func (s *Store) State() models.QueueState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Status reports the state machine position.
func (s *Store) Status() models.QueueStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status()
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// update runs fn under the lock and notifies listeners when fn reports a change.
//
// Listeners run without the lock held. When another goroutine is already delivering, the
// snapshot is queued behind the ones it has yet to send and update returns without waiting.
func (s *Store) update(fn func(st *models.QueueState) (bool, error)) error {
	s.mu.Lock()
	changed, err := fn(&s.state)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.outbox = append(s.outbox, s.state.Clone())
	if s.dispatching {
		s.mu.Unlock()
		return nil
	}

	s.dispatching = true
	for len(s.outbox) > 0 {
		snapshot := s.outbox[0]
		s.outbox = s.outbox[1:]
		listeners := make([]Listener, 0, len(s.listeners))
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
		s.mu.Unlock()

		for _, l := range listeners {
			l(snapshot.Clone())
		}
		s.mu.Lock()
	}
	s.outbox = nil
	s.dispatching = false
	s.mu.Unlock()
	return nil
}

// SetPlaylist loads p and points at its first item without changing IsPlaying.
//
// Loading an empty playlist leaves no track selected and pauses playback.
func (s *Store) SetPlaylist(p *models.Playlist) error {
	if p == nil {
		return fmt.Errorf("%w: playlist is nil", shared.ErrInvalidInput)
	}
	return s.update(func(st *models.QueueState) (bool, error) {
		st.CurrentPlaylist = p.Clone()
		st.QueueTrack = nil
		st.Finished = false
		if len(p.MediaItems) == 0 {
			st.CurrentTrackIndex = nil
			st.IsPlaying = false
		} else {
			st.CurrentTrackIndex = intPtr(0)
		}
		s.logger.Debug("playlist loaded", "playlist", p.ID, "items", len(p.MediaItems))
		return true, nil
	})
}

// SetTrackIndex selects item i of the loaded playlist.
func (s *Store) SetTrackIndex(i int) error {
	return s.update(func(st *models.QueueState) (bool, error) {
		n := st.CurrentPlaylist.Len()
		if i < 0 || i >= n {
			return false, fmt.Errorf("%w: track index %d not in [0, %d)", shared.ErrOutOfRange, i, n)
		}
		st.CurrentTrackIndex = intPtr(i)
		st.QueueTrack = nil
		st.Finished = false
		return true, nil
	})
}

// TogglePlay flips IsPlaying.
//
// Starting playback with no playable track, or after playback finished with entries queued
// since, pops the head of the queue. With nothing playable and an empty queue it fails with
// [shared.ErrNothingToPlay]; a finished track with nothing queued plays again.
func (s *Store) TogglePlay() error {
	return s.update(func(st *models.QueueState) (bool, error) {
		if st.IsPlaying {
			st.IsPlaying = false
			return true, nil
		}
		switch {
		case st.NowPlaying() == nil && len(st.Queue) == 0:
			return false, shared.ErrNothingToPlay
		case st.NowPlaying() == nil, st.Finished && len(st.Queue) > 0:
			popQueue(st)
		}
		st.Finished = false
		st.IsPlaying = true
		return true, nil
	})
}

// AddToQueue appends item to the play-next queue. Duplicate ids are allowed.
func (s *Store) AddToQueue(item models.MediaItem) {
	_ = s.update(func(st *models.QueueState) (bool, error) {
		st.Queue = append(st.Queue, item)
		return true, nil
	})
}

// RemoveFromQueue removes the entry at index and reports whether anything changed.
// An out-of-range index leaves the state untouched.
func (s *Store) RemoveFromQueue(index int) bool {
	var removed bool
	_ = s.update(func(st *models.QueueState) (bool, error) {
		if index < 0 || index >= len(st.Queue) {
			return false, nil
		}
		st.Queue = append(st.Queue[:index:index], st.Queue[index+1:]...)
		removed = true
		return true, nil
	})
	return removed
}

// ClearQueue empties the play-next queue and leaves the playlist alone.
func (s *Store) ClearQueue() {
	_ = s.update(func(st *models.QueueState) (bool, error) {
		if len(st.Queue) == 0 {
			return false, nil
		}
		st.Queue = nil
		return true, nil
	})
}

// Reset returns the store to Idle, discarding the playlist, queue and active track.
func (s *Store) Reset() {
	_ = s.update(func(st *models.QueueState) (bool, error) {
		*st = models.QueueState{}
		return true, nil
	})
}

// ReplaceItems installs a reconciled ordering for playlistID.
//
// It returns false, leaving the state untouched, unless playlistID is the loaded playlist. The
// current index follows the now-playing item by id; if that item is gone the index is clamped,
// and an emptied playlist pauses playlist-sourced playback.
func (s *Store) ReplaceItems(playlistID string, items []models.MediaItem) bool {
	var applied bool
	_ = s.update(func(st *models.QueueState) (bool, error) {
		if st.CurrentPlaylist == nil || st.CurrentPlaylist.ID != playlistID {
			s.logger.Debug("discarding stale ordering", "playlist", playlistID)
			return false, nil
		}

		var playingID string
		if st.CurrentTrackIndex != nil {
			if item := st.CurrentPlaylist.Item(*st.CurrentTrackIndex); item != nil {
				playingID = item.ID
			}
		}

		st.CurrentPlaylist = st.CurrentPlaylist.WithItems(items)
		st.CurrentTrackIndex = followIndex(items, playingID, st.CurrentTrackIndex)
		if st.CurrentTrackIndex == nil && st.QueueTrack == nil {
			st.IsPlaying = false
		}
		applied = true
		return true, nil
	})
	return applied
}

func followIndex(items []models.MediaItem, playingID string, prev *int) *int {
	n := len(items)
	if n == 0 {
		return nil
	}
	if prev == nil {
		return intPtr(0)
	}
	for i, item := range items {
		if item.ID == playingID {
			return intPtr(i)
		}
	}
	return intPtr(min(*prev, n-1))
}

// popQueue moves the queue head into QueueTrack. The caller checks the queue is non-empty.
func popQueue(st *models.QueueState) {
	head := st.Queue[0]
	st.QueueTrack = &head
	st.Queue = append([]models.MediaItem(nil), st.Queue[1:]...)
	if len(st.Queue) == 0 {
		st.Queue = nil
	}
}

func intPtr(i int) *int { return &i }
