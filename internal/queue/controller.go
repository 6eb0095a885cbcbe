package queue

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/shared"
)

// Controller decides what plays next. It owns no state of its own; every decision is a single
// atomic transition of the underlying [Store].
type Controller struct {
	store  *Store
	logger *log.Logger
}

// NewController creates a controller driving store.
func NewController(store *Store, logger *log.Logger) *Controller {
	if logger == nil {
		logger = shared.NewLogger(os.Stderr)
	}
	return &Controller{store: store, logger: logger}
}

// Store returns the store the controller drives.
func (c *Controller) Store() *Store { return c.store }

// OnTrackEnd advances after the active track finished and keeps playing.
//
// With neither a next playlist item nor a queued entry, playback stops and the index stays put.
func (c *Controller) OnTrackEnd() {
	_ = c.store.update(func(st *models.QueueState) (bool, error) {
		if st.Status() == models.StatusIdle {
			return false, nil
		}
		if advance(st) {
			st.IsPlaying = true
			c.logger.Debug("advanced after track end", "track", nowPlayingID(st))
			return true, nil
		}
		c.logger.Debug("playback exhausted")
		st.IsPlaying = false
		st.Finished = true
		return true, nil
	})
}

// SkipNext applies the OnTrackEnd rules without starting paused playback.
func (c *Controller) SkipNext() {
	_ = c.store.update(func(st *models.QueueState) (bool, error) {
		if st.Status() == models.StatusIdle {
			return false, nil
		}
		if advance(st) {
			return true, nil
		}
		if !st.IsPlaying {
			return false, nil
		}
		st.IsPlaying = false
		st.Finished = true
		return true, nil
	})
}

// SkipPrevious steps back one item within the playlist. From a queue track it returns to the
// playlist item that played before the queue took over. It never touches the play-next queue
// and does nothing at index 0.
func (c *Controller) SkipPrevious() {
	_ = c.store.update(func(st *models.QueueState) (bool, error) {
		if st.CurrentTrackIndex == nil {
			return false, nil
		}
		switch {
		case st.QueueTrack != nil:
			st.QueueTrack = nil
		case *st.CurrentTrackIndex == 0:
			return false, nil
		default:
			st.CurrentTrackIndex = intPtr(*st.CurrentTrackIndex - 1)
		}
		st.Finished = false
		return true, nil
	})
}

// Stop returns the store to Idle.
func (c *Controller) Stop() { c.store.Reset() }

// NowPlaying returns a copy of the active track, or nil.
func (c *Controller) NowPlaying() *models.MediaItem {
	st := c.store.State()
	return st.NowPlaying()
}

// advance moves to the next playlist item, else to the queue head. It reports false when
// neither exists, leaving st untouched.
func advance(st *models.QueueState) bool {
	if st.CurrentTrackIndex != nil && *st.CurrentTrackIndex+1 < st.CurrentPlaylist.Len() {
		st.CurrentTrackIndex = intPtr(*st.CurrentTrackIndex + 1)
		st.QueueTrack = nil
		st.Finished = false
		return true
	}
	if len(st.Queue) > 0 {
		popQueue(st)
		st.Finished = false
		return true
	}
	return false
}

func nowPlayingID(st *models.QueueState) string {
	if item := st.NowPlaying(); item != nil {
		return item.ID
	}
	return ""
}
