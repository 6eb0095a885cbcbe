package models

// QueueStatus names the three states of the queue store's state machine.
type QueueStatus int

const (
	StatusIdle QueueStatus = iota
	StatusLoadedPaused
	StatusLoadedPlaying
)

func (s QueueStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoadedPaused:
		return "paused"
	case StatusLoadedPlaying:
		return "playing"
	default:
		return ""
	}
}

// QueueState is the ephemeral playback snapshot. It is never persisted.
//
// QueueTrack is set while playback has been handed off to an entry popped from Queue;
// CurrentPlaylist is then kept only as a historical reference and is not modified.
// Finished marks that playback ran out of tracks; it clears on the next track selection.
type QueueState struct {
	CurrentPlaylist   *Playlist   `json:"currentPlaylist"`
	CurrentTrackIndex *int        `json:"currentTrackIndex"`
	IsPlaying         bool        `json:"isPlaying"`
	Queue             []MediaItem `json:"queue"`
	QueueTrack        *MediaItem  `json:"queueTrack,omitempty"`
	Finished          bool        `json:"finished,omitempty"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s QueueState) Clone() QueueState {
	cp := QueueState{
		CurrentPlaylist: s.CurrentPlaylist.Clone(),
		IsPlaying:       s.IsPlaying,
		Queue:           CloneItems(s.Queue),
		Finished:        s.Finished,
	}
	if s.CurrentTrackIndex != nil {
		i := *s.CurrentTrackIndex
		cp.CurrentTrackIndex = &i
	}
	if s.QueueTrack != nil {
		t := *s.QueueTrack
		cp.QueueTrack = &t
	}
	return cp
}

// Status derives the state machine position from the snapshot.
func (s QueueState) Status() QueueStatus {
	if s.CurrentPlaylist == nil && s.QueueTrack == nil {
		return StatusIdle
	}
	if s.IsPlaying {
		return StatusLoadedPlaying
	}
	return StatusLoadedPaused
}

// NowPlaying returns the active track: the queue-sourced track when set, otherwise the playlist item at the index.
func (s QueueState) NowPlaying() *MediaItem {
	if s.QueueTrack != nil {
		t := *s.QueueTrack
		return &t
	}
	if s.CurrentTrackIndex == nil {
		return nil
	}
	if item := s.CurrentPlaylist.Item(*s.CurrentTrackIndex); item != nil {
		t := *item
		return &t
	}
	return nil
}
