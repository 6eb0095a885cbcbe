package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/desertthunder/playq/internal/shared"
)

func testItems() []MediaItem {
	return []MediaItem{
		{ID: "a", Type: MediaMusic, Title: "Alpha", URL: "https://example.com/a", Duration: 180, Position: 0},
		{ID: "b", Type: MediaVideo, Title: "Bravo", URL: "https://example.com/b", Duration: 240, Position: 1},
		{ID: "c", Type: MediaPodcast, Title: "Charlie", URL: "https://example.com/c", Duration: 3600, Position: 2},
	}
}

func TestMediaType(t *testing.T) {
	t.Run("String round-trips through ParseMediaType", func(t *testing.T) {
		for _, mt := range []MediaType{MediaMusic, MediaVideo, MediaSocial, MediaPodcast} {
			parsed, err := ParseMediaType(mt.String())
			if err != nil {
				t.Fatalf("failed to parse %q: %v", mt.String(), err)
			}
			if parsed != mt {
				t.Errorf("expected %v, got %v", mt, parsed)
			}
		}
	})

	t.Run("ParseMediaType rejects unknown names", func(t *testing.T) {
		_, err := ParseMediaType("hologram")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("JSON uses lowercase names", func(t *testing.T) {
		data, err := json.Marshal(MediaItem{ID: "x", Type: MediaSocial, Title: "X"})
		if err != nil {
			t.Fatalf("failed to marshal: %v", err)
		}

		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if raw["type"] != "social" {
			t.Errorf("expected type social, got %v", raw["type"])
		}

		var item MediaItem
		if err := json.Unmarshal([]byte(`{"id":"y","type":"video","title":"Y"}`), &item); err != nil {
			t.Fatalf("failed to unmarshal item: %v", err)
		}
		if item.Type != MediaVideo {
			t.Errorf("expected video, got %v", item.Type)
		}

		if err := json.Unmarshal([]byte(`{"id":"z","type":"vinyl"}`), &item); err == nil {
			t.Error("expected error for unknown type")
		}
	})
}

func TestPlaylist(t *testing.T) {
	t.Run("TotalDuration", func(t *testing.T) {
		p := &Playlist{ID: "p1", Name: "Mix", MediaItems: testItems()}
		if got := p.TotalDuration(); got != 4020 {
			t.Errorf("expected 4020, got %d", got)
		}

		var empty *Playlist
		if empty.TotalDuration() != 0 || empty.Len() != 0 {
			t.Error("nil playlist should be empty")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name    string
			mutate  func(p *Playlist)
			wantErr bool
		}{
			{name: "valid", mutate: func(p *Playlist) {}},
			{name: "missing id", mutate: func(p *Playlist) { p.ID = "" }, wantErr: true},
			{name: "missing name", mutate: func(p *Playlist) { p.Name = " " }, wantErr: true},
			{name: "gap in positions", mutate: func(p *Playlist) { p.MediaItems[2].Position = 5 }, wantErr: true},
			{name: "duplicate id", mutate: func(p *Playlist) { p.MediaItems[1].ID = "a" }, wantErr: true},
			{name: "negative duration", mutate: func(p *Playlist) { p.MediaItems[0].Duration = -1 }, wantErr: true},
			{name: "empty playlist", mutate: func(p *Playlist) { p.MediaItems = nil }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p := &Playlist{ID: "p1", Name: "Mix", OwnerID: "u1", MediaItems: testItems()}
				tt.mutate(p)
				err := p.Validate()
				if (err != nil) != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("Clone does not share items", func(t *testing.T) {
		group := "g1"
		p := &Playlist{ID: "p1", Name: "Mix", GroupID: &group, MediaItems: testItems()}
		cp := p.Clone()
		cp.MediaItems[0].Title = "changed"
		*cp.GroupID = "g2"

		if p.MediaItems[0].Title != "Alpha" {
			t.Error("clone shares media items with original")
		}
		if *p.GroupID != "g1" {
			t.Error("clone shares group id with original")
		}
	})
}

func TestQueueState(t *testing.T) {
	t.Run("Status", func(t *testing.T) {
		idx := 0
		p := &Playlist{ID: "p1", Name: "Mix", MediaItems: testItems()}

		if (QueueState{}).Status() != StatusIdle {
			t.Error("empty state should be idle")
		}
		if (QueueState{CurrentPlaylist: p, CurrentTrackIndex: &idx}).Status() != StatusLoadedPaused {
			t.Error("loaded state should be paused")
		}
		if (QueueState{CurrentPlaylist: p, CurrentTrackIndex: &idx, IsPlaying: true}).Status() != StatusLoadedPlaying {
			t.Error("playing state should be playing")
		}
	})

	t.Run("NowPlaying prefers queue track", func(t *testing.T) {
		idx := 1
		items := testItems()
		qt := MediaItem{ID: "q", Title: "Queued"}
		s := QueueState{CurrentPlaylist: &Playlist{ID: "p1", MediaItems: items}, CurrentTrackIndex: &idx}

		if got := s.NowPlaying(); got == nil || got.ID != "b" {
			t.Errorf("expected b, got %v", got)
		}

		s.QueueTrack = &qt
		if got := s.NowPlaying(); got == nil || got.ID != "q" {
			t.Errorf("expected q, got %v", got)
		}
	})

	t.Run("Clone is deep", func(t *testing.T) {
		idx := 0
		s := QueueState{
			CurrentPlaylist:   &Playlist{ID: "p1", MediaItems: testItems()},
			CurrentTrackIndex: &idx,
			Queue:             testItems(),
		}
		cp := s.Clone()
		*cp.CurrentTrackIndex = 2
		cp.Queue[0].ID = "changed"
		cp.CurrentPlaylist.MediaItems[0].ID = "changed"

		if *s.CurrentTrackIndex != 0 || s.Queue[0].ID != "a" || s.CurrentPlaylist.MediaItems[0].ID != "a" {
			t.Error("clone shares state with original")
		}
	})
}

func TestSearchItems(t *testing.T) {
	items := testItems()

	t.Run("matches subsequences of titles", func(t *testing.T) {
		matches := SearchItems(items, "chr")
		if len(matches) != 1 || matches[0].Item.ID != "c" || matches[0].Index != 2 {
			t.Fatalf("expected a single match on Charlie, got %+v", matches)
		}
		if len(matches[0].MatchedIndexes) != 3 {
			t.Errorf("expected 3 matched runes, got %v", matches[0].MatchedIndexes)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		if matches := SearchItems(items, "BRAVO"); len(matches) != 1 || matches[0].Item.ID != "b" {
			t.Errorf("expected Bravo, got %+v", matches)
		}
	})

	t.Run("no match", func(t *testing.T) {
		if matches := SearchItems(items, "zulu"); len(matches) != 0 {
			t.Errorf("expected no matches, got %+v", matches)
		}
	})

	t.Run("empty query", func(t *testing.T) {
		if matches := SearchItems(items, ""); len(matches) != 0 {
			t.Errorf("expected no matches for empty query, got %+v", matches)
		}
	})
}
