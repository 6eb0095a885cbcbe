package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/reorder"
	"github.com/desertthunder/playq/internal/shared"
)

// Request records one call received by [FakePersistence].
type Request struct {
	Method     string
	PlaylistID string
	ItemID     string
	ItemIDs    []string // ordering sent by Reorder
}

// FakePersistence is an in-memory Playlist Persistence API.
//
// With [FakePersistence.Gate] enabled, every mutating request blocks until [FakePersistence.Release]
// is called, which lets tests hold a request in flight.
type FakePersistence struct {
	mu        sync.Mutex
	playlists map[string]*models.Playlist
	requests  []Request
	gated     bool
	gate      chan struct{}
	started   chan Request
	failures  []error
	responses [][]models.MediaItem
	after     []func(p *models.Playlist)
}

func NewFakePersistence(playlists ...*models.Playlist) *FakePersistence {
	f := &FakePersistence{
		playlists: make(map[string]*models.Playlist),
		gate:      make(chan struct{}),
		started:   make(chan Request, 32),
	}
	for _, p := range playlists {
		f.playlists[p.ID] = p.Clone()
	}
	return f
}

// Gate makes mutating requests wait for [FakePersistence.Release].
func (f *FakePersistence) Gate() {
	f.mu.Lock()
	f.gated = true
	f.mu.Unlock()
}

// Release lets one gated request proceed.
func (f *FakePersistence) Release() { f.gate <- struct{}{} }

// Started delivers each mutating request as it arrives, before any gate.
func (f *FakePersistence) Started() <-chan Request { return f.started }

// Requests returns every mutating request received so far, in arrival order.
func (f *FakePersistence) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

// FailNext makes the next mutating request fail with err.
func (f *FakePersistence) FailNext(err error) {
	f.mu.Lock()
	f.failures = append(f.failures, err)
	f.mu.Unlock()
}

// RespondWith stores items as the playlist's ordering when the next mutating request completes,
// simulating a collaborator's write landing first.
func (f *FakePersistence) RespondWith(items []models.MediaItem) {
	f.mu.Lock()
	f.responses = append(f.responses, models.CloneItems(items))
	f.mu.Unlock()
}

// AfterNext runs fn against the stored playlist right after the next mutating request succeeds.
// The response still reflects only that request, simulating a collaborator's write landing just
// after it.
func (f *FakePersistence) AfterNext(fn func(p *models.Playlist)) {
	f.mu.Lock()
	f.after = append(f.after, fn)
	f.mu.Unlock()
}

// Stored returns the persisted copy of a playlist.
func (f *FakePersistence) Stored(id string) *models.Playlist {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playlists[id].Clone()
}

func (f *FakePersistence) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.playlists[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return p.Clone(), nil
}

func (f *FakePersistence) Reorder(ctx context.Context, id string, items []models.MediaItem) ([]models.MediaItem, error) {
	p, err := f.mutate(ctx, Request{Method: "reorder", PlaylistID: id, ItemIDs: models.IDs(items)}, func(p *models.Playlist) error {
		if len(items) != len(p.MediaItems) {
			return fmt.Errorf("%w: ordering does not match playlist", shared.ErrPersistenceConflict)
		}
		for _, item := range items {
			if reorder.IndexOf(p.MediaItems, item.ID) < 0 {
				return fmt.Errorf("%w: unknown media item %s", shared.ErrPersistenceConflict, item.ID)
			}
		}
		ordered := make([]models.MediaItem, len(items))
		for i, item := range items {
			ordered[i] = p.MediaItems[reorder.IndexOf(p.MediaItems, item.ID)]
		}
		p.MediaItems = reorder.Renumber(ordered)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.MediaItems, nil
}

func (f *FakePersistence) AddMedia(ctx context.Context, id string, item models.MediaItem) (*models.Playlist, error) {
	return f.mutate(ctx, Request{Method: "add", PlaylistID: id, ItemID: item.ID}, func(p *models.Playlist) error {
		next, err := reorder.Append(p.MediaItems, item)
		if err != nil {
			return err
		}
		p.MediaItems = next
		return nil
	})
}

func (f *FakePersistence) RemoveMedia(ctx context.Context, id, itemID string) (*models.Playlist, error) {
	return f.mutate(ctx, Request{Method: "remove", PlaylistID: id, ItemID: itemID}, func(p *models.Playlist) error {
		next, err := reorder.RemoveByID(p.MediaItems, itemID)
		if err != nil {
			return err
		}
		p.MediaItems = next
		return nil
	})
}

// mutate records req, waits on the gate, then applies fn unless a failure or canned response is
// queued.
func (f *FakePersistence) mutate(ctx context.Context, req Request, fn func(p *models.Playlist) error) (*models.Playlist, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	gated := f.gated
	f.mu.Unlock()

	select {
	case f.started <- req:
	default:
	}

	if gated {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}

	p, ok := f.playlists[req.PlaylistID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, req.PlaylistID)
	}

	if len(f.responses) > 0 {
		p.MediaItems = reorder.Renumber(f.responses[0])
		f.responses = f.responses[1:]
		return p.Clone(), nil
	}

	if err := fn(p); err != nil {
		return nil, err
	}
	resp := p.Clone()
	if len(f.after) > 0 {
		f.after[0](p)
		f.after = f.after[1:]
	}
	return resp, nil
}
