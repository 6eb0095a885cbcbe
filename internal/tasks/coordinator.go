package tasks

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/reorder"
	"github.com/desertthunder/playq/internal/shared"
)

// DefaultTimeout bounds a single persistence request when none is configured.
const DefaultTimeout = 10 * time.Second

// Persistence is the Playlist Persistence API contract.
// This abstraction allows the HTTP client to be swapped for a fake in tests.
type Persistence interface {
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	// Reorder sends the full ordering and returns the authoritative one.
	Reorder(ctx context.Context, id string, items []models.MediaItem) ([]models.MediaItem, error)
	AddMedia(ctx context.Context, id string, item models.MediaItem) (*models.Playlist, error)
	RemoveMedia(ctx context.Context, id, itemID string) (*models.Playlist, error)
}

// Reconciler receives orderings for the visible playlist. [queue.Store] implements it; the
// returned bool reports whether the ordering was applied or discarded as stale.
type Reconciler interface {
	ReplaceItems(playlistID string, items []models.MediaItem) bool
}

// lane serializes mutations for one playlist.
type lane struct {
	id        string
	confirmed []models.MediaItem
	pending   []*Mutation // pending[0] is in flight while busy
	busy      bool
	// remote holds the newest change-feed snapshot that arrived while busy; the lane resyncs
	// once it drains.
	remote []models.MediaItem
}

// replay applies pending mutations to the confirmed ordering and returns the resulting view plus
// the mutations that no longer apply, in order.
func (l *lane) replay() ([]models.MediaItem, []*Mutation, []error) {
	view := l.confirmed
	var dropped []*Mutation
	var errs []error
	for _, m := range l.pending {
		next, err := m.apply(view)
		if err != nil {
			dropped = append(dropped, m)
			errs = append(errs, err)
			continue
		}
		view = next
	}
	return view, dropped, errs
}

// Coordinator bridges optimistic local edits with the persistence API.
type Coordinator struct {
	mu          sync.Mutex
	persistence Persistence
	store       Reconciler
	lanes       map[string]*lane
	seq         uint64
	timeout     time.Duration
	notices     chan Notice
	logger      *log.Logger
	wg          sync.WaitGroup
}

// NewCoordinator creates a coordinator. A zero timeout uses [DefaultTimeout] and a nil logger
// writes to stderr.
func NewCoordinator(p Persistence, store Reconciler, timeout time.Duration, logger *log.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = shared.NewLogger(os.Stderr)
	}
	return &Coordinator{
		persistence: p,
		store:       store,
		lanes:       make(map[string]*lane),
		timeout:     timeout,
		notices:     make(chan Notice, 64),
		logger:      logger,
	}
}

// Notices returns the notice channel. Notices are dropped when nobody keeps up with it.
func (c *Coordinator) Notices() <-chan Notice { return c.notices }

// sendNotice logs n and delivers it without blocking.
func (c *Coordinator) sendNotice(n Notice) {
	c.logger.Log(n.level(), n.Message, "kind", n.Kind, "playlist", n.PlaylistID, "seq", n.Seq, "err", n.Err)
	select {
	case c.notices <- n:
	default:
	}
}

// Load fetches a playlist and seeds its lane. A lane with mutations in flight keeps its own
// confirmed ordering; the returned playlist always carries the local view.
func (c *Coordinator) Load(ctx context.Context, id string) (*models.Playlist, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	p, err := c.persistence.GetPlaylist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: load playlist %s: %w", shared.ErrPersistenceFailure, id, err)
	}
	items := reorder.Renumber(reorder.SortByPosition(p.MediaItems))

	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.lanes[id]
	if !ok {
		l = &lane{id: id}
		c.lanes[id] = l
	}
	if len(l.pending) == 0 {
		l.confirmed = items
	}
	view, _, _ := l.replay()
	c.logger.Debug("playlist loaded", "playlist", id, "items", len(view))
	return p.WithItems(view), nil
}

// View returns the local ordering of a loaded playlist: the confirmed ordering with pending
// mutations applied.
func (c *Coordinator) View(id string) ([]models.MediaItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.lanes[id]
	if !ok {
		return nil, false
	}
	view, _, _ := l.replay()
	return models.CloneItems(view), true
}

// Pending returns how many mutations are waiting or in flight for a playlist.
func (c *Coordinator) Pending(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.lanes[id]; ok {
		return len(l.pending)
	}
	return 0
}

// Reorder moves the item at src to dst in the local view and persists the new ordering.
//
// Invalid indices fail synchronously with [shared.ErrInvalidIndex]. A move onto itself resolves
// immediately without a request.
func (c *Coordinator) Reorder(playlistID string, src, dst int) (*Mutation, error) {
	return c.submit(playlistID, func(view []models.MediaItem) (*Mutation, error) {
		if _, err := reorder.Reorder(view, src, dst); err != nil {
			return nil, err
		}
		m := newMutation(MutationReorder, playlistID)
		m.ItemID = view[src].ID
		m.Dest = dst
		return m, nil
	})
}

// Add appends item to the playlist. An item without an id gets a generated one.
func (c *Coordinator) Add(playlistID string, item models.MediaItem) (*Mutation, error) {
	if item.ID == "" {
		item.ID = shared.GenerateID()
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return c.submit(playlistID, func([]models.MediaItem) (*Mutation, error) {
		m := newMutation(MutationAdd, playlistID)
		m.ItemID = item.ID
		m.Item = item
		return m, nil
	})
}

// Remove deletes the item with itemID from the playlist.
func (c *Coordinator) Remove(playlistID, itemID string) (*Mutation, error) {
	return c.submit(playlistID, func([]models.MediaItem) (*Mutation, error) {
		m := newMutation(MutationRemove, playlistID)
		m.ItemID = itemID
		return m, nil
	})
}

// submit applies a mutation optimistically, queues it on the playlist's lane and starts the lane's
// drain goroutine if it is idle.
func (c *Coordinator) submit(playlistID string, build func(view []models.MediaItem) (*Mutation, error)) (*Mutation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.lanes[playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotLoaded, playlistID)
	}

	view, _, _ := l.replay()
	m, err := build(view)
	if err != nil {
		return nil, err
	}
	next, err := m.apply(view)
	if err != nil {
		return nil, err
	}

	c.seq++
	m.Seq = c.seq

	if m.Kind == MutationReorder && reorder.SameOrder(next, view) {
		m.resolve(StateConfirmed, nil)
		return m, nil
	}

	l.pending = append(l.pending, m)
	c.store.ReplaceItems(playlistID, next)
	c.logger.Debug("mutation queued", "kind", m.Kind, "playlist", playlistID, "seq", m.Seq, "pending", len(l.pending))

	if !l.busy {
		l.busy = true
		c.wg.Add(1)
		go c.drain(l)
	}
	return m, nil
}

// drain sends the lane's mutations one at a time until the lane is empty.
func (c *Coordinator) drain(l *lane) {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		if len(l.pending) == 0 {
			if l.remote != nil {
				stashed := l.remote
				l.remote = nil
				c.mu.Unlock()
				c.resync(l, stashed)
				continue
			}
			l.busy = false
			c.mu.Unlock()
			return
		}
		m := l.pending[0]
		base := models.CloneItems(l.confirmed)
		c.mu.Unlock()

		payload, err := m.apply(base)
		var result []models.MediaItem
		if err == nil {
			result, err = c.send(m, payload)
		}

		c.mu.Lock()
		c.settle(l, m, payload, result, err)
		c.mu.Unlock()
	}
}

// resync reloads the playlist after a change-feed snapshot was skipped while the lane was busy.
// The server's copy is newer than anything the feed delivered; stashed is used only when the
// reload fails. New mutations queued meanwhile carry the resync forward to the next drain.
func (c *Coordinator) resync(l *lane, stashed []models.MediaItem) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	items := stashed
	p, err := c.persistence.GetPlaylist(ctx, l.id)
	if err != nil {
		c.logger.Warn("resync failed, using last change-feed snapshot", "playlist", l.id, "err", err)
	} else {
		items = reorder.Renumber(reorder.SortByPosition(p.MediaItems))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(l.pending) > 0 {
		l.remote = items
		return
	}
	c.installRemote(l, items)
}

// send performs the request for m under the configured timeout.
func (c *Coordinator) send(m *Mutation, payload []models.MediaItem) ([]models.MediaItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.logger.Debug("sending mutation", "kind", m.Kind, "playlist", m.PlaylistID, "seq", m.Seq)

	var p *models.Playlist
	var err error
	switch m.Kind {
	case MutationReorder:
		return c.persistence.Reorder(ctx, m.PlaylistID, payload)
	case MutationAdd:
		p, err = c.persistence.AddMedia(ctx, m.PlaylistID, m.Item)
	case MutationRemove:
		p, err = c.persistence.RemoveMedia(ctx, m.PlaylistID, m.ItemID)
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: empty response", shared.ErrAPIRequest)
	}
	return p.MediaItems, nil
}

// settle resolves the head mutation and publishes the rebased view. Mutations are resolved after
// the store has the new ordering, so a waiter never observes a stale store. Callers hold c.mu.
func (c *Coordinator) settle(l *lane, m *Mutation, payload, result []models.MediaItem, err error) {
	l.pending = l.pending[1:]

	var state MutationState
	var notice Notice
	switch {
	case err != nil:
		err = fmt.Errorf("%w: %w", shared.ErrPersistenceFailure, err)
		state, notice = StateRolledBack, failureNotice(m, err)
	case reorder.SameOrder(result, payload):
		l.confirmed = reorder.Renumber(result)
		state, notice = StateConfirmed, confirmedNotice(m)
	default:
		l.confirmed = reorder.Renumber(result)
		err = shared.ErrPersistenceConflict
		state, notice = StateSuperseded, conflictNotice(m, err)
	}

	view, dropped, errs := c.rebase(l)
	c.store.ReplaceItems(l.id, view)

	m.resolve(state, err)
	c.sendNotice(notice)
	for i, d := range dropped {
		d.resolve(StateRolledBack, errs[i])
		c.sendNotice(droppedNotice(d, errs[i]))
	}
}

// rebase removes pending mutations that no longer apply to the confirmed ordering. It returns the
// resulting view with the removed mutations and their errors. Callers hold c.mu.
func (c *Coordinator) rebase(l *lane) ([]models.MediaItem, []*Mutation, []error) {
	view, dropped, errs := l.replay()
	if len(dropped) == 0 {
		return view, nil, nil
	}

	kept := l.pending[:0:0]
	for _, m := range l.pending {
		if !contains(dropped, m) {
			kept = append(kept, m)
		}
	}
	l.pending = kept

	for i, err := range errs {
		errs[i] = fmt.Errorf("%w: %w", shared.ErrPersistenceConflict, err)
	}
	return view, dropped, errs
}

// ApplyRemote installs a snapshot pushed by the change feed.
//
// It applies immediately only to a loaded lane with nothing in flight. A busy lane keeps the
// snapshot and reloads the playlist once its mutations drain, so a collaborator's write that
// lands after ours is not lost. It reports whether the snapshot was applied now.
func (c *Coordinator) ApplyRemote(p *models.Playlist) bool {
	if p == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.lanes[p.ID]
	if !ok {
		return false
	}
	items := reorder.Renumber(reorder.SortByPosition(p.MediaItems))
	if l.busy || len(l.pending) > 0 {
		c.logger.Debug("deferring remote snapshot for busy playlist", "playlist", p.ID)
		l.remote = items
		return false
	}
	return c.installRemote(l, items)
}

// installRemote replaces an idle lane's confirmed ordering. Callers hold c.mu.
func (c *Coordinator) installRemote(l *lane, items []models.MediaItem) bool {
	if reorder.SameOrder(items, l.confirmed) {
		return false
	}
	l.confirmed = items
	c.store.ReplaceItems(l.id, items)
	c.sendNotice(remoteNotice(l.id))
	return true
}

// Wait blocks until every lane has drained or ctx ends.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func contains(ms []*Mutation, m *Mutation) bool {
	for _, x := range ms {
		if x == m {
			return true
		}
	}
	return false
}
