package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/reorder"
	"github.com/desertthunder/playq/internal/shared"
)

// MutationKind enumerates the local edits the coordinator persists.
type MutationKind int

const (
	MutationReorder MutationKind = iota
	MutationAdd
	MutationRemove
)

func (k MutationKind) String() string {
	switch k {
	case MutationReorder:
		return "reorder"
	case MutationAdd:
		return "add"
	case MutationRemove:
		return "remove"
	default:
		return ""
	}
}

// MutationState tracks a mutation through its two-phase lifecycle.
type MutationState int

const (
	StatePending    MutationState = iota
	StateConfirmed                // server echoed the ordering that was sent
	StateSuperseded               // server confirmed a different ordering, which replaced ours
	StateRolledBack               // request failed or no longer applies
)

func (s MutationState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateSuperseded:
		return "superseded"
	case StateRolledBack:
		return "rolled_back"
	default:
		return ""
	}
}

// Mutation is one optimistic edit of a playlist.
//
// Reorders are recorded as "move ItemID to Dest" so they can be replayed on a rebased ordering.
type Mutation struct {
	Seq        uint64
	Kind       MutationKind
	PlaylistID string
	ItemID     string
	Dest       int
	Item       models.MediaItem

	mu    sync.Mutex
	state MutationState
	err   error
	done  chan struct{}
}

func newMutation(kind MutationKind, playlistID string) *Mutation {
	return &Mutation{Kind: kind, PlaylistID: playlistID, done: make(chan struct{})}
}

// apply replays the mutation on items.
func (m *Mutation) apply(items []models.MediaItem) ([]models.MediaItem, error) {
	switch m.Kind {
	case MutationReorder:
		return reorder.MoveByID(items, m.ItemID, m.Dest)
	case MutationAdd:
		return reorder.Append(items, m.Item)
	case MutationRemove:
		return reorder.RemoveByID(items, m.ItemID)
	default:
		return nil, fmt.Errorf("%w: unknown mutation kind %d", shared.ErrInvalidInput, m.Kind)
	}
}

// resolve moves the mutation to a terminal state. Later calls are ignored.
func (m *Mutation) resolve(state MutationState, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StatePending {
		return
	}
	m.state = state
	m.err = err
	close(m.done)
}

// State returns the current lifecycle state.
func (m *Mutation) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error recorded on resolution: a persistence failure for rolled back mutations,
// or [shared.ErrPersistenceConflict] for superseded ones.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Done is closed once the mutation leaves [StatePending].
func (m *Mutation) Done() <-chan struct{} { return m.done }

// Wait blocks until the mutation resolves or ctx ends.
func (m *Mutation) Wait(ctx context.Context) (MutationState, error) {
	select {
	case <-m.done:
		return m.State(), m.Err()
	case <-ctx.Done():
		return StatePending, ctx.Err()
	}
}
