package tasks

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/queue"
	"github.com/desertthunder/playq/internal/reorder"
	"github.com/desertthunder/playq/internal/shared"
	tu "github.com/desertthunder/playq/internal/testing"
)

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) ReplaceItems(playlistID string, items []models.MediaItem) bool {
	args := m.Called(playlistID, models.IDs(items))
	return args.Bool(0)
}

type fixture struct {
	fake  *tu.FakePersistence
	store *queue.Store
	coord *Coordinator
}

func newFixture(t *testing.T, playlists ...*models.Playlist) *fixture {
	t.Helper()
	logger := shared.NewLogger(io.Discard)
	fake := tu.NewFakePersistence(playlists...)
	store := queue.NewStore(logger)
	coord := NewCoordinator(fake, store, time.Second, logger)

	for _, p := range playlists {
		loaded, err := coord.Load(context.Background(), p.ID)
		require.NoError(t, err)
		if store.State().CurrentPlaylist == nil {
			require.NoError(t, store.SetPlaylist(loaded))
		}
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = coord.Wait(ctx)
	})
	return &fixture{fake: fake, store: store, coord: coord}
}

func (f *fixture) storeIDs() []string {
	return models.IDs(f.store.State().CurrentPlaylist.MediaItems)
}

func wait(t *testing.T, m *Mutation) (MutationState, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state, err := m.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "mutation %d never resolved", m.Seq)
	return state, err
}

func nextNotice(t *testing.T, c *Coordinator) Notice {
	t.Helper()
	select {
	case n := <-c.Notices():
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notice")
		return Notice{}
	}
}

func awaitStarted(t *testing.T, fake *tu.FakePersistence) tu.Request {
	t.Helper()
	select {
	case req := <-fake.Started():
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for request")
		return tu.Request{}
	}
}

func TestCoordinatorLoad(t *testing.T) {
	t.Run("seeds lane", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a", "b", "c"))

		view, ok := f.coord.View("p1")
		require.True(t, ok)
		assert.Equal(t, []string{"a", "b", "c"}, models.IDs(view))
		assert.Equal(t, 0, f.coord.Pending("p1"))
	})

	t.Run("unknown playlist", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.coord.Load(context.Background(), "missing")
		assert.ErrorIs(t, err, shared.ErrPersistenceFailure)
		assert.ErrorIs(t, err, shared.ErrPlaylistNotFound)
	})

	t.Run("mutations require a loaded playlist", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.coord.Reorder("p1", 0, 1)
		assert.ErrorIs(t, err, shared.ErrPlaylistNotLoaded)
	})
}

func TestCoordinatorReorder(t *testing.T) {
	t.Run("applies optimistically then confirms", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a", "b", "c"))
		f.fake.Gate()

		m, err := f.coord.Reorder("p1", 0, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a"}, f.storeIDs())
		assert.Equal(t, StatePending, m.State())

		awaitStarted(t, f.fake)
		f.fake.Release()

		state, err := wait(t, m)
		assert.Equal(t, StateConfirmed, state)
		assert.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a"}, f.storeIDs())
		assert.Equal(t, []string{"b", "c", "a"}, models.IDs(f.fake.Stored("p1").MediaItems))
		assert.Equal(t, NoticeConfirmed, nextNotice(t, f.coord).Kind)
	})

	t.Run("invalid index fails synchronously", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a", "b"))

		_, err := f.coord.Reorder("p1", 0, 5)
		assert.ErrorIs(t, err, shared.ErrInvalidIndex)
		_, err = f.coord.Reorder("p1", -1, 0)
		assert.ErrorIs(t, err, shared.ErrInvalidIndex)

		assert.Empty(t, f.fake.Requests())
		assert.Equal(t, []string{"a", "b"}, f.storeIDs())
	})

	t.Run("move onto itself sends nothing", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a", "b"))

		m, err := f.coord.Reorder("p1", 1, 1)
		require.NoError(t, err)
		assert.Equal(t, StateConfirmed, m.State())
		assert.Empty(t, f.fake.Requests())
	})

	t.Run("server ordering wins on conflict", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "A", "B", "C"))
		f.fake.RespondWith(tu.Items("C", "A", "B"))

		m, err := f.coord.Reorder("p1", 0, 1)
		require.NoError(t, err)

		state, err := wait(t, m)
		assert.Equal(t, StateSuperseded, state)
		assert.ErrorIs(t, err, shared.ErrPersistenceConflict)

		st := f.store.State()
		assert.Equal(t, []string{"C", "A", "B"}, models.IDs(st.CurrentPlaylist.MediaItems))
		assert.NoError(t, models.CheckDense(st.CurrentPlaylist.MediaItems))

		n := nextNotice(t, f.coord)
		assert.Equal(t, NoticeConflict, n.Kind)
		assert.Equal(t, "playlist updated by another collaborator", n.Message)
		assert.False(t, n.Retryable())
	})

	t.Run("failure rolls back", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a", "b", "c"))
		f.fake.FailNext(errors.New("connection reset"))

		m, err := f.coord.Reorder("p1", 2, 0)
		require.NoError(t, err)

		state, err := wait(t, m)
		assert.Equal(t, StateRolledBack, state)
		assert.ErrorIs(t, err, shared.ErrPersistenceFailure)
		assert.Equal(t, []string{"a", "b", "c"}, f.storeIDs())

		n := nextNotice(t, f.coord)
		assert.Equal(t, NoticeFailure, n.Kind)
		assert.True(t, n.Retryable())
		assert.Len(t, f.fake.Requests(), 1, "failed requests are not retried")
	})
}

func TestCoordinatorFIFO(t *testing.T) {
	f := newFixture(t, tu.Playlist("p1", "a", "b", "c"))
	f.fake.Gate()

	m1, err := f.coord.Reorder("p1", 0, 2)
	require.NoError(t, err)
	m2, err := f.coord.Reorder("p1", 0, 1)
	require.NoError(t, err)
	assert.Less(t, m1.Seq, m2.Seq)
	assert.Equal(t, 2, f.coord.Pending("p1"))
	assert.Equal(t, []string{"c", "b", "a"}, f.storeIDs())

	first := awaitStarted(t, f.fake)
	assert.Equal(t, []string{"b", "c", "a"}, first.ItemIDs)

	select {
	case req := <-f.fake.Started():
		t.Fatalf("second request %v sent while first was in flight", req.ItemIDs)
	case <-time.After(50 * time.Millisecond):
	}

	f.fake.Release()
	state, _ := wait(t, m1)
	assert.Equal(t, StateConfirmed, state)

	second := awaitStarted(t, f.fake)
	assert.Equal(t, []string{"c", "b", "a"}, second.ItemIDs)
	f.fake.Release()

	state, _ = wait(t, m2)
	assert.Equal(t, StateConfirmed, state)

	reqs := f.fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, first.ItemIDs, reqs[0].ItemIDs)
	assert.Equal(t, second.ItemIDs, reqs[1].ItemIDs)
	assert.Equal(t, []string{"c", "b", "a"}, f.storeIDs())
}

func TestCoordinatorRebase(t *testing.T) {
	t.Run("drops mutations that no longer apply", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a", "b", "c"))
		f.fake.Gate()

		m1, err := f.coord.Reorder("p1", 0, 1)
		require.NoError(t, err)
		m2, err := f.coord.Remove("p1", "c")
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, f.storeIDs())

		awaitStarted(t, f.fake)
		f.fake.RespondWith(tu.Items("a", "b"))
		f.fake.Release()

		state, _ := wait(t, m1)
		assert.Equal(t, StateSuperseded, state)

		state, err = wait(t, m2)
		assert.Equal(t, StateRolledBack, state)
		assert.ErrorIs(t, err, shared.ErrPersistenceConflict)
		assert.ErrorIs(t, err, shared.ErrMediaItemNotFound)

		assert.Equal(t, []string{"a", "b"}, f.storeIDs())
		assert.Len(t, f.fake.Requests(), 1)
		assert.Equal(t, NoticeConflict, nextNotice(t, f.coord).Kind)
		assert.Equal(t, NoticeDropped, nextNotice(t, f.coord).Kind)
	})

	t.Run("replays surviving mutations by item id", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a", "b", "c"))
		f.fake.Gate()

		m1, err := f.coord.Remove("p1", "a")
		require.NoError(t, err)
		m2, err := f.coord.Reorder("p1", 1, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, f.storeIDs())

		awaitStarted(t, f.fake)
		f.fake.RespondWith(tu.Items("d", "b", "c"))
		f.fake.Release()
		state, _ := wait(t, m1)
		assert.Equal(t, StateSuperseded, state)
		assert.Equal(t, []string{"c", "d", "b"}, f.storeIDs())

		second := awaitStarted(t, f.fake)
		assert.Equal(t, []string{"c", "d", "b"}, second.ItemIDs)
		f.fake.Release()

		state, _ = wait(t, m2)
		assert.Equal(t, StateConfirmed, state)
		assert.Equal(t, []string{"c", "d", "b"}, f.storeIDs())
	})

	t.Run("failure keeps later mutations", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a", "b", "c"))
		f.fake.FailNext(errors.New("timeout"))
		f.fake.Gate()

		m1, err := f.coord.Reorder("p1", 0, 2)
		require.NoError(t, err)
		m2, err := f.coord.Remove("p1", "b")
		require.NoError(t, err)

		awaitStarted(t, f.fake)
		f.fake.Release()
		state, _ := wait(t, m1)
		assert.Equal(t, StateRolledBack, state)
		assert.Equal(t, []string{"a", "c"}, f.storeIDs())

		awaitStarted(t, f.fake)
		f.fake.Release()
		state, _ = wait(t, m2)
		assert.Equal(t, StateConfirmed, state)
		assert.Equal(t, []string{"a", "c"}, f.storeIDs())
	})
}

func TestCoordinatorStaleResponse(t *testing.T) {
	f := newFixture(t, tu.Playlist("x", "a", "b"), tu.Playlist("y", "c", "d"))
	f.fake.Gate()

	m, err := f.coord.Reorder("x", 0, 1)
	require.NoError(t, err)
	awaitStarted(t, f.fake)

	y, err := f.coord.Load(context.Background(), "y")
	require.NoError(t, err)
	require.NoError(t, f.store.SetPlaylist(y))
	f.fake.RespondWith(tu.Items("b", "a"))
	f.fake.Release()

	state, _ := wait(t, m)
	assert.Equal(t, StateConfirmed, state)

	st := f.store.State()
	assert.Equal(t, "y", st.CurrentPlaylist.ID)
	assert.Equal(t, []string{"c", "d"}, models.IDs(st.CurrentPlaylist.MediaItems))
}

func TestCoordinatorAddRemove(t *testing.T) {
	t.Run("add generates an id", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a"))

		m, err := f.coord.Add("p1", models.MediaItem{Type: models.MediaVideo, Title: "Clip", Duration: 30})
		require.NoError(t, err)
		assert.NotEmpty(t, m.ItemID)

		state, _ := wait(t, m)
		assert.Equal(t, StateConfirmed, state)
		assert.Equal(t, []string{"a", m.ItemID}, f.storeIDs())
		assert.Equal(t, 2, f.fake.Stored("p1").Len())
	})

	t.Run("add rejects invalid items", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a"))
		_, err := f.coord.Add("p1", models.MediaItem{ID: "z", Type: models.MediaMusic, Duration: -1})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = f.coord.Add("p1", tu.Items("a")[0])
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("remove", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a", "b", "c"))

		m, err := f.coord.Remove("p1", "b")
		require.NoError(t, err)
		state, _ := wait(t, m)
		assert.Equal(t, StateConfirmed, state)
		assert.Equal(t, []string{"a", "c"}, f.storeIDs())

		_, err = f.coord.Remove("p1", "zzz")
		assert.ErrorIs(t, err, shared.ErrMediaItemNotFound)
	})
}

func TestCoordinatorApplyRemote(t *testing.T) {
	t.Run("idle lane takes snapshot", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a", "b"))

		assert.True(t, f.coord.ApplyRemote(tu.Playlist("p1", "b", "a", "c")))
		assert.Equal(t, []string{"b", "a", "c"}, f.storeIDs())
		assert.Equal(t, NoticeRemote, nextNotice(t, f.coord).Kind)

		assert.False(t, f.coord.ApplyRemote(tu.Playlist("p1", "b", "a", "c")), "unchanged snapshot")
		assert.False(t, f.coord.ApplyRemote(tu.Playlist("other", "x")), "unknown playlist")
		assert.False(t, f.coord.ApplyRemote(nil))
	})

	t.Run("busy lane ignores snapshot", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a", "b"))
		f.fake.Gate()

		m, err := f.coord.Reorder("p1", 0, 1)
		require.NoError(t, err)
		awaitStarted(t, f.fake)

		assert.False(t, f.coord.ApplyRemote(tu.Playlist("p1", "a", "b", "z")))
		assert.Equal(t, []string{"b", "a"}, f.storeIDs())

		f.fake.Release()
		_, _ = wait(t, m)
	})

	t.Run("busy lane resyncs after draining", func(t *testing.T) {
		f := newFixture(t, tu.Playlist("p1", "a", "b"))
		f.fake.Gate()
		f.fake.AfterNext(func(p *models.Playlist) {
			p.MediaItems = reorder.Renumber(append(p.MediaItems, tu.Items("z")...))
		})

		m, err := f.coord.Reorder("p1", 0, 1)
		require.NoError(t, err)
		awaitStarted(t, f.fake)

		assert.False(t, f.coord.ApplyRemote(tu.Playlist("p1", "b", "a", "z")), "busy lane defers the snapshot")

		f.fake.Release()
		state, err := wait(t, m)
		require.NoError(t, err)
		assert.Equal(t, StateConfirmed, state)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, f.coord.Wait(ctx))

		assert.Equal(t, []string{"b", "a", "z"}, f.storeIDs())
		view, ok := f.coord.View("p1")
		require.True(t, ok)
		assert.Equal(t, []string{"b", "a", "z"}, models.IDs(view))
		assert.Equal(t, 0, f.coord.Pending("p1"))
	})

	t.Run("resync falls back to the snapshot when reload fails", func(t *testing.T) {
		store := queue.NewStore(shared.NewLogger(io.Discard))
		fake := tu.NewFakePersistence(tu.Playlist("p1", "a", "b"))
		flaky := &failingLoads{FakePersistence: fake}
		coord := NewCoordinator(flaky, store, time.Second, shared.NewLogger(io.Discard))

		loaded, err := coord.Load(context.Background(), "p1")
		require.NoError(t, err)
		require.NoError(t, store.SetPlaylist(loaded))

		fake.Gate()
		m, err := coord.Reorder("p1", 0, 1)
		require.NoError(t, err)
		awaitStarted(t, fake)

		flaky.fail(true)
		assert.False(t, coord.ApplyRemote(tu.Playlist("p1", "b", "a", "z")))
		fake.Release()
		_, _ = wait(t, m)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, coord.Wait(ctx))

		assert.Equal(t, []string{"b", "a", "z"}, models.IDs(store.State().CurrentPlaylist.MediaItems))
	})
}

// failingLoads makes GetPlaylist fail on demand.
type failingLoads struct {
	*tu.FakePersistence
	mu      sync.Mutex
	failing bool
}

func (f *failingLoads) fail(on bool) {
	f.mu.Lock()
	f.failing = on
	f.mu.Unlock()
}

func (f *failingLoads) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return nil, errors.New("connection reset")
	}
	return f.FakePersistence.GetPlaylist(ctx, id)
}

func TestCoordinatorReconciliationCalls(t *testing.T) {
	rec := new(MockReconciler)
	rec.On("ReplaceItems", "p1", []string{"b", "a"}).Return(true).Twice()

	fake := tu.NewFakePersistence(tu.Playlist("p1", "a", "b"))
	coord := NewCoordinator(fake, rec, time.Second, shared.NewLogger(io.Discard))
	_, err := coord.Load(context.Background(), "p1")
	require.NoError(t, err)

	m, err := coord.Reorder("p1", 0, 1)
	require.NoError(t, err)
	_, _ = wait(t, m)
	require.NoError(t, coord.Wait(context.Background()))

	rec.AssertExpectations(t)
	rec.AssertNumberOfCalls(t, "ReplaceItems", 2)
}

func TestCoordinatorSequence(t *testing.T) {
	f := newFixture(t, tu.Playlist("p1", "a", "b"), tu.Playlist("p2", "c", "d"))

	var last uint64
	for _, id := range []string{"p1", "p2", "p1", "p2"} {
		m, err := f.coord.Reorder(id, 0, 1)
		require.NoError(t, err)
		assert.Greater(t, m.Seq, last)
		last = m.Seq
	}
}

func TestMutation(t *testing.T) {
	t.Run("resolve is final", func(t *testing.T) {
		m := newMutation(MutationAdd, "p1")
		m.resolve(StateConfirmed, nil)
		m.resolve(StateRolledBack, errors.New("late"))
		assert.Equal(t, StateConfirmed, m.State())
		assert.NoError(t, m.Err())
	})

	t.Run("wait honors context", func(t *testing.T) {
		m := newMutation(MutationRemove, "p1")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		state, err := m.Wait(ctx)
		assert.Equal(t, StatePending, state)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("names", func(t *testing.T) {
		assert.Equal(t, "reorder", MutationReorder.String())
		assert.Equal(t, "rolled_back", StateRolledBack.String())
		assert.Equal(t, "conflict", NoticeConflict.String())
	})
}
