package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/queue"
	"github.com/desertthunder/playq/internal/repositories"
	"github.com/desertthunder/playq/internal/services"
	"github.com/desertthunder/playq/internal/shared"
	"github.com/desertthunder/playq/internal/tasks"
	tu "github.com/desertthunder/playq/internal/testing"
)

type fixture struct {
	srv  *httptest.Server
	repo *repositories.PlaylistRepository
	api  *services.PlaylistAPI
}

// setup serves a fresh in-memory database with the hub running.
func setup(t *testing.T, token string) *fixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	logger := shared.NewLogger(io.Discard)
	s := New(db, shared.ServerConfig{Host: "127.0.0.1", Port: 0}, token, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Hub().Run(ctx)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		cancel()
		srv.Close()
		db.Close()
	})

	return &fixture{
		srv:  srv,
		repo: repositories.NewPlaylistRepository(db),
		api:  services.NewPlaylistAPI(shared.APIConfig{BaseURL: srv.URL, Token: token}, srv.Client()),
	}
}

func (f *fixture) seed(t *testing.T, ids ...string) *models.Playlist {
	t.Helper()
	p := tu.Playlist("", ids...)
	if err := f.repo.Create(p); err != nil {
		t.Fatalf("failed to seed playlist: %v", err)
	}
	return p
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := f.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, data
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware runs in registration order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			order = append(order, "handler")
		}))

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if !slices.Equal(order, []string{"first", "second", "handler"}) {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("wrong method is rejected", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if allow := rec.Header().Get("Allow"); !strings.Contains(allow, http.MethodGet) {
			t.Errorf("expected Allow to list GET, got %q", allow)
		}
	})

	t.Run("unknown path gets a JSON 404 through middleware", func(t *testing.T) {
		var seen bool
		r := NewBasicRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				seen = true
				next.ServeHTTP(w, req)
			})
		})
		r.HandleFunc(http.MethodGet, "/ping", func(w http.ResponseWriter, _ *http.Request) {})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		var body services.ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
			t.Errorf("expected JSON error body, got %q (%v)", rec.Body.String(), err)
		}
		if !seen {
			t.Error("expected middleware to run for unmatched requests")
		}
	})

	t.Run("path values reach the handler", func(t *testing.T) {
		r := NewBasicRouter()
		var got string
		r.Handle(http.MethodGet, "/items/{id}", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			got = req.PathValue("id")
		}))

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))

		if got != "42" {
			t.Errorf("expected id 42, got %q", got)
		}
	})
}

func TestPlaylistHandler(t *testing.T) {
	t.Run("health", func(t *testing.T) {
		f := setup(t, "")
		resp, body := f.do(t, http.MethodGet, "/health", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(string(body), `"ok"`) {
			t.Errorf("unexpected body %s", body)
		}
	})

	t.Run("create, get and list", func(t *testing.T) {
		f := setup(t, "")
		resp, body := f.do(t, http.MethodPost, "/playlists", services.CreatePlaylistRequest{Name: "Mix", OwnerID: "u1"})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
		}

		var created models.Playlist
		if err := json.Unmarshal(body, &created); err != nil {
			t.Fatalf("failed to decode playlist: %v", err)
		}
		if created.ID == "" || created.Name != "Mix" {
			t.Errorf("unexpected playlist %+v", created)
		}

		got, err := f.api.GetPlaylist(context.Background(), created.ID)
		if err != nil {
			t.Fatalf("GetPlaylist failed: %v", err)
		}
		if got.Len() != 0 || got.MediaItems == nil {
			t.Errorf("expected an empty, non-nil item list, got %v", got.MediaItems)
		}

		f.seed(t, "x")
		resp, body = f.do(t, http.MethodGet, "/playlists?owner=u1", nil)
		var listed []models.Playlist
		if err := json.Unmarshal(body, &listed); err != nil {
			t.Fatalf("failed to decode list: %v", err)
		}
		if resp.StatusCode != http.StatusOK || len(listed) != 1 || listed[0].ID != created.ID {
			t.Errorf("expected only the owner's playlist, got %d items", len(listed))
		}
	})

	t.Run("create without name is rejected", func(t *testing.T) {
		f := setup(t, "")
		resp, body := f.do(t, http.MethodPost, "/playlists", services.CreatePlaylistRequest{OwnerID: "u1"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
		var e services.ErrorResponse
		if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
			t.Errorf("expected JSON error body, got %s", body)
		}
	})

	t.Run("unknown playlist", func(t *testing.T) {
		f := setup(t, "")
		resp, _ := f.do(t, http.MethodGet, "/playlists/missing", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("delete hides the playlist", func(t *testing.T) {
		f := setup(t, "")
		p := f.seed(t, "a")

		resp, _ := f.do(t, http.MethodDelete, "/playlists/"+p.ID, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", resp.StatusCode)
		}
		resp, _ = f.do(t, http.MethodGet, "/playlists/"+p.ID, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
		}
	})

	t.Run("reorder", func(t *testing.T) {
		f := setup(t, "")
		p := f.seed(t, "a", "b", "c")

		items := []models.MediaItem{p.MediaItems[2], p.MediaItems[0], p.MediaItems[1]}
		stored, err := f.api.Reorder(context.Background(), p.ID, items)
		if err != nil {
			t.Fatalf("Reorder failed: %v", err)
		}
		if !slices.Equal(models.IDs(stored), []string{"c", "a", "b"}) {
			t.Errorf("unexpected stored order %v", models.IDs(stored))
		}
		if err := models.CheckDense(stored); err != nil {
			t.Errorf("positions not dense: %v", err)
		}
	})

	t.Run("reorder with a different item set conflicts", func(t *testing.T) {
		f := setup(t, "")
		p := f.seed(t, "a", "b", "c")

		_, err := f.api.Reorder(context.Background(), p.ID, p.MediaItems[:2])
		if !errors.Is(err, shared.ErrPersistenceConflict) {
			t.Errorf("expected ErrPersistenceConflict, got %v", err)
		}

		unknown := tu.Items("a", "b", "zz")
		_, err = f.api.Reorder(context.Background(), p.ID, unknown)
		if !errors.Is(err, shared.ErrPersistenceConflict) {
			t.Errorf("expected ErrPersistenceConflict for unknown id, got %v", err)
		}
	})

	t.Run("reorder with gapped positions is invalid", func(t *testing.T) {
		f := setup(t, "")
		p := f.seed(t, "a", "b")

		body := services.ReorderRequest{MediaItems: []services.ItemPosition{{ID: "a", Position: 0}, {ID: "b", Position: 2}}}
		resp, _ := f.do(t, http.MethodPut, "/playlists/"+p.ID+"/reorder", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("add and remove media", func(t *testing.T) {
		f := setup(t, "")
		p := f.seed(t, "a", "b")

		resp, body := f.do(t, http.MethodPost, "/playlists/"+p.ID+"/media", services.AddMediaRequest{
			MediaItem: models.MediaItem{Type: models.MediaVideo, Title: "Clip", Duration: 30},
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
		}
		var added models.Playlist
		if err := json.Unmarshal(body, &added); err != nil {
			t.Fatalf("failed to decode playlist: %v", err)
		}
		if added.Len() != 3 || added.MediaItems[2].ID == "" || added.MediaItems[2].Position != 2 {
			t.Errorf("expected generated item appended at position 2, got %+v", added.MediaItems)
		}

		removed, err := f.api.RemoveMedia(context.Background(), p.ID, "a")
		if err != nil {
			t.Fatalf("RemoveMedia failed: %v", err)
		}
		if removed.Len() != 2 || removed.MediaItems[0].ID != "b" || removed.MediaItems[0].Position != 0 {
			t.Errorf("expected gap closed after remove, got %+v", removed.MediaItems)
		}

		_, err = f.api.RemoveMedia(context.Background(), p.ID, "a")
		if !errors.Is(err, shared.ErrMediaItemNotFound) {
			t.Errorf("expected ErrMediaItemNotFound, got %v", err)
		}
	})
}

func TestBearerAuth(t *testing.T) {
	f := setup(t, "secret")
	p := f.seed(t, "a")

	t.Run("health is open", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/health", nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/playlists/"+p.ID, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
		if resp.Header.Get("WWW-Authenticate") == "" {
			t.Error("expected WWW-Authenticate header")
		}
	})

	t.Run("client sends token", func(t *testing.T) {
		if _, err := f.api.GetPlaylist(context.Background(), p.ID); err != nil {
			t.Errorf("authorized request failed: %v", err)
		}
	})

	t.Run("query token", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/playlists/"+p.ID+"?access_token=secret", nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
	})
}

func TestChangeFeed(t *testing.T) {
	f := setup(t, "")
	p := f.seed(t, "a", "b", "c")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *models.Playlist, 8)
	done := make(chan error, 1)
	go func() {
		done <- f.api.Watch(ctx, p.ID, func(pl *models.Playlist) { updates <- pl })
	}()

	next := func() *models.Playlist {
		t.Helper()
		select {
		case pl := <-updates:
			return pl
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for feed event")
			return nil
		}
	}

	snapshot := next()
	if !slices.Equal(models.IDs(snapshot.MediaItems), []string{"a", "b", "c"}) {
		t.Fatalf("unexpected snapshot %v", models.IDs(snapshot.MediaItems))
	}

	if _, err := f.api.Reorder(context.Background(), p.ID, []models.MediaItem{p.MediaItems[1], p.MediaItems[0], p.MediaItems[2]}); err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	if got := models.IDs(next().MediaItems); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Errorf("expected reordered event, got %v", got)
	}

	if _, err := f.api.RemoveMedia(context.Background(), p.ID, "c"); err != nil {
		t.Fatalf("RemoveMedia failed: %v", err)
	}
	if got := models.IDs(next().MediaItems); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("expected removal event, got %v", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean watch exit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("watch did not stop after cancel")
	}
}

func TestFeedUnknownPlaylist(t *testing.T) {
	f := setup(t, "")
	err := f.api.Watch(context.Background(), "missing", func(*models.Playlist) {})
	if !errors.Is(err, shared.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}
}

// TestCoordinatorRoundTrip drives optimistic edits through the HTTP client against the real server.
func TestCoordinatorRoundTrip(t *testing.T) {
	f := setup(t, "")
	p := f.seed(t, "a", "b", "c")

	logger := shared.NewLogger(io.Discard)
	store := queue.NewStore(logger)
	coord := tasks.NewCoordinator(f.api, store, time.Second, logger)

	ctx := context.Background()
	loaded, err := coord.Load(ctx, p.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := store.SetPlaylist(loaded); err != nil {
		t.Fatalf("SetPlaylist failed: %v", err)
	}

	m, err := coord.Reorder(p.ID, 0, 2)
	if err != nil {
		t.Fatalf("Reorder failed: %v", err)
	}
	if got := models.IDs(store.State().CurrentPlaylist.MediaItems); !slices.Equal(got, []string{"b", "c", "a"}) {
		t.Errorf("expected optimistic order, got %v", got)
	}

	state, err := m.Wait(ctx)
	if err != nil || state != tasks.StateConfirmed {
		t.Fatalf("expected confirmed mutation, got %v (%v)", state, err)
	}

	stored, err := f.repo.Get(p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := models.IDs(stored.MediaItems); !slices.Equal(got, []string{"b", "c", "a"}) {
		t.Errorf("expected server order to match, got %v", got)
	}

	add, err := coord.Add(p.ID, models.MediaItem{Type: models.MediaPodcast, Title: "Episode", Duration: 600})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if state, _ := add.Wait(ctx); state != tasks.StateConfirmed {
		t.Errorf("expected add confirmed, got %v", state)
	}
	if n := store.State().CurrentPlaylist.Len(); n != 4 {
		t.Errorf("expected 4 items after add, got %d", n)
	}
}
