package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/repositories"
	"github.com/desertthunder/playq/internal/services"
	"github.com/desertthunder/playq/internal/shared"
	"github.com/gorilla/websocket"
)

const maxBodyBytes = 1 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// PlaylistHandler serves the Playlist Persistence API over a [repositories.PlaylistRepository].
//
// Every successful write is announced on the [Hub].
type PlaylistHandler struct {
	repo   *repositories.PlaylistRepository
	hub    *Hub
	mux    *http.ServeMux
	logger *log.Logger
}

// NewPlaylistHandler builds the handler and its route table.
func NewPlaylistHandler(repo *repositories.PlaylistRepository, hub *Hub, logger *log.Logger) *PlaylistHandler {
	h := &PlaylistHandler{repo: repo, hub: hub, mux: http.NewServeMux(), logger: logger}

	h.mux.HandleFunc("GET /health", h.health)
	h.mux.HandleFunc("GET /playlists", h.list)
	h.mux.HandleFunc("POST /playlists", h.create)
	h.mux.HandleFunc("GET /playlists/{id}", h.get)
	h.mux.HandleFunc("DELETE /playlists/{id}", h.delete)
	h.mux.HandleFunc("PUT /playlists/{id}/reorder", h.reorder)
	h.mux.HandleFunc("POST /playlists/{id}/media", h.addMedia)
	h.mux.HandleFunc("DELETE /playlists/{id}/media/{mediaItemId}", h.removeMedia)
	h.mux.HandleFunc("GET /playlists/{id}/events", h.events)
	return h
}

// Routes implements [Handler].
func (h *PlaylistHandler) Routes() []string {
	return []string{"/health", "/playlists", "/playlists/"}
}

// ServeHTTP implements [http.Handler].
func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *PlaylistHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PlaylistHandler) list(w http.ResponseWriter, r *http.Request) {
	criteria := map[string]any{
		"owner_id": r.URL.Query().Get("owner"),
		"group_id": r.URL.Query().Get("group"),
	}
	playlists, err := h.repo.List(criteria)
	if err != nil {
		h.fail(w, err)
		return
	}
	if playlists == nil {
		playlists = []*models.Playlist{}
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (h *PlaylistHandler) create(w http.ResponseWriter, r *http.Request) {
	var req services.CreatePlaylistRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}

	p := &models.Playlist{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     req.OwnerID,
		GroupID:     req.GroupID,
		MediaItems:  []models.MediaItem{},
	}
	if err := h.repo.Create(p); err != nil {
		h.fail(w, err)
		return
	}

	h.logger.Info("playlist created", "playlist", p.ID, "owner", p.OwnerID)
	writeJSON(w, http.StatusCreated, p)
}

func (h *PlaylistHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PlaylistHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reorder applies the requested ordering. The request must name exactly the stored item set.
func (h *PlaylistHandler) reorder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req services.ReorderRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	ids, err := orderedIDs(req.MediaItems)
	if err != nil {
		h.fail(w, err)
		return
	}

	items, err := h.repo.Items().Reorder(id, ids)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.logger.Info("playlist reordered", "playlist", id, "items", len(items))
	h.announce(id)
	writeJSON(w, http.StatusOK, services.ReorderResponse{MediaItems: items})
}

func (h *PlaylistHandler) addMedia(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req services.AddMediaRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	item := req.MediaItem
	if item.ID == "" {
		item.ID = shared.GenerateID()
	}

	if _, err := h.repo.Items().Append(id, item); err != nil {
		h.fail(w, err)
		return
	}

	h.logger.Info("media item added", "playlist", id, "item", item.ID)
	if p := h.announce(id); p != nil {
		writeJSON(w, http.StatusCreated, p)
		return
	}
	h.fail(w, fmt.Errorf("failed to reload playlist %s", id))
}

func (h *PlaylistHandler) removeMedia(w http.ResponseWriter, r *http.Request) {
	id, itemID := r.PathValue("id"), r.PathValue("mediaItemId")

	if _, err := h.repo.Items().Remove(id, itemID); err != nil {
		h.fail(w, err)
		return
	}

	h.logger.Info("media item removed", "playlist", id, "item", itemID)
	if p := h.announce(id); p != nil {
		writeJSON(w, http.StatusOK, p)
		return
	}
	h.fail(w, fmt.Errorf("failed to reload playlist %s", id))
}

// events upgrades to a websocket carrying playlist.updated events, starting with the current state.
func (h *PlaylistHandler) events(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "playlist", p.ID, "error", err)
		return
	}
	if err := h.hub.Subscribe(r.Context(), conn, p); err != nil {
		h.logger.Warn("feed subscription failed", "playlist", p.ID, "error", err)
		_ = conn.Close()
	}
}

// announce reloads the playlist and broadcasts it. Returns nil if the reload fails.
func (h *PlaylistHandler) announce(id string) *models.Playlist {
	p, err := h.repo.Get(id)
	if err != nil {
		h.logger.Error("failed to reload playlist after write", "playlist", id, "error", err)
		return nil
	}
	h.hub.Broadcast(p)
	return p
}

func (h *PlaylistHandler) fail(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

// orderedIDs sorts reorder entries by position. Positions must be exactly 0..n-1 and ids unique.
func orderedIDs(entries []services.ItemPosition) ([]string, error) {
	sorted := make([]services.ItemPosition, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	seen := make(map[string]bool, len(sorted))
	ids := make([]string, len(sorted))
	for i, e := range sorted {
		if e.Position != i {
			return nil, fmt.Errorf("%w: positions must be 0..%d without gaps", shared.ErrInvalidInput, len(sorted)-1)
		}
		if e.ID == "" || seen[e.ID] {
			return nil, fmt.Errorf("%w: empty or repeated media item id %q", shared.ErrInvalidInput, e.ID)
		}
		seen[e.ID] = true
		ids[i] = e.ID
	}
	return ids, nil
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, shared.ErrPlaylistNotFound), errors.Is(err, shared.ErrMediaItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrPersistenceConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, services.ErrorResponse{Error: msg})
}
