package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "http://127.0.0.1:3000"

// PlaylistAPI is an HTTP client for the Playlist Persistence API.
//
// Requests share one rate limiter. When a token is configured every request, including the change
// feed handshake, carries it as a bearer token.
type PlaylistAPI struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewPlaylistAPI creates a client from configuration. A nil client uses [http.DefaultClient] as the
// base transport.
func NewPlaylistAPI(cfg shared.APIConfig, client *http.Client) *PlaylistAPI {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "Bearer",
		}))
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &PlaylistAPI{
		baseURL:    baseURL,
		token:      cfg.Token,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// BaseURL returns the server root the client talks to.
func (a *PlaylistAPI) BaseURL() string { return a.baseURL }

// Health checks that the server is reachable.
func (a *PlaylistAPI) Health(ctx context.Context) error {
	return a.do(ctx, http.MethodGet, "/health", nil, nil)
}

// ListPlaylists returns every playlist without its items' playback state.
func (a *PlaylistAPI) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	if err := a.do(ctx, http.MethodGet, "/playlists", nil, &playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// CreatePlaylist creates an empty playlist.
func (a *PlaylistAPI) CreatePlaylist(ctx context.Context, req CreatePlaylistRequest) (*models.Playlist, error) {
	var p models.Playlist
	if err := a.do(ctx, http.MethodPost, "/playlists", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPlaylist fetches a playlist with its ordered media items.
func (a *PlaylistAPI) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	var p models.Playlist
	if err := a.do(ctx, http.MethodGet, playlistPath(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Reorder sends the full ordering and returns the one the server persisted.
func (a *PlaylistAPI) Reorder(ctx context.Context, id string, items []models.MediaItem) ([]models.MediaItem, error) {
	var resp ReorderResponse
	body := ReorderRequest{MediaItems: Positions(items)}
	if err := a.do(ctx, http.MethodPut, playlistPath(id)+"/reorder", body, &resp); err != nil {
		return nil, err
	}
	return resp.MediaItems, nil
}

// AddMedia appends item and returns the updated playlist.
func (a *PlaylistAPI) AddMedia(ctx context.Context, id string, item models.MediaItem) (*models.Playlist, error) {
	var p models.Playlist
	if err := a.do(ctx, http.MethodPost, playlistPath(id)+"/media", AddMediaRequest{MediaItem: item}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RemoveMedia deletes an item and returns the updated playlist.
func (a *PlaylistAPI) RemoveMedia(ctx context.Context, id, itemID string) (*models.Playlist, error) {
	var p models.Playlist
	path := playlistPath(id) + "/media/" + url.PathEscape(itemID)
	if err := a.do(ctx, http.MethodDelete, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// do performs a rate-limited JSON request and decodes a 2xx response into result.
func (a *PlaylistAPI) do(ctx context.Context, method, path string, body, result any) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", shared.ErrAPIRequest, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, path, data)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

// statusError maps a non-2xx response to a sentinel error.
func statusError(status int, path string, body []byte) error {
	msg := http.StatusText(status)
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		msg = e.Error
	}

	switch {
	case status == http.StatusNotFound && strings.Contains(path, "/media/"):
		return fmt.Errorf("%w: %s", shared.ErrMediaItemNotFound, msg)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, msg)
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %s", shared.ErrPersistenceConflict, msg)
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", shared.ErrInvalidInput, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, status, msg)
	}
}

func playlistPath(id string) string {
	return "/playlists/" + url.PathEscape(id)
}
