package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/shared"
	"github.com/gorilla/websocket"
)

// Watch subscribes to a playlist's change feed and calls fn with every pushed snapshot.
//
// It blocks until ctx ends, which returns nil, or the connection fails.
func (a *PlaylistAPI) Watch(ctx context.Context, id string, fn func(*models.Playlist)) error {
	wsURL := "ws" + strings.TrimPrefix(a.baseURL, "http") + playlistPath(id) + "/events"

	header := http.Header{}
	if a.token != "" {
		header.Set("Authorization", "Bearer "+a.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return statusError(resp.StatusCode, playlistPath(id), nil)
		}
		return fmt.Errorf("%w: change feed dial: %w", shared.ErrServiceUnavailable, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	})
	defer stop()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("%w: change feed read: %w", shared.ErrServiceUnavailable, err)
		}
		if ev.Type != EventPlaylistUpdated || ev.Playlist == nil {
			continue
		}
		fn(ev.Playlist)
	}
}

// IsWatchClosed reports whether err ended a watch because the server went away rather than
// because of a protocol or auth failure.
func IsWatchClosed(err error) bool {
	return err == nil || errors.Is(err, shared.ErrServiceUnavailable)
}
