package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/services"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
	broadcastQueue = 64
)

type message struct {
	playlistID string
	data       []byte
}

// Hub owns the change feed subscribers, grouped by playlist, and fans out playlist updates to them.
//
// All room bookkeeping happens on the goroutine running [Hub.Run].
type Hub struct {
	rooms      map[string]map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *log.Logger
}

// NewHub creates a hub; call [Hub.Run] to start delivering.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan message, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, room := range h.rooms {
				for client := range room {
					h.drop(client)
				}
			}
			return

		case client := <-h.register:
			room, ok := h.rooms[client.playlistID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.playlistID] = room
			}
			room[client] = true
			h.logger.Debug("feed subscriber joined", "playlist", client.playlistID, "subscribers", len(room))

		case client := <-h.unregister:
			if h.rooms[client.playlistID][client] {
				h.drop(client)
			}

		case msg := <-h.broadcast:
			for client := range h.rooms[msg.playlistID] {
				select {
				case client.send <- msg.data:
				default:
					h.logger.Warn("dropping slow feed subscriber", "playlist", msg.playlistID)
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	room := h.rooms[client.playlistID]
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.playlistID)
	}
	close(client.send)
}

// Broadcast queues a playlist.updated event for every subscriber of the playlist.
//
// Never blocks; when the queue is full the event is dropped and subscribers catch up on the next write.
func (h *Hub) Broadcast(p *models.Playlist) {
	data, err := encodeEvent(p)
	if err != nil {
		h.logger.Error("failed to encode feed event", "playlist", p.ID, "error", err)
		return
	}

	select {
	case h.broadcast <- message{playlistID: p.ID, data: data}:
	default:
		h.logger.Warn("feed broadcast queue full", "playlist", p.ID)
	}
}

// Subscribe registers conn for updates to playlist and starts its pumps, sending snapshot first.
func (h *Hub) Subscribe(ctx context.Context, conn *websocket.Conn, snapshot *models.Playlist) error {
	data, err := encodeEvent(snapshot)
	if err != nil {
		return err
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		playlistID: snapshot.ID,
		send:       make(chan []byte, sendBuffer),
	}
	client.send <- data

	select {
	case h.register <- client:
	case <-h.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}

	go client.writePump()
	go client.readPump()
	return nil
}

func encodeEvent(p *models.Playlist) ([]byte, error) {
	return json.Marshal(services.Event{Type: services.EventPlaylistUpdated, Playlist: p})
}

// Client is one websocket subscriber of a playlist's change feed.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	playlistID string
	send       chan []byte
}

// readPump discards inbound messages and unregisters the client once the connection fails.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump delivers queued events and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
