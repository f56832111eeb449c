// Package watchhub pushes board change notifications to connected
// WebSocket clients, as an alternative to the long-polling /watch
// route for clients that want a persistent connection instead of
// repeated blocking requests.
package watchhub

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"memscramble-server/board"
	"memscramble-server/wsutil"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub maintains the set of connected watch clients and wakes them
// whenever the board changes.
type Hub struct {
	board      *board.Board
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a Hub that watches b for changes.
func NewHub(b *board.Board) *Hub {
	return &Hub{
		board:      b,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's registration loop and its board-watch loop.
// Both stop when ctx is cancelled. Run should be started in its own
// goroutine.
func (h *Hub) Run(ctx context.Context) {
	go h.watchBoard(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "watchhub")
			return
		case c := <-h.register:
			h.clients[c] = true
			slog.Info("client connected", "tag", "watchhub", "total", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				slog.Info("client disconnected", "tag", "watchhub", "total", len(h.clients))
			}
		}
	}
}

// watchBoard blocks on repeated board.Watch calls and broadcasts a
// notification to every connected client on each change.
func (h *Hub) watchBoard(ctx context.Context) {
	for {
		if err := h.board.Watch(ctx); err != nil {
			return
		}
		h.broadcast()
	}
}

func (h *Hub) broadcast() {
	msg := encodeChanged()
	for c := range h.clients {
		wsutil.SafeSend(c.send, msg)
	}
}

// ServeWS upgrades the request to a WebSocket and registers a new
// watch client for playerID.
func (h *Hub) ServeWS(playerID string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("upgrade failed", "tag", "watchhub", "err", err)
		return
	}

	c := &Client{hub: h, conn: conn, send: make(chan []byte, 16), playerID: playerID}
	h.register <- c

	go c.writePump()
	go c.readPump()
}
