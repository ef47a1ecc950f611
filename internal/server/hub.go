package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// MessageTarget is sent when the player's target body changes.
const MessageTarget = "target"

const (
	sendBuffer = 64
	writeWait  = 5 * time.Second
)

// Message is the envelope for everything pushed over the websocket.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// TargetPayload is the payload of a MessageTarget message.
type TargetPayload struct {
	BodyID int `json:"body_id"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected websocket clients and fans messages out to them.
// Clients that fall behind are dropped rather than blocking the broadcast.
type Hub struct {
	logger io.Writer

	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	upgrader   websocket.Upgrader
	connected  atomic.Int64
}

// NewHub returns a hub. Run must be started before clients connect.
func NewHub(logger io.Writer) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Overlays are served from other origins; CORS covers the REST side.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run owns the client set until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.connected.Store(0)
			return
		case c := <-h.register:
			h.clients[c] = true
			h.connected.Store(int64(len(h.clients)))
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
			h.connected.Store(int64(len(h.clients)))
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.connected.Store(int64(len(h.clients)))
		}
	}
}

// Broadcast queues msg for every connected client. It drops the message when
// the hub has stopped or its queue is full.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		fmt.Fprintf(h.log(), "warning: server: encode %s message: %v\n", msg.Type, err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		fmt.Fprintf(h.log(), "warning: server: broadcast queue full; %s message dropped\n", msg.Type)
	}
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int { return int(h.connected.Load()) }

// NotifyTarget broadcasts a target change. Its signature matches the engine's
// target listener.
func (h *Hub) NotifyTarget(bodyID int) {
	h.Broadcast(Message{Type: MessageTarget, Payload: TargetPayload{BodyID: bodyID}})
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		fmt.Fprintf(h.log(), "warning: server: websocket upgrade: %v\n", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards inbound frames and unregisters the client when the
// connection closes.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Fprintf(h.log(), "warning: server: websocket read: %v\n", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) log() io.Writer {
	if h.logger != nil {
		return h.logger
	}
	return os.Stderr
}
