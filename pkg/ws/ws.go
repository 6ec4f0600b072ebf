// Package ws streams order status changes to connected storefront clients
// over gorilla/websocket.
//
// A Hub owns the set of live connections:
//
//	var OrderHub = ws.NewHub()
//	func init() { go OrderHub.Run() }
//
//	r.Handle("GET", "/ws/orders", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	    ws.Upgrade(w, r, OrderHub)
//	}))
//
//	OrderHub.Broadcast <- payload
package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adityaraj/bazario/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow-all; production deployments call SetCheckOrigin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SetCheckOrigin replaces the default allow-all origin checker.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}

// Message is one inbound frame from a client.
type Message struct {
	Client *Client
	Data   []byte
}

// Client is one live WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Send queues data for this client. Frames are dropped when the client's
// buffer is full rather than blocking the caller.
func (c *Client) Send(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

// readLoop forwards client frames to the hub until the connection dies.
func (c *Client) readLoop() {
	defer func() {
		c.hub.detach <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: unexpected close", "error", err)
			}
			return
		}
		c.hub.Inbound <- Message{Client: c, Data: data}
	}
}

// writeLoop drains the send buffer and keeps the connection alive with
// pings.
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, open := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub tracks live connections and fans broadcasts out to all of them.
type Hub struct {
	clients map[*Client]struct{}

	// Broadcast fans a frame out to every connected client.
	Broadcast chan []byte
	// Inbound receives frames sent by clients.
	Inbound chan Message
	// OnMessage, when set, is invoked for each inbound frame.
	OnMessage func(hub *Hub, msg Message)

	attach chan *Client
	detach chan *Client
}

// NewHub builds a Hub. Start its event loop with `go hub.Run()`.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		Broadcast: make(chan []byte, 256),
		Inbound:   make(chan Message, 256),
		attach:    make(chan *Client),
		detach:    make(chan *Client),
	}
}

// Run is the hub event loop. It owns the clients map; run it in exactly one
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.attach:
			h.clients[c] = struct{}{}
			logger.Info("ws: client connected", "total", len(h.clients))

		case c := <-h.detach:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				logger.Info("ws: client disconnected", "total", len(h.clients))
			}

		case data := <-h.Broadcast:
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// Slow consumer; cut it loose.
					close(c.send)
					delete(h.clients, c)
				}
			}

		case msg := <-h.Inbound:
			if h.OnMessage != nil {
				h.OnMessage(h, msg)
			}
		}
	}
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int { return len(h.clients) }

// Upgrade promotes the HTTP request to a WebSocket and attaches the new
// client to hub.
func Upgrade(w http.ResponseWriter, r *http.Request, hub *Hub) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("ws: upgrade failed", "error", err)
		return
	}
	c := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
	hub.attach <- c
	go c.writeLoop()
	go c.readLoop()
}
