package terminalstream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"research_platform_backend/models"

	"github.com/gorilla/websocket"
)

const (
	maxClients     = 500
	sendBuffer     = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 4096
)

// Event is a message pushed to terminal stream subscribers
type Event struct {
	Type      string      `json:"type"` // message, error
	ThreadKey string      `json:"thread_key"`
	Data      interface{} `json:"data"`
	Time      string      `json:"time"`
}

// client is one websocket subscriber watching a thread
type client struct {
	conn      *websocket.Conn
	send      chan []byte
	threadKey string
}

// Hub fans out terminal messages to websocket subscribers per thread.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	shutdown   chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// NewHub creates and starts the stream hub.
func NewHub() *Hub {
	hub := &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	go hub.run()
	return hub
}

// Shutdown closes all client connections.
func (h *Hub) Shutdown() {
	close(h.shutdown)

	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		c.conn.Close()
	}
	h.clients = make(map[*client]bool)
	h.mu.Unlock()
}

// PublishMessage pushes a persisted chat message to the thread's subscribers.
func (h *Hub) PublishMessage(threadKey string, message *models.ChatMessage) {
	select {
	case h.broadcast <- Event{
		Type:      "message",
		ThreadKey: threadKey,
		Data:      message,
		Time:      time.Now().Format(time.RFC3339),
	}:
	default:
		log.Println("Terminal stream broadcast buffer full, dropping event")
	}
}

// Subscribe upgrades the request to a websocket watching one thread.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, threadKey string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		threadKey: threadKey,
	}
	select {
	case h.register <- c:
	case <-h.shutdown:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"))
		conn.Close()
		return nil
	}

	go c.writePump()
	go c.readPump(h)
	return nil
}

func (h *Hub) run() {
	for {
		select {
		case <-h.shutdown:
			return

		case c := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= maxClients {
				h.mu.Unlock()
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Server at capacity"))
				c.conn.Close()
				continue
			}
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error marshaling stream event: %v", err)
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				if c.threadKey != event.ThreadKey {
					continue
				}
				select {
				case c.send <- data:
				default:
					// Slow client, drop it.
					go func(dead *client) {
						select {
						case h.unregister <- dead:
						case <-h.shutdown:
						}
					}(c)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump(h *Hub) {
	defer func() {
		// After Shutdown the run loop no longer drains unregister; the
		// select keeps this goroutine from blocking on a dead channel.
		select {
		case h.unregister <- c:
		case <-h.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The stream is read-only; inbound frames are consumed and dropped.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Terminal stream read error: %v", err)
			}
			return
		}
	}
}
