package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/photomanager/api/internal/model"
)

// Client represents a WebSocket client. Its outbound queue is closed in
// exactly one place (close); every producer goes through trySend, so a send
// on a closed channel cannot happen even when the broadcast loop and the
// reader race.
type Client struct {
	SessionID string
	Conn      *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newClient(conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		SessionID: sessionID,
		Conn:      conn,
		send:      make(chan []byte, 256),
	}
}

// trySend queues msg without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub maintains active WebSocket connections, grouped by the opaque session
// id the browser supplies when connecting. Progress events are addressed to
// a session id; publishing to an id with no connected client is a no-op.
// A single broadcast loop keeps per-session delivery in emission order.
type Hub struct {
	// Clients grouped by session id
	clients map[string]map[*Client]bool

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Broadcast messages to session subscribers
	broadcast chan *BroadcastMessage
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	SessionID string
	Message   []byte
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
}

// Run starts the hub's main loop. The clients map is touched only here.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.SessionID] == nil {
				h.clients[client.SessionID] = make(map[*Client]bool)
			}
			h.clients[client.SessionID][client] = true
			log.Printf("Client registered for session %s", client.SessionID)

		case client := <-h.unregister:
			h.drop(client)
			log.Printf("Client unregistered from session %s", client.SessionID)

		case msg := <-h.broadcast:
			for client := range h.clients[msg.SessionID] {
				if !client.trySend(msg.Message) {
					// Slow or gone; drop it rather than block delivery
					// for the session's other clients.
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	if clients, ok := h.clients[client.SessionID]; ok {
		if clients[client] {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.clients, client.SessionID)
			}
		}
	}
	client.close()
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastProgress sends a stage checkpoint to the session's subscribers
func (h *Hub) BroadcastProgress(sessionID string, photoID int64, stage string, progress int, message string) {
	msg := model.WSProgressMessage{
		Type:     model.WSMessageTypeProgress,
		PhotoID:  photoID,
		Stage:    stage,
		Progress: progress,
		Message:  message,
	}
	h.publish(sessionID, msg)
}

// BroadcastComplete sends the terminal success event carrying the reloaded photo
func (h *Hub) BroadcastComplete(sessionID string, photoID int64, photo *model.PhotoDetail, message string) {
	msg := model.WSCompleteMessage{
		Type:    model.WSMessageTypeComplete,
		PhotoID: photoID,
		Photo:   photo,
		Message: message,
	}
	h.publish(sessionID, msg)
}

// BroadcastError sends the terminal error event
func (h *Hub) BroadcastError(sessionID string, photoID int64, errMsg, message string) {
	msg := model.WSErrorMessage{
		Type:    model.WSMessageTypeError,
		PhotoID: photoID,
		Error:   errMsg,
		Message: message,
	}
	h.publish(sessionID, msg)
}

func (h *Hub) publish(sessionID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal websocket message: %v", err)
		return
	}

	h.broadcast <- &BroadcastMessage{
		SessionID: sessionID,
		Message:   data,
	}
}

// HandleConnection handles a WebSocket connection
func (h *Hub) HandleConnection(c *websocket.Conn, sessionID string) {
	client := newClient(c, sessionID)

	h.Register(client)
	defer h.Unregister(client)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		// Handle client messages (ping/pong)
		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong := model.WSMessage{Type: model.WSMessageTypePong}
			data, _ := json.Marshal(pong)
			client.trySend(data)
		}
	}
}
