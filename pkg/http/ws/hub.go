package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub manages WebSocket connections. A user may hold several connections at
// once (one per browser tab), so connections are keyed by their own ID and a
// side index maps users to their open tabs.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*Connection // conn_id -> connection
	userConns   map[uuid.UUID][]uuid.UUID // user_id -> []conn_id
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		userConns:   make(map[uuid.UUID][]uuid.UUID),
		logger:      logger,
	}
}

// Register adds a connection. userID is uuid.Nil for anonymous clients, which
// still receive broadcasts but no per-user messages.
func (h *Hub) Register(connID, userID uuid.UUID, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[connID] = conn
	if userID != uuid.Nil {
		h.userConns[userID] = append(h.userConns[userID], connID)
	}
	h.logger.Debug().Str("conn_id", connID.String()).Str("user_id", userID.String()).Msg("connection registered")
}

// Unregister removes a connection and closes it.
func (h *Hub) Unregister(connID, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[connID]; exists {
		conn.Close()
		delete(h.connections, connID)
	}

	if userID != uuid.Nil {
		conns := h.userConns[userID]
		for i, id := range conns {
			if id == connID {
				h.userConns[userID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.userConns[userID]) == 0 {
			delete(h.userConns, userID)
		}
	}
}

// BroadcastAll sends a message to every connected client.
func (h *Hub) BroadcastAll(msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var firstErr error
	for connID, conn := range h.connections {
		if err := conn.Send(msg); err != nil && firstErr == nil {
			firstErr = err
			h.logger.Warn().Err(err).Str("conn_id", connID.String()).Msg("broadcast send failed")
		}
	}
	return firstErr
}

// SendToUser delivers a message to every open tab of one user.
func (h *Hub) SendToUser(userID uuid.UUID, msg Message) error {
	h.mu.RLock()
	connIDs := h.userConns[userID]
	conns := make([]*Connection, 0, len(connIDs))
	for _, id := range connIDs {
		if conn, ok := h.connections[id]; ok {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return ErrConnectionNotFound
	}

	var firstErr error
	for _, conn := range conns {
		if err := conn.Send(msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ConnectionCount reports currently open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Connection represents a WebSocket connection with a buffered send queue.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 256),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump sends messages from the send queue.
func (c *Connection) WritePump() {
	defer c.conn.Close()

	for msg := range c.sendCh {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Warn().Err(err).Msg("write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump receives messages and calls the handler.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionNotFound = &Error{Code: "connection_not_found", Message: "no open connection for user"}
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
