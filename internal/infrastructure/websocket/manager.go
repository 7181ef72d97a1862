package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"propertychat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Client represents a WebSocket connection client
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Manager tracks the live connections of every user. A user may hold several
// connections (one per tab or device); events fan out to all of them.
type Manager struct {
	clients    map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.add(client)
				logger.L().Debug("websocket client registered", zap.String("user_id", client.UserID))

			case client := <-m.Unregister:
				m.remove(client)
				logger.L().Debug("websocket client unregistered", zap.String("user_id", client.UserID))

			case <-ctx.Done():
				close(m.done)
				m.closeAll()
				return
			}
		}
	}()
}

func (m *Manager) add(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	conns, ok := m.clients[client.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		m.clients[client.UserID] = conns
	}
	conns[client] = struct{}{}
}

// remove is idempotent; Send is closed exactly once.
func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.removeLocked(client)
}

func (m *Manager) removeLocked(client *Client) {
	conns, ok := m.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.Send)
	if len(conns) == 0 {
		delete(m.clients, client.UserID)
	}
}

func (m *Manager) closeAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, conns := range m.clients {
		for client := range conns {
			m.removeLocked(client)
		}
	}
}

// ConnectedClients returns the number of live connections for a user.
func (m *Manager) ConnectedClients(userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID])
}

// NotifyUser pushes an event to every connection of the user. Delivery is best
// effort: offline users are skipped and clients with a full buffer are dropped.
func (m *Manager) NotifyUser(userID, eventType string, payload interface{}) {
	message, err := json.Marshal(NewEvent(eventType, payload))
	if err != nil {
		logger.Error("WebSocket: failed to encode %s event for %s: %v", eventType, userID, err)
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	for client := range m.clients[userID] {
		select {
		case client.Send <- message:
		default:
			logger.Warn("WebSocket: dropping slow client %s", userID)
			m.removeLocked(client)
		}
	}
}

// Serve registers the connection and starts its pumps.
func (m *Manager) Serve(userID string, conn *websocket.Conn) {
	client := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
	}

	select {
	case m.Register <- client:
	case <-m.done:
		conn.Close()
		return
	}

	go client.ReadPump(m)
	go client.WritePump()
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-m.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error for %s: %v", c.UserID, err)
			}
			break
		}

		m.handleClientMessage(c, message)
	}
}

// WritePump sends queued events and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write error for %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
