package websocket

import (
	"encoding/json"
	"time"
)

// Event types pushed to clients
const (
	EventNewMessage          = "new_message"
	EventMessagesRead        = "messages_read"
	EventConversationCreated = "conversation_created"
	EventPing                = "ping"
	EventPong                = "pong"
	EventError               = "error"
)

type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

func NewEvent(eventType string, data interface{}) Event {
	return Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// The push channel is one-way apart from keepalive: messages are sent over HTTP.
func (m *Manager) handleClientMessage(client *Client, raw []byte) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		m.reply(client, NewEvent(EventError, map[string]string{"message": "Invalid message format"}))
		return
	}

	switch event.Type {
	case EventPing:
		m.reply(client, NewEvent(EventPong, map[string]string{"status": "alive"}))
	default:
		m.reply(client, NewEvent(EventError, map[string]string{"message": "Unknown message type"}))
	}
}

func (m *Manager) reply(client *Client, event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if _, live := m.clients[client.UserID][client]; !live {
		return
	}
	select {
	case client.Send <- message:
	default:
	}
}
