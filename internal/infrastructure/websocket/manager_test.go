package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, m *Manager) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.Serve(r.URL.Query().Get("user"), conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func newRunningManager(t *testing.T) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m := NewManager()
	m.Start(ctx)
	return m
}

func TestNotifyUser_FansOutToEveryConnection(t *testing.T) {
	m := newRunningManager(t)
	srv := startServer(t, m)

	tab1 := dial(t, srv, "buyer")
	tab2 := dial(t, srv, "buyer")
	other := dial(t, srv, "seller")
	require.Eventually(t, func() bool {
		return m.ConnectedClients("buyer") == 2 && m.ConnectedClients("seller") == 1
	}, 2*time.Second, 10*time.Millisecond)

	m.NotifyUser("buyer", EventNewMessage, map[string]string{"text": "hello"})

	for _, conn := range []*websocket.Conn{tab1, tab2} {
		event := readEvent(t, conn)
		assert.Equal(t, EventNewMessage, event.Type)
		assert.Equal(t, map[string]interface{}{"text": "hello"}, event.Data)
		assert.NotEmpty(t, event.Timestamp)
	}

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "seller must not receive the buyer's event")
}

func TestNotifyUser_OfflineUserIsNoop(t *testing.T) {
	m := newRunningManager(t)
	assert.NotPanics(t, func() {
		m.NotifyUser("nobody", EventMessagesRead, nil)
	})
}

func TestPingGetsPong(t *testing.T) {
	m := newRunningManager(t)
	srv := startServer(t, m)
	conn := dial(t, srv, "buyer")

	require.NoError(t, conn.WriteJSON(Event{Type: EventPing}))
	assert.Equal(t, EventPong, readEvent(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, EventError, readEvent(t, conn).Type)
}

func TestDisconnectUnregisters(t *testing.T) {
	m := newRunningManager(t)
	srv := startServer(t, m)
	conn := dial(t, srv, "buyer")
	require.Eventually(t, func() bool { return m.ConnectedClients("buyer") == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	assert.Eventually(t, func() bool { return m.ConnectedClients("buyer") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNotifyUser_DropsSlowClient(t *testing.T) {
	m := NewManager()
	client := &Client{UserID: "buyer", Send: make(chan []byte, 1)}
	m.add(client)

	m.NotifyUser("buyer", EventNewMessage, "first")
	m.NotifyUser("buyer", EventNewMessage, "second")

	assert.Equal(t, 0, m.ConnectedClients("buyer"))
	_, open := <-client.Send
	assert.True(t, open, "buffered event is still delivered")
	_, open = <-client.Send
	assert.False(t, open)
}
