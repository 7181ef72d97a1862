package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"propertychat/internal/adapter/repository"
	"propertychat/internal/domain/entity"
)

const (
	buyerID    = "u-buyer"
	sellerID   = "u-seller"
	outsiderID = "u-outsider"
	propertyID = "p-loft"
)

var testCtx = context.Background()

type notification struct {
	UserID  string
	Type    string
	Payload interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) NotifyUser(userID, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{UserID: userID, Type: eventType, Payload: payload})
}

func (n *recordingNotifier) ofType(eventType string) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, e := range n.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type stubLimiter struct {
	deny map[string]bool
}

func (l *stubLimiter) Allow(userID, action string) (bool, time.Duration) {
	if l.deny[action] {
		return false, time.Minute
	}
	return true, 0
}

type fixture struct {
	store         *repository.MemoryStore
	conversations *ConversationUseCase
	messages      *MessageUseCase
	notifier      *recordingNotifier
	limiter       *stubLimiter
	clock         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	for _, u := range []*entity.User{
		{ID: buyerID, Username: "bea", Email: "bea@example.com", FirstName: "Bea", LastName: "Buyer"},
		{ID: sellerID, Username: "sam", Email: "sam@example.com", FirstName: "Sam", LastName: "Seller"},
		{ID: outsiderID, Username: "otto", Email: "otto@example.com"},
	} {
		store.PutUser(u)
	}
	store.PutProperty(&entity.Property{
		ID:      propertyID,
		OwnerID: sellerID,
		Title:   "Sunny loft",
		Images: []entity.PropertyImage{
			{URL: "https://img.example.com/2.jpg", DisplayOrder: 2},
			{URL: "https://img.example.com/1.jpg", DisplayOrder: 1},
		},
	})
	store.PutProperty(&entity.Property{ID: "p-orphan", Title: "No owner"})

	f := &fixture{
		store:    store,
		notifier: &recordingNotifier{},
		limiter:  &stubLimiter{deny: map[string]bool{}},
		clock:    time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
	}

	f.conversations = NewConversationUseCase(
		store.Conversations(), store.Messages(), store.Properties(), store.Users(),
		nil, f.notifier, f.limiter,
	)
	f.messages = NewMessageUseCase(
		store.Conversations(), store.Messages(), store.Users(),
		nil, f.notifier, f.limiter, 0,
	)
	f.messages.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}

	return f
}

func (f *fixture) openConversation(t *testing.T) *ConversationResponse {
	t.Helper()
	conv, err := f.conversations.GetOrCreateConversation(testCtx, propertyID, buyerID)
	require.NoError(t, err)
	return conv
}

func (f *fixture) send(t *testing.T, conversationID, senderID, text string) *MessageResponse {
	t.Helper()
	msg, err := f.messages.SendMessage(testCtx, conversationID, senderID, text)
	require.NoError(t, err)
	return msg
}
