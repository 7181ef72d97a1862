package entity

import (
	"github.com/google/uuid"
)

var conversationNamespace = uuid.MustParse("7a1e0c52-9f43-4d0e-8a55-2f6c1b3d9e10")

// ConversationIDFor derives a stable id for a (property, buyer, seller) triple,
// letting document stores enforce uniqueness with create-if-absent.
func ConversationIDFor(propertyID, buyerID, sellerID string) string {
	return uuid.NewSHA1(conversationNamespace, []byte(propertyID+"|"+buyerID+"|"+sellerID)).String()
}

// MoreRecent orders conversations by lastMessageAt descending with never-messaged
// conversations last, then by createdAt descending.
func MoreRecent(a, b *Conversation) bool {
	switch {
	case a.LastMessageAt != nil && b.LastMessageAt == nil:
		return true
	case a.LastMessageAt == nil && b.LastMessageAt != nil:
		return false
	case a.LastMessageAt != nil && !a.LastMessageAt.Equal(*b.LastMessageAt):
		return a.LastMessageAt.After(*b.LastMessageAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Before orders messages by createdAt ascending, ties broken by id. Message ids are
// UUIDv7 so id order follows insertion order.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

func NewMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
