package repository

import (
	"context"
	"time"

	"propertychat/internal/domain/entity"
)

// ConversationRepository owns conversation rows. Lookups that find nothing
// return an errors.CodeNotFound AppError; Create returns errors.CodeConflict
// when the (property, buyer, seller) triple already exists.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	FindByParticipants(ctx context.Context, propertyID, buyerID, sellerID string) (*entity.Conversation, error)
	FindLatestBySeller(ctx context.Context, propertyID, sellerID string) (*entity.Conversation, error)
	// ListByUser returns the user's conversations most recent first:
	// lastMessageAt descending with nulls last, then createdAt descending.
	ListByUser(ctx context.Context, userID string) ([]*entity.Conversation, error)

	// TouchLastMessageAt only moves lastMessageAt forward.
	TouchLastMessageAt(ctx context.Context, id string, at time.Time) error

	// Cascading deletes, messages included.
	DeleteByProperty(ctx context.Context, propertyID string) (int, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
}
