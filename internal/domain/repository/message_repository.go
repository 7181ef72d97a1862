package repository

import (
	"context"

	"propertychat/internal/domain/entity"
)

//go:generate mockgen -destination=../../mocks/mock_message_repository.go -package=mocks propertychat/internal/domain/repository MessageRepository

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	// ListByConversation returns messages ascending by createdAt, ties by id.
	ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error)
	// LatestByConversation maps each conversation id to its newest message.
	// Conversations without messages are absent from the map.
	LatestByConversation(ctx context.Context, conversationIDs []string) (map[string]*entity.Message, error)
	// MarkRead flips the given messages to read and returns the ids this call
	// actually persisted as read. Ids that were already read or failed to
	// update are left out.
	MarkRead(ctx context.Context, conversationID string, messageIDs []string) ([]string, error)
	// UnreadCounts counts, per conversation, the messages readerID has not read
	// yet, excluding their own. Conversations with nothing unread may be absent.
	UnreadCounts(ctx context.Context, readerID string, conversationIDs []string) (map[string]int, error)
}
