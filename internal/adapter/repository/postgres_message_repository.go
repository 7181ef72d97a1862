package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"propertychat/internal/domain/entity"
	"propertychat/internal/domain/repository"
	"propertychat/pkg/errors"
)

const messageColumns = `id, conversation_id, sender_id, text, is_read, created_at`

type postgresMessageRepository struct {
	db *sql.DB
}

func NewPostgresMessageRepository(db *sql.DB) repository.MessageRepository {
	return &postgresMessageRepository{db: db}
}

func scanMessage(row rowScanner) (*entity.Message, error) {
	var m entity.Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.IsRead, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *postgresMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = entity.NewMessageID()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, text, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, message.ID, message.ConversationID, message.SenderID, message.Text, message.IsRead, message.CreatedAt)
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}
	return nil
}

func (r *postgresMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, errors.Internal("Failed to list messages", err)
	}
	defer rows.Close()

	var messages []*entity.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, errors.Internal("Failed to parse message row", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("Failed to list messages", err)
	}
	return messages, nil
}

func (r *postgresMessageRepository) LatestByConversation(ctx context.Context, conversationIDs []string) (map[string]*entity.Message, error) {
	latest := make(map[string]*entity.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return latest, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (conversation_id) `+messageColumns+`
		FROM messages
		WHERE conversation_id = ANY($1::uuid[])
		ORDER BY conversation_id, created_at DESC, id DESC
	`, pq.Array(conversationIDs))
	if err != nil {
		return nil, errors.Internal("Failed to get latest messages", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, errors.Internal("Failed to parse message row", err)
		}
		latest[m.ConversationID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("Failed to get latest messages", err)
	}
	return latest, nil
}

func (r *postgresMessageRepository) MarkRead(ctx context.Context, conversationID string, messageIDs []string) ([]string, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		UPDATE messages
		SET is_read = true
		WHERE conversation_id = $1 AND id = ANY($2::uuid[]) AND NOT is_read
		RETURNING id
	`, conversationID, pq.Array(messageIDs))
	if err != nil {
		return nil, errors.Internal("Failed to mark messages as read", err)
	}
	defer rows.Close()

	var flipped []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Internal("Failed to mark messages as read", err)
		}
		flipped = append(flipped, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("Failed to mark messages as read", err)
	}
	return flipped, nil
}

func (r *postgresMessageRepository) UnreadCounts(ctx context.Context, readerID string, conversationIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return counts, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT conversation_id, count(*)
		FROM messages
		WHERE conversation_id = ANY($1::uuid[]) AND sender_id <> $2 AND NOT is_read
		GROUP BY conversation_id
	`, pq.Array(conversationIDs), readerID)
	if err != nil {
		return nil, errors.Internal("Failed to count unread messages", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, errors.Internal("Failed to count unread messages", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("Failed to count unread messages", err)
	}
	return counts, nil
}
