package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"propertychat/internal/domain/entity"
	"propertychat/internal/domain/repository"
	"propertychat/pkg/errors"
)

const conversationColumns = `id, property_id, buyer_id, seller_id, last_message_at, created_at`

type postgresConversationRepository struct {
	db *sql.DB
}

func NewPostgresConversationRepository(db *sql.DB) repository.ConversationRepository {
	return &postgresConversationRepository{db: db}
}

func scanConversation(row rowScanner) (*entity.Conversation, error) {
	var (
		c             entity.Conversation
		lastMessageAt sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.PropertyID, &c.BuyerID, &c.SellerID, &lastMessageAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	if lastMessageAt.Valid {
		at := lastMessageAt.Time
		c.LastMessageAt = &at
	}
	c.Participants = []string{c.BuyerID, c.SellerID}
	return &c, nil
}

func (r *postgresConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	conversation.ID = uuid.New().String()
	conversation.Participants = []string{conversation.BuyerID, conversation.SellerID}
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, property_id, buyer_id, seller_id, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, NULL, $5)
	`, conversation.ID, conversation.PropertyID, conversation.BuyerID, conversation.SellerID, conversation.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("Conversation already exists")
		}
		return errors.Internal("Failed to create conversation", err)
	}

	return nil
}

func (r *postgresConversationRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*entity.Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}
	return c, nil
}

func (r *postgresConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFound("Conversation", err)
	}
	return r.queryOne(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
}

func (r *postgresConversationRepository) FindByParticipants(ctx context.Context, propertyID, buyerID, sellerID string) (*entity.Conversation, error) {
	return r.queryOne(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE property_id = $1 AND buyer_id = $2 AND seller_id = $3
	`, propertyID, buyerID, sellerID)
}

func (r *postgresConversationRepository) FindLatestBySeller(ctx context.Context, propertyID, sellerID string) (*entity.Conversation, error) {
	return r.queryOne(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE property_id = $1 AND seller_id = $2
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
		LIMIT 1
	`, propertyID, sellerID)
}

func (r *postgresConversationRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC
	`, userID)
	if err != nil {
		return nil, errors.Internal("Failed to list conversations", err)
	}
	defer rows.Close()

	var conversations []*entity.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, errors.Internal("Failed to parse conversation row", err)
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal("Failed to list conversations", err)
	}

	return conversations, nil
}

func (r *postgresConversationRepository) TouchLastMessageAt(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations
		SET last_message_at = $2
		WHERE id = $1 AND (last_message_at IS NULL OR last_message_at < $2)
	`, id, at)
	if err != nil {
		return errors.Internal("Failed to update conversation activity", err)
	}
	return nil
}

// Messages go with their conversation through ON DELETE CASCADE.
func (r *postgresConversationRepository) DeleteByProperty(ctx context.Context, propertyID string) (int, error) {
	return r.deleteWhere(ctx, `DELETE FROM conversations WHERE property_id = $1`, propertyID)
}

func (r *postgresConversationRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	return r.deleteWhere(ctx, `DELETE FROM conversations WHERE buyer_id = $1 OR seller_id = $1`, userID)
}

func (r *postgresConversationRepository) deleteWhere(ctx context.Context, query string, arg string) (int, error) {
	res, err := r.db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, errors.Internal("Failed to delete conversations", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Internal("Failed to delete conversations", err)
	}
	return int(n), nil
}
