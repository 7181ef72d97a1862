package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"propertychat/internal/domain/entity"
	"propertychat/internal/domain/repository"
	"propertychat/pkg/errors"
	"propertychat/pkg/logger"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	conversation.ID = entity.ConversationIDFor(conversation.PropertyID, conversation.BuyerID, conversation.SellerID)
	conversation.Participants = []string{conversation.BuyerID, conversation.SellerID}
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = time.Now()
	}

	// Create fails when the document exists, which keeps one conversation per triple.
	_, err := r.client.Collection(conversationsCollection).Doc(conversation.ID).Create(ctx, conversation)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Conversation already exists")
		}
		return errors.Internal("Failed to create conversation", err)
	}

	return nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection(conversationsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}

	var conversation entity.Conversation
	if err := doc.DataTo(&conversation); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	conversation.ID = doc.Ref.ID

	return &conversation, nil
}

func (r *firestoreConversationRepository) FindByParticipants(ctx context.Context, propertyID, buyerID, sellerID string) (*entity.Conversation, error) {
	return r.GetByID(ctx, entity.ConversationIDFor(propertyID, buyerID, sellerID))
}

func (r *firestoreConversationRepository) FindLatestBySeller(ctx context.Context, propertyID, sellerID string) (*entity.Conversation, error) {
	// Firestore sorts null before any timestamp, so descending puts never-messaged conversations last.
	query := r.client.Collection(conversationsCollection).
		Where("propertyId", "==", propertyID).
		Where("sellerId", "==", sellerID).
		OrderBy("lastMessageAt", firestore.Desc).
		OrderBy("createdAt", firestore.Desc).
		Limit(1)

	doc, err := query.Documents(ctx).Next()
	if err != nil {
		if err == iterator.Done {
			return nil, errors.NotFound("Conversation", nil)
		}
		return nil, errors.Internal("Failed to query conversations by seller", err)
	}

	var conversation entity.Conversation
	if err := doc.DataTo(&conversation); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	conversation.ID = doc.Ref.ID

	return &conversation, nil
}

func (r *firestoreConversationRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	query := r.client.Collection(conversationsCollection).
		Where("participants", "array-contains", userID).
		OrderBy("lastMessageAt", firestore.Desc).
		OrderBy("createdAt", firestore.Desc)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var conversations []*entity.Conversation
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while listing conversations for user %s: %v", userID, err)
			return nil, errors.Internal("Failed to list conversations", err)
		}

		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err != nil {
			logger.Warn("Skipping unreadable conversation %s for user %s: %v", doc.Ref.ID, userID, err)
			continue
		}
		conversation.ID = doc.Ref.ID
		conversations = append(conversations, &conversation)
	}

	return conversations, nil
}

func (r *firestoreConversationRepository) TouchLastMessageAt(ctx context.Context, id string, at time.Time) error {
	ref := r.client.Collection(conversationsCollection).Doc(id)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err != nil {
			return err
		}
		if conversation.LastMessageAt != nil && !at.After(*conversation.LastMessageAt) {
			return nil
		}

		return tx.Update(ref, []firestore.Update{{Path: "lastMessageAt", Value: at}})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.Internal("Failed to update conversation activity", err)
	}

	return nil
}

func (r *firestoreConversationRepository) DeleteByProperty(ctx context.Context, propertyID string) (int, error) {
	query := r.client.Collection(conversationsCollection).Where("propertyId", "==", propertyID)
	return r.deleteMatching(ctx, query)
}

func (r *firestoreConversationRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	query := r.client.Collection(conversationsCollection).Where("participants", "array-contains", userID)
	return r.deleteMatching(ctx, query)
}

// deleteMatching removes each conversation together with its messages subcollection.
func (r *firestoreConversationRepository) deleteMatching(ctx context.Context, query firestore.Query) (int, error) {
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.Internal("Failed to query conversations for deletion", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	bw := r.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob

	for _, doc := range docs {
		messages, err := doc.Ref.Collection(messagesCollection).Documents(ctx).GetAll()
		if err != nil {
			bw.End()
			return 0, errors.Internal("Failed to list messages for deletion", err)
		}
		for _, m := range messages {
			job, err := bw.Delete(m.Ref)
			if err != nil {
				bw.End()
				return 0, errors.Internal("Failed to queue message deletion", err)
			}
			jobs = append(jobs, job)
		}

		job, err := bw.Delete(doc.Ref)
		if err != nil {
			bw.End()
			return 0, errors.Internal("Failed to queue conversation deletion", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return 0, errors.Internal("Failed to delete conversation data", err)
		}
	}

	return len(docs), nil
}
