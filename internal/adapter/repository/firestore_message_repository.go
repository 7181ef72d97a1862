package repository

import (
	"context"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"

	"propertychat/internal/domain/entity"
	"propertychat/internal/domain/repository"
	"propertychat/pkg/errors"
	"propertychat/pkg/logger"
)

const (
	// Firestore caps the values of an "in" filter at 30.
	firestoreInLimit       = 30
	latestFetchConcurrency = 8
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.client.Collection(conversationsCollection).Doc(conversationID).Collection(messagesCollection)
}

func (r *firestoreMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = entity.NewMessageID()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := r.messages(message.ConversationID).Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}

	return nil
}

func (r *firestoreMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	query := r.messages(conversationID).
		OrderBy("createdAt", firestore.Asc).
		OrderBy("id", firestore.Asc)

	return r.collect(ctx, conversationID, query)
}

// LatestByConversation has no single-query form in Firestore, so the per
// conversation lookups run concurrently.
func (r *firestoreMessageRepository) LatestByConversation(ctx context.Context, conversationIDs []string) (map[string]*entity.Message, error) {
	var (
		mu     sync.Mutex
		latest = make(map[string]*entity.Message, len(conversationIDs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(latestFetchConcurrency)
	for _, id := range lo.Uniq(conversationIDs) {
		id := id
		g.Go(func() error {
			query := r.messages(id).
				OrderBy("createdAt", firestore.Desc).
				OrderBy("id", firestore.Desc).
				Limit(1)

			messages, err := r.collect(gctx, id, query)
			if err != nil || len(messages) == 0 {
				return err
			}

			mu.Lock()
			latest[id] = messages[0]
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return latest, nil
}

func (r *firestoreMessageRepository) MarkRead(ctx context.Context, conversationID string, messageIDs []string) ([]string, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make(map[string]*firestore.BulkWriterJob, len(messageIDs))
	for _, id := range lo.Uniq(messageIDs) {
		job, err := bw.Update(r.messages(conversationID).Doc(id), []firestore.Update{{Path: "isRead", Value: true}})
		if err != nil {
			bw.End()
			return nil, errors.Internal("Failed to queue read status update", err)
		}
		jobs[id] = job
	}
	bw.End()

	var (
		flipped  []string
		firstErr error
	)
	for _, id := range messageIDs {
		job, ok := jobs[id]
		if !ok {
			continue
		}
		delete(jobs, id)

		if _, err := job.Results(); err != nil {
			logger.Warn("MarkRead: failed to flip message %s in conversation %s: %v", id, conversationID, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		flipped = append(flipped, id)
	}

	if len(flipped) == 0 && firstErr != nil {
		return nil, errors.Internal("Failed to mark messages as read", firstErr)
	}
	return flipped, nil
}

// UnreadCounts queries the messages collection group, filtering the sender in
// memory: a "!=" on senderId next to the isRead equality would need another
// composite index.
func (r *firestoreMessageRepository) UnreadCounts(ctx context.Context, readerID string, conversationIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(conversationIDs))

	for _, chunk := range lo.Chunk(lo.Uniq(conversationIDs), firestoreInLimit) {
		docs, err := r.client.CollectionGroup(messagesCollection).
			Where("conversationId", "in", chunk).
			Where("isRead", "==", false).
			Documents(ctx).GetAll()
		if err != nil {
			return nil, errors.Internal("Failed to query unread messages", err)
		}

		for _, doc := range docs {
			var message entity.Message
			if err := doc.DataTo(&message); err != nil {
				logger.Warn("Skipping unreadable message %s: %v", doc.Ref.ID, err)
				continue
			}
			if message.SenderID != readerID {
				counts[message.ConversationID]++
			}
		}
	}

	return counts, nil
}

func (r *firestoreMessageRepository) collect(ctx context.Context, conversationID string, query firestore.Query) ([]*entity.Message, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for conversation %s: %v", conversationID, err)
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Error("Error parsing message data for conversation %s: %v", conversationID, err)
			return nil, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, &message)
	}

	return messages, nil
}
