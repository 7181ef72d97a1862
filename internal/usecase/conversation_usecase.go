package usecase

import (
	"context"

	"github.com/samber/lo"

	"propertychat/internal/domain/entity"
	"propertychat/internal/domain/repository"
	"propertychat/internal/infrastructure/metrics"
	"propertychat/internal/infrastructure/ratelimit"
	ws "propertychat/internal/infrastructure/websocket"
	"propertychat/pkg/errors"
	"propertychat/pkg/logger"
)

type ConversationUseCase struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	propertyRepo     repository.PropertyRepository
	hydrator         *hydrator
	notifier         Notifier
	rateLimiter      RateLimiter
}

func NewConversationUseCase(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	propertyRepo repository.PropertyRepository,
	userRepo repository.UserRepository,
	profileCache ProfileCache,
	notifier Notifier,
	rateLimiter RateLimiter,
) *ConversationUseCase {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if profileCache == nil {
		profileCache = nopProfileCache{}
	}

	return &ConversationUseCase{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		propertyRepo:     propertyRepo,
		hydrator: &hydrator{
			propertyRepo: propertyRepo,
			userRepo:     userRepo,
			cache:        profileCache,
		},
		notifier:    notifier,
		rateLimiter: rateLimiter,
	}
}

// GetOrCreateConversation resolves the caller's conversation about a property.
// The owner gets the most recently active conversation on it; anyone else gets
// their own conversation with the owner, created on first contact.
func (uc *ConversationUseCase) GetOrCreateConversation(ctx context.Context, propertyID, userID string) (*ConversationResponse, error) {
	property, err := uc.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		logger.Warn("GetOrCreateConversation Error: Property %s lookup failed: %v", propertyID, err)
		return nil, err
	}

	if property.OwnerID == "" {
		logger.Error("GetOrCreateConversation Error: Property %s has no owner", propertyID)
		return nil, errors.InvalidState("property has no owner")
	}

	if roleForProperty(property, userID) == RoleSeller {
		conversation, err := uc.conversationRepo.FindLatestBySeller(ctx, propertyID, userID)
		if err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				return nil, errors.NoConversationsYet()
			}
			logger.Error("GetOrCreateConversation Error: Failed to find conversations for seller %s on property %s: %v", userID, propertyID, err)
			return nil, err
		}
		return uc.withHistory(ctx, conversation, property)
	}

	buyerID, sellerID := userID, property.OwnerID
	if buyerID == sellerID {
		return nil, errors.InvalidOperation("cannot converse with self")
	}

	existing, err := uc.conversationRepo.FindByParticipants(ctx, propertyID, buyerID, sellerID)
	if err == nil {
		return uc.withHistory(ctx, existing, property)
	}
	if !errors.Is(err, errors.CodeNotFound) {
		logger.Error("GetOrCreateConversation Error: Failed to look up conversation for %s/%s/%s: %v", propertyID, buyerID, sellerID, err)
		return nil, err
	}

	if uc.rateLimiter != nil {
		if allowed, waitTime := uc.rateLimiter.Allow(userID, ratelimit.ActionCreateConversation); !allowed {
			logger.Warn("GetOrCreateConversation Rate Limited: User %s must wait %v", userID, waitTime)
			metrics.RateLimited.WithLabelValues(ratelimit.ActionCreateConversation).Inc()
			return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before contacting another owner")
		}
	}

	conversation := &entity.Conversation{
		PropertyID: propertyID,
		BuyerID:    buyerID,
		SellerID:   sellerID,
		CreatedAt:  serverNow(),
	}

	if err := uc.conversationRepo.Create(ctx, conversation); err != nil {
		if !errors.Is(err, errors.CodeConflict) {
			logger.Error("GetOrCreateConversation Error: Failed to create conversation for %s/%s/%s: %v", propertyID, buyerID, sellerID, err)
			return nil, err
		}

		// A concurrent request created it first; return the winner.
		winner, err := uc.conversationRepo.FindByParticipants(ctx, propertyID, buyerID, sellerID)
		if err != nil {
			logger.Error("GetOrCreateConversation Error: Failed to re-read conversation after conflict: %v", err)
			return nil, err
		}
		return uc.withHistory(ctx, winner, property)
	}

	metrics.ConversationsCreated.Inc()
	logger.Info("GetOrCreateConversation: created conversation %s on property %s", conversation.ID, propertyID)

	resp := uc.hydrator.conversation(ctx, conversation, property, nil)
	uc.notifier.NotifyUser(sellerID, ws.EventConversationCreated, resp)
	return resp, nil
}

func (uc *ConversationUseCase) withHistory(ctx context.Context, conversation *entity.Conversation, property *entity.Property) (*ConversationResponse, error) {
	messages, err := uc.messageRepo.ListByConversation(ctx, conversation.ID)
	if err != nil {
		logger.Error("Failed to load messages for conversation %s: %v", conversation.ID, err)
		return nil, err
	}
	return uc.hydrator.conversation(ctx, conversation, property, messages), nil
}

// GetConversation returns a participant's view of one conversation with its full
// history. Unlike listing messages it leaves read state alone.
func (uc *ConversationUseCase) GetConversation(ctx context.Context, conversationID, userID string) (*ConversationResponse, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		logger.Warn("GetConversation Error: Conversation %s not found: %v", conversationID, err)
		return nil, err
	}

	if roleOf(conversation, userID) == RoleNone {
		logger.Warn("GetConversation Error: User %s is not a participant in conversation %s", userID, conversationID)
		return nil, errors.Forbidden("not a participant", nil)
	}

	return uc.withHistory(ctx, conversation, nil)
}

// ListConversationsForUser returns the user's inbox, most recently active
// first, each with only the latest message as a preview.
func (uc *ConversationUseCase) ListConversationsForUser(ctx context.Context, userID string) ([]*ConversationResponse, error) {
	conversations, err := uc.conversationRepo.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("ListConversationsForUser Error: Failed to list conversations for %s: %v", userID, err)
		return nil, err
	}
	if len(conversations) == 0 {
		return []*ConversationResponse{}, nil
	}

	ids := lo.Map(conversations, func(c *entity.Conversation, _ int) string { return c.ID })

	latest, err := uc.messageRepo.LatestByConversation(ctx, ids)
	if err != nil {
		logger.Error("ListConversationsForUser Error: Failed to load latest messages for %s: %v", userID, err)
		return nil, err
	}

	unread, err := uc.messageRepo.UnreadCounts(ctx, userID, ids)
	if err != nil {
		logger.Error("ListConversationsForUser Error: Failed to count unread messages for %s: %v", userID, err)
		return nil, err
	}

	var (
		userIDs     = make([]string, 0, len(conversations)*2)
		propertyIDs = make([]string, 0, len(conversations))
	)
	for _, c := range conversations {
		userIDs = append(userIDs, c.BuyerID, c.SellerID)
		propertyIDs = append(propertyIDs, c.PropertyID)
	}
	profiles := uc.hydrator.profiles(ctx, userIDs)
	properties := uc.hydrator.properties(ctx, propertyIDs)

	responses := make([]*ConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		var preview []*entity.Message
		if m, ok := latest[c.ID]; ok {
			preview = append(preview, m)
		}
		count := unread[c.ID]

		responses = append(responses, &ConversationResponse{
			Conversation: c,
			Property:     properties[c.PropertyID],
			Buyer:        profiles[c.BuyerID],
			Seller:       profiles[c.SellerID],
			Messages:     withSenders(preview, profiles),
			UnreadCount:  &count,
		})
	}

	return responses, nil
}

// CountUnread totals the messages waiting for the user across all conversations.
func (uc *ConversationUseCase) CountUnread(ctx context.Context, userID string) (int, error) {
	conversations, err := uc.conversationRepo.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("CountUnread Error: Failed to list conversations for %s: %v", userID, err)
		return 0, err
	}
	if len(conversations) == 0 {
		return 0, nil
	}

	ids := lo.Map(conversations, func(c *entity.Conversation, _ int) string { return c.ID })
	counts, err := uc.messageRepo.UnreadCounts(ctx, userID, ids)
	if err != nil {
		logger.Error("CountUnread Error: Failed to count unread messages for %s: %v", userID, err)
		return 0, err
	}

	return lo.Sum(lo.Values(counts)), nil
}

// PurgeProperty removes every conversation about a deleted property, messages
// included.
func (uc *ConversationUseCase) PurgeProperty(ctx context.Context, propertyID string) (int, error) {
	if propertyID == "" {
		return 0, errors.InvalidInput("property id required")
	}

	deleted, err := uc.conversationRepo.DeleteByProperty(ctx, propertyID)
	if err != nil {
		logger.Error("PurgeProperty Error: Failed to delete conversations of property %s: %v", propertyID, err)
		return 0, err
	}

	logger.Info("PurgeProperty: removed %d conversations of property %s", deleted, propertyID)
	return deleted, nil
}

// PurgeUser removes every conversation a deleted user took part in.
func (uc *ConversationUseCase) PurgeUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, errors.InvalidInput("user id required")
	}

	deleted, err := uc.conversationRepo.DeleteByUser(ctx, userID)
	if err != nil {
		logger.Error("PurgeUser Error: Failed to delete conversations of user %s: %v", userID, err)
		return 0, err
	}

	logger.Info("PurgeUser: removed %d conversations of user %s", deleted, userID)
	return deleted, nil
}
