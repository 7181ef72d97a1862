package usecase

import (
	"context"

	"github.com/samber/lo"

	"propertychat/internal/domain/entity"
	"propertychat/internal/domain/repository"
	"propertychat/pkg/logger"
)

type MessageResponse struct {
	*entity.Message
	Sender *entity.UserProfile `json:"sender,omitempty"`
}

type ConversationResponse struct {
	*entity.Conversation
	Property *entity.PropertySummary `json:"property,omitempty"`
	Buyer    *entity.UserProfile     `json:"buyer,omitempty"`
	Seller   *entity.UserProfile     `json:"seller,omitempty"`
	Messages []*MessageResponse      `json:"messages"`
	// UnreadCount is only filled in conversation lists.
	UnreadCount *int `json:"unread_count,omitempty"`
}

// hydrator joins read-only views onto conversations and messages. Missing
// profiles or properties leave the view empty instead of failing the read.
type hydrator struct {
	propertyRepo repository.PropertyRepository
	userRepo     repository.UserRepository
	cache        ProfileCache
}

func (h *hydrator) profiles(ctx context.Context, ids []string) map[string]*entity.UserProfile {
	ids = lo.Uniq(lo.Compact(ids))
	profiles := make(map[string]*entity.UserProfile, len(ids))

	for _, id := range ids {
		if cached, err := h.cache.Get(ctx, id); err != nil {
			logger.Warn("Hydrate: profile cache read for %s failed: %v", id, err)
		} else if cached != nil {
			profiles[id] = cached
			continue
		}

		user, err := h.userRepo.GetByID(ctx, id)
		if err != nil {
			logger.Warn("Hydrate: User %s not found: %v", id, err)
			continue
		}

		profile := user.Profile()
		profiles[id] = profile
		if err := h.cache.Set(ctx, profile); err != nil {
			logger.Warn("Hydrate: profile cache write for %s failed: %v", id, err)
		}
	}

	return profiles
}

func (h *hydrator) properties(ctx context.Context, ids []string) map[string]*entity.PropertySummary {
	ids = lo.Uniq(ids)
	summaries := make(map[string]*entity.PropertySummary, len(ids))

	for _, id := range ids {
		property, err := h.propertyRepo.GetByID(ctx, id)
		if err != nil {
			logger.Warn("Hydrate: Property %s not found: %v", id, err)
			continue
		}
		summaries[id] = property.Summary()
	}

	return summaries
}

func (h *hydrator) message(ctx context.Context, message *entity.Message) *MessageResponse {
	return &MessageResponse{
		Message: message,
		Sender:  h.profiles(ctx, []string{message.SenderID})[message.SenderID],
	}
}

func withSenders(messages []*entity.Message, profiles map[string]*entity.UserProfile) []*MessageResponse {
	return lo.Map(messages, func(m *entity.Message, _ int) *MessageResponse {
		return &MessageResponse{Message: m, Sender: profiles[m.SenderID]}
	})
}

// conversation hydrates one conversation with the given messages. The property
// is passed in when the caller already loaded it.
func (h *hydrator) conversation(ctx context.Context, conversation *entity.Conversation, property *entity.Property, messages []*entity.Message) *ConversationResponse {
	profiles := h.profiles(ctx, []string{conversation.BuyerID, conversation.SellerID})

	var summary *entity.PropertySummary
	if property != nil {
		summary = property.Summary()
	} else {
		summary = h.properties(ctx, []string{conversation.PropertyID})[conversation.PropertyID]
	}

	return &ConversationResponse{
		Conversation: conversation,
		Property:     summary,
		Buyer:        profiles[conversation.BuyerID],
		Seller:       profiles[conversation.SellerID],
		Messages:     withSenders(messages, profiles),
	}
}
