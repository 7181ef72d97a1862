package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"propertychat/internal/domain/entity"
	"propertychat/internal/domain/repository"
	"propertychat/internal/infrastructure/metrics"
	"propertychat/internal/infrastructure/ratelimit"
	ws "propertychat/internal/infrastructure/websocket"
	"propertychat/pkg/errors"
	"propertychat/pkg/logger"
)

const DefaultMaxMessageLength = 5000

type MessageUseCase struct {
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	hydrator         *hydrator
	notifier         Notifier
	rateLimiter      RateLimiter
	maxLength        int
	now              func() time.Time
}

func NewMessageUseCase(
	conversationRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	profileCache ProfileCache,
	notifier Notifier,
	rateLimiter RateLimiter,
	maxLength int,
) *MessageUseCase {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if profileCache == nil {
		profileCache = nopProfileCache{}
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}

	return &MessageUseCase{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		hydrator:         &hydrator{userRepo: userRepo, cache: profileCache},
		notifier:         notifier,
		rateLimiter:      rateLimiter,
		maxLength:        maxLength,
		now:              serverNow,
	}
}

type NewMessageEvent struct {
	ConversationID string           `json:"conversation_id"`
	Message        *MessageResponse `json:"message"`
}

type MessagesReadEvent struct {
	ConversationID string   `json:"conversation_id"`
	ReaderID       string   `json:"reader_id"`
	MessageIDs     []string `json:"message_ids"`
}

func (uc *MessageUseCase) SendMessage(ctx context.Context, conversationID, senderID, text string) (*MessageResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.InvalidInput("text required")
	}
	if utf8.RuneCountInString(text) > uc.maxLength {
		return nil, errors.InvalidInput(fmt.Sprintf("text exceeds %d characters", uc.maxLength))
	}

	if uc.rateLimiter != nil {
		if allowed, waitTime := uc.rateLimiter.Allow(senderID, ratelimit.ActionSendMessage); !allowed {
			logger.Warn("SendMessage Rate Limited: User %s must wait %v", senderID, waitTime)
			metrics.RateLimited.WithLabelValues(ratelimit.ActionSendMessage).Inc()
			return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message")
		}
	}

	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		logger.Warn("SendMessage Error: Conversation %s not found: %v", conversationID, err)
		return nil, err
	}

	if roleOf(conversation, senderID) == RoleNone {
		logger.Warn("SendMessage Error: User %s is not a participant in conversation %s", senderID, conversationID)
		return nil, errors.Forbidden("not a participant", nil)
	}

	message := &entity.Message{
		ID:             entity.NewMessageID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		IsRead:         false,
		CreatedAt:      uc.now(),
	}

	if err := uc.messageRepo.Create(ctx, message); err != nil {
		logger.Error("SendMessage Error: Failed to create message in conversation %s: %v", conversationID, err)
		return nil, err
	}
	metrics.MessagesSent.Inc()

	// The message is already stored; a stale lastMessageAt only affects list order.
	if err := uc.conversationRepo.TouchLastMessageAt(ctx, conversationID, message.CreatedAt); err != nil {
		logger.Error("SendMessage Error: Failed to update lastMessageAt of conversation %s: %v", conversationID, err)
	}

	resp := uc.hydrator.message(ctx, message)

	uc.notifier.NotifyUser(conversation.OtherParticipant(senderID), ws.EventNewMessage, &NewMessageEvent{
		ConversationID: conversationID,
		Message:        resp,
	})

	return resp, nil
}

// ListMessages returns the whole conversation in order and marks the other
// participant's messages in it as read. The returned messages carry the read
// state the store confirmed.
func (uc *MessageUseCase) ListMessages(ctx context.Context, conversationID, userID string) ([]*MessageResponse, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		logger.Warn("ListMessages Error: Conversation %s not found: %v", conversationID, err)
		return nil, err
	}

	if roleOf(conversation, userID) == RoleNone {
		logger.Warn("ListMessages Error: User %s is not a participant in conversation %s", userID, conversationID)
		return nil, errors.Forbidden("not a participant", nil)
	}

	messages, err := uc.messageRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		logger.Error("ListMessages Error: Failed to get messages for conversation %s: %v", conversationID, err)
		return nil, err
	}

	toRead := lo.Filter(messages, func(m *entity.Message, _ int) bool {
		return !m.IsRead && m.SenderID != userID
	})

	if len(toRead) > 0 {
		ids := lo.Map(toRead, func(m *entity.Message, _ int) string { return m.ID })

		flipped, err := uc.messageRepo.MarkRead(ctx, conversationID, ids)
		if err != nil {
			logger.Error("ListMessages Error: Failed to mark messages read in conversation %s: %v", conversationID, err)
			return nil, err
		}
		if len(flipped) < len(ids) {
			logger.Debug("ListMessages: %d of %d messages in conversation %s were already read or not updated", len(ids)-len(flipped), len(ids), conversationID)
		}

		// Only what the store confirmed is reported as read.
		persisted := lo.SliceToMap(flipped, func(id string) (string, struct{}) { return id, struct{}{} })
		for _, m := range toRead {
			if _, ok := persisted[m.ID]; ok {
				m.IsRead = true
			}
		}

		if len(flipped) > 0 {
			metrics.MessagesMarkedRead.Add(float64(len(flipped)))
			uc.notifier.NotifyUser(conversation.OtherParticipant(userID), ws.EventMessagesRead, &MessagesReadEvent{
				ConversationID: conversationID,
				ReaderID:       userID,
				MessageIDs:     flipped,
			})
		}
	}

	profiles := uc.hydrator.profiles(ctx, []string{conversation.BuyerID, conversation.SellerID})
	return withSenders(messages, profiles), nil
}
