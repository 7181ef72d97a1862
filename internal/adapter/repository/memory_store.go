package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"propertychat/internal/domain/entity"
	"propertychat/internal/domain/repository"
	"propertychat/pkg/errors"
)

// MemoryStore keeps every collection in process. It backs the "memory" store
// driver and the service tests.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
	properties    map[string]*entity.Property
	users         map[string]*entity.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
		properties:    make(map[string]*entity.Property),
		users:         make(map[string]*entity.User),
	}
}

type seedFile struct {
	Users      []*entity.User     `yaml:"users"`
	Properties []*entity.Property `yaml:"properties"`
}

// LoadSeed fills the property and user directories from a YAML file.
func (s *MemoryStore) LoadSeed(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, u := range seed.Users {
		s.PutUser(u)
	}
	for _, p := range seed.Properties {
		s.PutProperty(p)
	}
	return nil
}

func (s *MemoryStore) PutUser(u *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

func (s *MemoryStore) PutProperty(p *entity.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.properties[p.ID] = &cp
}

func (s *MemoryStore) Conversations() repository.ConversationRepository {
	return &memoryConversationRepository{s}
}

func (s *MemoryStore) Messages() repository.MessageRepository {
	return &memoryMessageRepository{s}
}

func (s *MemoryStore) Properties() repository.PropertyRepository {
	return &memoryPropertyRepository{s}
}

func (s *MemoryStore) Users() repository.UserRepository {
	return &memoryUserRepository{s}
}

func cloneConversation(c *entity.Conversation) *entity.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	if c.LastMessageAt != nil {
		at := *c.LastMessageAt
		cp.LastMessageAt = &at
	}
	return &cp
}

func cloneMessage(m *entity.Message) *entity.Message {
	cp := *m
	return &cp
}

type memoryConversationRepository struct {
	s *MemoryStore
}

func (r *memoryConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id := entity.ConversationIDFor(conversation.PropertyID, conversation.BuyerID, conversation.SellerID)
	if _, exists := r.s.conversations[id]; exists {
		return errors.Conflict("Conversation already exists")
	}

	conversation.ID = id
	conversation.Participants = []string{conversation.BuyerID, conversation.SellerID}
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = time.Now()
	}
	r.s.conversations[id] = cloneConversation(conversation)
	return nil
}

func (r *memoryConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return cloneConversation(c), nil
}

func (r *memoryConversationRepository) FindByParticipants(ctx context.Context, propertyID, buyerID, sellerID string) (*entity.Conversation, error) {
	return r.GetByID(ctx, entity.ConversationIDFor(propertyID, buyerID, sellerID))
}

func (r *memoryConversationRepository) FindLatestBySeller(ctx context.Context, propertyID, sellerID string) (*entity.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest *entity.Conversation
	for _, c := range r.s.conversations {
		if c.PropertyID != propertyID || c.SellerID != sellerID {
			continue
		}
		if latest == nil || entity.MoreRecent(c, latest) {
			latest = c
		}
	}
	if latest == nil {
		return nil, errors.NotFound("Conversation", nil)
	}
	return cloneConversation(latest), nil
}

func (r *memoryConversationRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var conversations []*entity.Conversation
	for _, c := range r.s.conversations {
		if c.HasParticipant(userID) {
			conversations = append(conversations, cloneConversation(c))
		}
	}
	sort.Slice(conversations, func(i, j int) bool {
		return entity.MoreRecent(conversations[i], conversations[j])
	})
	return conversations, nil
}

func (r *memoryConversationRepository) TouchLastMessageAt(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	if c.LastMessageAt == nil || at.After(*c.LastMessageAt) {
		c.LastMessageAt = &at
	}
	return nil
}

func (r *memoryConversationRepository) DeleteByProperty(ctx context.Context, propertyID string) (int, error) {
	return r.deleteWhere(func(c *entity.Conversation) bool { return c.PropertyID == propertyID }), nil
}

func (r *memoryConversationRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	return r.deleteWhere(func(c *entity.Conversation) bool { return c.HasParticipant(userID) }), nil
}

func (r *memoryConversationRepository) deleteWhere(match func(c *entity.Conversation) bool) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	deleted := 0
	for id, c := range r.s.conversations {
		if match(c) {
			delete(r.s.conversations, id)
			delete(r.s.messages, id)
			deleted++
		}
	}
	return deleted
}

type memoryMessageRepository struct {
	s *MemoryStore
}

func (r *memoryMessageRepository) Create(ctx context.Context, message *entity.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.conversations[message.ConversationID]; !ok {
		return errors.NotFound("Conversation", nil)
	}
	if message.ID == "" {
		message.ID = entity.NewMessageID()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	r.s.messages[message.ConversationID] = append(r.s.messages[message.ConversationID], cloneMessage(message))
	return nil
}

func (r *memoryMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored := r.s.messages[conversationID]
	messages := make([]*entity.Message, 0, len(stored))
	for _, m := range stored {
		messages = append(messages, cloneMessage(m))
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Before(messages[j])
	})
	return messages, nil
}

func (r *memoryMessageRepository) LatestByConversation(ctx context.Context, conversationIDs []string) (map[string]*entity.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	latest := make(map[string]*entity.Message, len(conversationIDs))
	for _, id := range conversationIDs {
		var newest *entity.Message
		for _, m := range r.s.messages[id] {
			if newest == nil || newest.Before(m) {
				newest = m
			}
		}
		if newest != nil {
			latest[id] = cloneMessage(newest)
		}
	}
	return latest, nil
}

func (r *memoryMessageRepository) MarkRead(ctx context.Context, conversationID string, messageIDs []string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wanted := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = struct{}{}
	}

	var flipped []string
	for _, m := range r.s.messages[conversationID] {
		if _, ok := wanted[m.ID]; ok && !m.IsRead {
			m.IsRead = true
			flipped = append(flipped, m.ID)
		}
	}
	return flipped, nil
}

func (r *memoryMessageRepository) UnreadCounts(ctx context.Context, readerID string, conversationIDs []string) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[string]int, len(conversationIDs))
	for _, id := range conversationIDs {
		for _, m := range r.s.messages[id] {
			if !m.IsRead && m.SenderID != readerID {
				counts[id]++
			}
		}
	}
	return counts, nil
}

type memoryPropertyRepository struct {
	s *MemoryStore
}

func (r *memoryPropertyRepository) GetByID(ctx context.Context, id string) (*entity.Property, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.properties[id]
	if !ok {
		return nil, errors.NotFound("Property", nil)
	}
	cp := *p
	cp.Images = append([]entity.PropertyImage(nil), p.Images...)
	return &cp, nil
}

type memoryUserRepository struct {
	s *MemoryStore
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	cp := *u
	return &cp, nil
}
