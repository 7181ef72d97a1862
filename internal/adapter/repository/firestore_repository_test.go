package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propertychat/internal/domain/entity"
	"propertychat/pkg/errors"
)

// newEmulatorClient connects to the Firestore emulator named by
// FIRESTORE_EMULATOR_HOST and skips the test when it is not set.
func newEmulatorClient(t *testing.T) *firestore.Client {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), "propertychat-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

// newTriple returns ids unique to one test so runs against a shared emulator do not collide.
func newTriple() (propertyID, buyerID, sellerID string) {
	suffix := uuid.NewString()
	return "p-" + suffix, "b-" + suffix, "s-" + suffix
}

func TestFirestoreConversationCreateConflict(t *testing.T) {
	ctx := context.Background()
	conversations := NewFirestoreConversationRepository(newEmulatorClient(t))
	propertyID, buyerID, sellerID := newTriple()

	first := &entity.Conversation{PropertyID: propertyID, BuyerID: buyerID, SellerID: sellerID}
	require.NoError(t, conversations.Create(ctx, first))

	err := conversations.Create(ctx, &entity.Conversation{PropertyID: propertyID, BuyerID: buyerID, SellerID: sellerID})
	assert.True(t, errors.Is(err, errors.CodeConflict))

	found, err := conversations.FindByParticipants(ctx, propertyID, buyerID, sellerID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.Nil(t, found.LastMessageAt)
}

func TestFirestoreConversationTouchIsMonotonic(t *testing.T) {
	ctx := context.Background()
	conversations := NewFirestoreConversationRepository(newEmulatorClient(t))
	propertyID, buyerID, sellerID := newTriple()

	c := &entity.Conversation{PropertyID: propertyID, BuyerID: buyerID, SellerID: sellerID}
	require.NoError(t, conversations.Create(ctx, c))

	later := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, conversations.TouchLastMessageAt(ctx, c.ID, later))
	require.NoError(t, conversations.TouchLastMessageAt(ctx, c.ID, later.Add(-time.Minute)))

	got, err := conversations.GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
	assert.True(t, later.Equal(*got.LastMessageAt))

	err = conversations.TouchLastMessageAt(ctx, "missing-"+c.ID, later)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestFirestoreFindLatestBySellerPutsSilentLast(t *testing.T) {
	ctx := context.Background()
	conversations := NewFirestoreConversationRepository(newEmulatorClient(t))
	propertyID, buyerID, sellerID := newTriple()

	active := &entity.Conversation{PropertyID: propertyID, BuyerID: buyerID, SellerID: sellerID}
	require.NoError(t, conversations.Create(ctx, active))
	require.NoError(t, conversations.TouchLastMessageAt(ctx, active.ID, time.Now()))

	silent := &entity.Conversation{PropertyID: propertyID, BuyerID: "other-" + buyerID, SellerID: sellerID}
	require.NoError(t, conversations.Create(ctx, silent))

	latest, err := conversations.FindLatestBySeller(ctx, propertyID, sellerID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, latest.ID)

	_, err = conversations.FindLatestBySeller(ctx, propertyID, "nobody")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestFirestoreMessageReadState(t *testing.T) {
	ctx := context.Background()
	client := newEmulatorClient(t)
	conversations := NewFirestoreConversationRepository(client)
	messages := NewFirestoreMessageRepository(client)
	propertyID, buyerID, sellerID := newTriple()

	c := &entity.Conversation{PropertyID: propertyID, BuyerID: buyerID, SellerID: sellerID}
	require.NoError(t, conversations.Create(ctx, c))

	base := time.Now().UTC().Truncate(time.Millisecond)
	first := &entity.Message{ConversationID: c.ID, SenderID: buyerID, Text: "first", CreatedAt: base}
	second := &entity.Message{ConversationID: c.ID, SenderID: buyerID, Text: "second", CreatedAt: base.Add(time.Second)}
	reply := &entity.Message{ConversationID: c.ID, SenderID: sellerID, Text: "reply", CreatedAt: base.Add(2 * time.Second)}
	for _, m := range []*entity.Message{first, second, reply} {
		require.NoError(t, messages.Create(ctx, m))
	}

	counts, err := messages.UnreadCounts(ctx, sellerID, []string{c.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{c.ID: 2}, counts)

	latest, err := messages.LatestByConversation(ctx, []string{c.ID, "missing-" + c.ID})
	require.NoError(t, err)
	require.Contains(t, latest, c.ID)
	assert.Equal(t, "reply", latest[c.ID].Text)
	assert.NotContains(t, latest, "missing-"+c.ID)

	// The unknown id has no document to update, so only the real message is reported.
	flipped, err := messages.MarkRead(ctx, c.ID, []string{first.ID, "missing-" + first.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, flipped)

	counts, err = messages.UnreadCounts(ctx, sellerID, []string{c.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{c.ID: 1}, counts)

	_, err = messages.MarkRead(ctx, c.ID, []string{"missing-" + second.ID})
	assert.True(t, errors.Is(err, errors.CodeInternal))
}

func TestFirestoreDeleteCascadesToMessages(t *testing.T) {
	ctx := context.Background()
	client := newEmulatorClient(t)
	conversations := NewFirestoreConversationRepository(client)
	messages := NewFirestoreMessageRepository(client)
	propertyID, buyerID, sellerID := newTriple()

	c := &entity.Conversation{PropertyID: propertyID, BuyerID: buyerID, SellerID: sellerID}
	require.NoError(t, conversations.Create(ctx, c))
	require.NoError(t, messages.Create(ctx, &entity.Message{ConversationID: c.ID, SenderID: buyerID, Text: "hi"}))

	n, err := conversations.DeleteByProperty(ctx, propertyID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = conversations.GetByID(ctx, c.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	left, err := messages.ListByConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	n, err = conversations.DeleteByUser(ctx, buyerID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
