package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propertychat/internal/domain/entity"
	"propertychat/pkg/errors"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func conversationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "property_id", "buyer_id", "seller_id", "last_message_at", "created_at"})
}

func TestIsUniqueViolation(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"unique violation": {&pq.Error{Code: "23505"}, true},
		"wrapped":          {fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		"fk violation":     {&pq.Error{Code: "23503"}, false},
		"other error":      {sql.ErrConnDone, false},
		"nil":              {nil, false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, isUniqueViolation(tc.err))
		})
	}
}

func TestPostgresConversationCreateConflict(t *testing.T) {
	db, mock := newMockDB(t)
	conversations := NewPostgresConversationRepository(db)

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs(sqlmock.AnyArg(), "p1", "u1", "u2", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	err := conversations.Create(context.Background(), &entity.Conversation{PropertyID: "p1", BuyerID: "u1", SellerID: "u2"})
	assert.True(t, errors.Is(err, errors.CodeConflict))
}

func TestPostgresConversationCreate(t *testing.T) {
	db, mock := newMockDB(t)
	conversations := NewPostgresConversationRepository(db)

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs(sqlmock.AnyArg(), "p1", "u1", "u2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := &entity.Conversation{PropertyID: "p1", BuyerID: "u1", SellerID: "u2"}
	require.NoError(t, conversations.Create(context.Background(), c))

	_, err := uuid.Parse(c.ID)
	assert.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, c.Participants)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestPostgresConversationGetByID(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("null last message", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM conversations WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(conversationRows().AddRow(id, "p1", "u1", "u2", nil, created))

		c, err := NewPostgresConversationRepository(db).GetByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, c.LastMessageAt)
		assert.Equal(t, created, c.CreatedAt)
		assert.Equal(t, []string{"u1", "u2"}, c.Participants)
	})

	t.Run("last message set", func(t *testing.T) {
		db, mock := newMockDB(t)
		last := created.Add(time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta("FROM conversations WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(conversationRows().AddRow(id, "p1", "u1", "u2", last, created))

		c, err := NewPostgresConversationRepository(db).GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, c.LastMessageAt)
		assert.Equal(t, last, *c.LastMessageAt)
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM conversations WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(conversationRows())

		_, err := NewPostgresConversationRepository(db).GetByID(ctx, id)
		assert.True(t, errors.Is(err, errors.CodeNotFound))
	})

	t.Run("malformed id skips the query", func(t *testing.T) {
		db, _ := newMockDB(t)

		_, err := NewPostgresConversationRepository(db).GetByID(ctx, "not-a-uuid")
		assert.True(t, errors.Is(err, errors.CodeNotFound))
	})

	t.Run("driver failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM conversations WHERE id = $1")).
			WithArgs(id).
			WillReturnError(sql.ErrConnDone)

		_, err := NewPostgresConversationRepository(db).GetByID(ctx, id)
		assert.True(t, errors.Is(err, errors.CodeInternal))
	})
}

func TestPostgresConversationOrdering(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	last := created.Add(time.Hour)

	t.Run("latest by seller", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY last_message_at DESC NULLS LAST, created_at DESC")).
			WithArgs("p1", "seller").
			WillReturnRows(conversationRows())

		_, err := NewPostgresConversationRepository(db).FindLatestBySeller(ctx, "p1", "seller")
		assert.True(t, errors.Is(err, errors.CodeNotFound))
	})

	t.Run("list by user", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY last_message_at DESC NULLS LAST, created_at DESC")).
			WithArgs("u1").
			WillReturnRows(conversationRows().
				AddRow("c1", "p1", "u1", "u2", last, created).
				AddRow("c2", "p2", "u1", "u3", nil, created))

		list, err := NewPostgresConversationRepository(db).ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "c1", list[0].ID)
		assert.NotNil(t, list[0].LastMessageAt)
		assert.Nil(t, list[1].LastMessageAt)
	})
}

func TestPostgresConversationTouchIsMonotonic(t *testing.T) {
	db, mock := newMockDB(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND (last_message_at IS NULL OR last_message_at < $2)")).
		WithArgs("c1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, NewPostgresConversationRepository(db).TouchLastMessageAt(context.Background(), "c1", at))
}

func TestPostgresConversationDelete(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	conversations := NewPostgresConversationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM conversations WHERE property_id = $1")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM conversations WHERE buyer_id = $1 OR seller_id = $1")).
		WithArgs("u1").
		WillReturnError(sql.ErrConnDone)

	n, err := conversations.DeleteByProperty(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = conversations.DeleteByUser(ctx, "u1")
	assert.True(t, errors.Is(err, errors.CodeInternal))
}

func TestPostgresMessageMarkReadReturnsFlippedIDs(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	messages := NewPostgresMessageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND NOT is_read RETURNING id")).
		WithArgs("c1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("m1"))

	flipped, err := messages.MarkRead(ctx, "c1", []string{"m1", "m2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, flipped)

	flipped, err = messages.MarkRead(ctx, "c1", nil)
	require.NoError(t, err)
	assert.Empty(t, flipped)
}

func TestPostgresMessageBatchedReads(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("latest by conversation", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (conversation_id)")).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender_id", "text", "is_read", "created_at"}).
				AddRow("m2", "c1", "u1", "later", false, created.Add(time.Minute)))

		latest, err := NewPostgresMessageRepository(db).LatestByConversation(ctx, []string{"c1", "c2"})
		require.NoError(t, err)
		require.Contains(t, latest, "c1")
		assert.Equal(t, "later", latest["c1"].Text)
		assert.NotContains(t, latest, "c2")
	})

	t.Run("unread counts", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("GROUP BY conversation_id")).
			WithArgs(sqlmock.AnyArg(), "u2").
			WillReturnRows(sqlmock.NewRows([]string{"conversation_id", "count"}).AddRow("c1", 2))

		counts, err := NewPostgresMessageRepository(db).UnreadCounts(ctx, "u2", []string{"c1", "c2"})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"c1": 2}, counts)
	})

	t.Run("no conversations skips the query", func(t *testing.T) {
		db, _ := newMockDB(t)
		messages := NewPostgresMessageRepository(db)

		latest, err := messages.LatestByConversation(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, latest)

		counts, err := messages.UnreadCounts(ctx, "u2", nil)
		require.NoError(t, err)
		assert.Empty(t, counts)
	})
}

func TestMigratePostgres(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS conversations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, MigratePostgres(context.Background(), db))
}
