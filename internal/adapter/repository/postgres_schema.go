package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/lib/pq"

	"propertychat/pkg/errors"
)

// The users and properties tables belong to the directory services; they are
// declared here so the foreign keys can cascade deletes into messaging rows.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL DEFAULT 'user'
);

CREATE TABLE IF NOT EXISTS properties (
	id       TEXT PRIMARY KEY,
	owner_id TEXT REFERENCES users(id) ON DELETE SET NULL,
	title    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS property_images (
	property_id   TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
	url           TEXT NOT NULL,
	display_order INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS conversations (
	id              UUID PRIMARY KEY,
	property_id     TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
	buyer_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	seller_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	last_message_at TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT conversations_triple_key UNIQUE (property_id, buyer_id, seller_id),
	CONSTRAINT conversations_distinct_parties CHECK (buyer_id <> seller_id)
);

CREATE INDEX IF NOT EXISTS conversations_buyer_idx ON conversations (buyer_id, last_message_at DESC);
CREATE INDEX IF NOT EXISTS conversations_seller_idx ON conversations (seller_id, last_message_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	id              UUID PRIMARY KEY,
	conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	sender_id       TEXT NOT NULL,
	text            TEXT NOT NULL CHECK (length(btrim(text)) > 0),
	is_read         BOOLEAN NOT NULL DEFAULT false,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS messages_conversation_idx ON messages (conversation_id, created_at, id);
CREATE INDEX IF NOT EXISTS messages_unread_idx ON messages (conversation_id) WHERE NOT is_read;
`

const pqUniqueViolation = "23505"

// MigratePostgres creates the schema if it does not exist yet.
func MigratePostgres(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return errors.Internal("Failed to migrate postgres schema", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
