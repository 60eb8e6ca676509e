// Package cache keeps an opportunistic sqlite mirror of conversations and
// messages so the chat surface renders instantly on open and survives
// offline periods. The cache is not a source of truth; the backend wins on
// every reconcile and cache failures degrade to memory-only operation.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/gigtalk/gigtalk/internal/config"
	"github.com/gigtalk/gigtalk/internal/logging"
	"github.com/gigtalk/gigtalk/internal/timeline"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("cache store closed")

// Store is the sqlite-backed local cache.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the cache at cfg.Path and bootstraps the schema.
func Open(cfg config.CacheConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("cache path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	busyTimeout := cfg.BusyTimeoutMs
	if busyTimeout <= 0 {
		busyTimeout = 5000
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", cfg.Path, busyTimeout)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}

	store := &Store{db: db, logger: logging.Component("cache")}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			member_count INTEGER NOT NULL DEFAULT 0,
			admin_id TEXT,
			unread INTEGER NOT NULL DEFAULT 0,
			last_preview TEXT,
			last_activity TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			sender_name TEXT,
			body TEXT NOT NULL,
			attachment_url TEXT,
			attachment_kind TEXT,
			attachment_name TEXT,
			attachment_size INTEGER,
			reply_to_id TEXT,
			created_at TEXT NOT NULL,
			read INTEGER NOT NULL DEFAULT 0,
			kind TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS messages_conversation_idx ON messages(conversation_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize cache schema: %w", err)
		}
	}
	return nil
}

// SaveConversations upserts the conversation-list summary.
func (s *Store) SaveConversations(ctx context.Context, convs []timeline.Conversation) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}
	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO conversations (id, name, type, member_count, admin_id, unread, last_preview, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			member_count = excluded.member_count,
			admin_id = excluded.admin_id,
			unread = excluded.unread,
			last_preview = excluded.last_preview,
			last_activity = excluded.last_activity
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare conversation upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range convs {
		_, err := stmt.ExecContext(ctx,
			c.ID, c.Name, string(c.Type), c.MemberCount, c.AdminID,
			c.Unread, c.LastPreview, c.LastActivity.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to store conversation: %w", err)
		}
	}
	return nil
}

// SaveMessages upserts a fetched message batch. The read flag is ORed so a
// locally marked-read message never reverts to unread from a stale fetch.
func (s *Store) SaveMessages(ctx context.Context, conversationID string, msgs []timeline.Message) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}
	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, sender_name, body,
			attachment_url, attachment_kind, attachment_name, attachment_size,
			reply_to_id, created_at, read, kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			read = MAX(messages.read, excluded.read)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare message upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		if m.Kind == timeline.KindSeparator {
			continue
		}
		var attURL, attKind, attName string
		var attSize int64
		if m.Attachment != nil {
			attURL = m.Attachment.URL
			attKind = m.Attachment.Kind
			attName = m.Attachment.Name
			attSize = m.Attachment.Size
		}
		_, err := stmt.ExecContext(ctx,
			m.ID, conversationID, m.SenderID, m.SenderName, m.Body,
			attURL, attKind, attName, attSize,
			m.ReplyToID, m.CreatedAt.UTC().Format(time.RFC3339Nano),
			boolToInt(m.Read), string(m.Kind),
		)
		if err != nil {
			return fmt.Errorf("failed to store message: %w", err)
		}
	}
	return nil
}

// Conversations returns the cached conversation list, most recent activity
// first.
func (s *Store) Conversations(ctx context.Context) ([]timeline.Conversation, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, member_count, admin_id, unread, last_preview, last_activity
		FROM conversations
		ORDER BY last_activity DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var convs []timeline.Conversation
	for rows.Next() {
		var (
			c           timeline.Conversation
			convType    string
			adminID     sql.NullString
			lastPreview sql.NullString
			activityRaw sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &convType, &c.MemberCount, &adminID, &c.Unread, &lastPreview, &activityRaw); err != nil {
			return nil, fmt.Errorf("failed to scan conversation row: %w", err)
		}
		c.Type = timeline.ConversationType(convType)
		c.AdminID = adminID.String
		c.LastPreview = lastPreview.String
		c.LastActivity = parseCacheTime(activityRaw.String)
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// Messages returns the cached messages for a conversation in timestamp
// order.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]timeline.Message, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, sender_name, body,
		       attachment_url, attachment_kind, attachment_name, attachment_size,
		       reply_to_id, created_at, read, kind
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []timeline.Message
	for rows.Next() {
		var (
			m          timeline.Message
			senderName sql.NullString
			attURL     sql.NullString
			attKind    sql.NullString
			attName    sql.NullString
			attSize    sql.NullInt64
			replyToID  sql.NullString
			createdRaw string
			read       int
			kind       string
		)
		if err := rows.Scan(&m.ID, &m.SenderID, &senderName, &m.Body,
			&attURL, &attKind, &attName, &attSize,
			&replyToID, &createdRaw, &read, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.ConversationID = conversationID
		m.SenderName = senderName.String
		if attURL.String != "" {
			m.Attachment = &timeline.Attachment{
				URL:  attURL.String,
				Kind: attKind.String,
				Name: attName.String,
				Size: attSize.Int64,
			}
		}
		m.ReplyToID = replyToID.String
		m.CreatedAt = parseCacheTime(createdRaw)
		m.Read = read != 0
		m.Kind = timeline.MessageKind(kind)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkRead flips the read flag on every cached message in a conversation.
func (s *Store) MarkRead(ctx context.Context, conversationID string) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx, `UPDATE messages SET read = 1 WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

func parseCacheTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
