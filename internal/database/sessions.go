package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gradebot/internal/models"
)

// SessionStore is the durable conversation-state store: one row per chat
// holding the current flow state tag, a JSON data bag and the last rendered
// bot message id.
type SessionStore struct {
	db *DB
}

func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Get returns the chat's session. A chat with no stored row gets a fresh
// empty session.
func (s *SessionStore) Get(ctx context.Context, chatID int64) (*models.Session, error) {
	var (
		sess = models.Session{ChatID: chatID}
		data []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT state, data, last_message_id FROM sessions WHERE chat_id = $1
	`, chatID).Scan(&sess.State, &data, &sess.LastMessageID)
	if errors.Is(err, sql.ErrNoRows) {
		sess.Data = map[string]any{}
		return &sess, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := json.Unmarshal(data, &sess.Data); err != nil {
		return nil, fmt.Errorf("failed to decode session data: %w", err)
	}
	return &sess, nil
}

// SetState records the chat's current flow state tag.
func (s *SessionStore) SetState(ctx context.Context, chatID int64, state models.State) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (chat_id, state) VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE
		SET state = EXCLUDED.state, updated_at = CURRENT_TIMESTAMP
	`, chatID, state)
	if err != nil {
		return fmt.Errorf("failed to set session state: %w", err)
	}
	return nil
}

// UpdateData merges the patch into the chat's data bag; existing keys are
// overwritten.
func (s *SessionStore) UpdateData(ctx context.Context, chatID int64, patch map[string]any) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode session patch: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (chat_id, data) VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE
		SET data = sessions.data || EXCLUDED.data, updated_at = CURRENT_TIMESTAMP
	`, chatID, raw)
	if err != nil {
		return fmt.Errorf("failed to update session data: %w", err)
	}
	return nil
}

// Clear resets the chat to no state with an empty data bag. The render cursor
// is dropped with the rest of the row.
func (s *SessionStore) Clear(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// LastMessageID returns the chat's render cursor, zero when none is stored.
func (s *SessionStore) LastMessageID(ctx context.Context, chatID int64) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		SELECT last_message_id FROM sessions WHERE chat_id = $1
	`, chatID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get last message id: %w", err)
	}
	return id, nil
}

// SetLastMessageID records the chat's render cursor.
func (s *SessionStore) SetLastMessageID(ctx context.Context, chatID int64, messageID int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (chat_id, last_message_id) VALUES ($1, $2)
		ON CONFLICT (chat_id) DO UPDATE
		SET last_message_id = EXCLUDED.last_message_id, updated_at = CURRENT_TIMESTAMP
	`, chatID, messageID)
	if err != nil {
		return fmt.Errorf("failed to set last message id: %w", err)
	}
	return nil
}

// AdminSessionRepo stores the single admin credential. The table holds at
// most one row; a new login replaces any existing one.
type AdminSessionRepo struct {
	db *DB
}

func NewAdminSessionRepo(db *DB) *AdminSessionRepo {
	return &AdminSessionRepo{db: db}
}

// Get returns the stored credential, or ErrNoSession.
func (r *AdminSessionRepo) Get(ctx context.Context) (*models.AdminSession, error) {
	var sess models.AdminSession
	err := r.db.QueryRowContext(ctx, `
		SELECT cookie, expires_at FROM admin_sessions ORDER BY id DESC LIMIT 1
	`).Scan(&sess.Cookie, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin session: %w", err)
	}
	return &sess, nil
}

// Save replaces the stored credential with a new one expiring after ttl.
// Replace runs in one transaction to keep the table single-row under
// concurrent login/logout.
func (r *AdminSessionRepo) Save(ctx context.Context, cookie string, ttl time.Duration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin admin session tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM admin_sessions`); err != nil {
		return fmt.Errorf("failed to purge admin sessions: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO admin_sessions (cookie, expires_at) VALUES ($1, $2)
	`, cookie, time.Now().UTC().Add(ttl))
	if err != nil {
		return fmt.Errorf("failed to save admin session: %w", err)
	}
	return tx.Commit()
}

// Clear drops any stored credential.
func (r *AdminSessionRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM admin_sessions`); err != nil {
		return fmt.Errorf("failed to clear admin sessions: %w", err)
	}
	return nil
}
