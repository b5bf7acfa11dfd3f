package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vidtrans/internal/models"
)

type SessionStore struct {
	db DB
}

func NewSessionStore(db DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, id, userID, token string, expiresAt time.Time) error {
	query := `
		INSERT INTO user_sessions (id, user_id, token, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query, id, userID, token, expiresAt)
	return err
}

// GetByToken returns the live session for a token. Expiry is checked here,
// not by a background sweep.
func (s *SessionStore) GetByToken(ctx context.Context, token string) (models.Session, error) {
	var row models.Session
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, token, expires_at, created_at
		FROM user_sessions
		WHERE token = $1 AND expires_at > now()
	`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, ErrNotFound
	}
	return row, err
}

func (s *SessionStore) DeleteByToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE token = $1`, token)
	return err
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID)
	return err
}
