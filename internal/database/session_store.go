package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/johnrirwin/socialfeed/internal/models"
	"github.com/johnrirwin/socialfeed/internal/session"
)

// SessionStore persists one device's session row in Postgres. Several
// façade instances sharing a database see the same session.
type SessionStore struct {
	db       *DB
	deviceID string
}

func NewSessionStore(db *DB, deviceID string) *SessionStore {
	return &SessionStore{db: db, deviceID: deviceID}
}

func (s *SessionStore) Load(ctx context.Context) (session.State, error) {
	var (
		state     session.State
		theme     string
		updatedAt sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT token, theme, updated_at
		FROM client_sessions
		WHERE device_id = $1
	`, s.deviceID).Scan(&state.Token, &theme, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.State{}, nil
	}
	if err != nil {
		return session.State{}, fmt.Errorf("query session: %w", err)
	}

	if theme != "" {
		state.Theme = models.ParseTheme(theme)
	}
	if updatedAt.Valid {
		state.UpdatedAt = updatedAt.Time
	}
	return state, nil
}

func (s *SessionStore) Save(ctx context.Context, state session.State) error {
	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_sessions (device_id, token, theme, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (device_id) DO UPDATE SET
			token = EXCLUDED.token,
			theme = EXCLUDED.theme,
			updated_at = EXCLUDED.updated_at
	`, s.deviceID, state.Token, string(state.Theme), updatedAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_sessions WHERE device_id = $1`, s.deviceID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

var _ session.Store = (*SessionStore)(nil)
