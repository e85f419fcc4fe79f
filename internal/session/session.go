package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/johnrirwin/socialfeed/internal/logging"
	"github.com/johnrirwin/socialfeed/internal/models"
)

// Session is the process-wide view of the persisted state. Reads are served
// from memory; writes go through to the store.
type Session struct {
	store  Store
	logger *logging.Logger

	mu     sync.RWMutex
	state  State
	loaded bool
}

// New creates a session backed by store. Nothing is read until first use.
func New(store Store, logger *logging.Logger) *Session {
	return &Session{store: store, logger: logger}
}

func (s *Session) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	state, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	s.mu.Lock()
	if !s.loaded {
		s.state = state
		s.loaded = true
	}
	s.mu.Unlock()
	return nil
}

// Token returns the bearer token, or an empty string when signed out.
func (s *Session) Token(ctx context.Context) (string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token, nil
}

// SetToken stores a new bearer token.
func (s *Session) SetToken(ctx context.Context, token string) error {
	return s.update(ctx, func(st *State) { st.Token = token })
}

// Theme returns the stored theme preference.
func (s *Session) Theme(ctx context.Context) (models.Theme, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return models.ThemeSystem, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Theme == "" {
		return models.ThemeSystem, nil
	}
	return s.state.Theme, nil
}

// SetTheme stores the theme preference.
func (s *Session) SetTheme(ctx context.Context, theme models.Theme) error {
	return s.update(ctx, func(st *State) { st.Theme = theme })
}

// User returns the identity carried by the current token.
func (s *Session) User(ctx context.Context) (Identity, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return Identity{}, err
	}
	return ParseIdentity(token)
}

// Clear signs out and forgets the theme.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.mu.Lock()
	s.state = State{}
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info("Session cleared")
	return nil
}

func (s *Session) update(ctx context.Context, mutate func(*State)) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	next := s.state
	mutate(&next)
	next.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	return nil
}
