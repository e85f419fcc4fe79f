// Package session holds the client-local state that outlives a process: the
// bearer token and the theme preference.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/johnrirwin/socialfeed/internal/models"
)

// ErrNoToken is returned when the session holds no bearer token.
var ErrNoToken = errors.New("no session token")

// State is the persisted session.
type State struct {
	Token     string       `json:"token,omitempty"`
	Theme     models.Theme `json:"theme,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Store persists one device's session state.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
	Clear(ctx context.Context) error
}
