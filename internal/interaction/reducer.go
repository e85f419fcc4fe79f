// Package interaction tracks the per-item counters a viewer can change:
// likes, comment count and views.
package interaction

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/johnrirwin/socialfeed/internal/logging"
	"github.com/johnrirwin/socialfeed/internal/models"
)

// Strategy decides what happens to an optimistic like when the request fails.
type Strategy string

const (
	// FireAndForget keeps the optimistic state even if the request fails.
	FireAndForget Strategy = "fire-and-forget"
	// Rollback restores the pre-toggle state unless something newer changed it.
	Rollback Strategy = "rollback"
)

// ParseStrategy maps a config value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FireAndForget:
		return FireAndForget, nil
	case Rollback:
		return Rollback, nil
	default:
		return "", fmt.Errorf("unknown like strategy %q", s)
	}
}

// State is the counter snapshot the presentation layer renders.
type State struct {
	Liked         bool `json:"liked"`
	LikesCount    int  `json:"likesCount"`
	CommentsCount int  `json:"commentsCount"`
	Views         int  `json:"views"`
}

// Action performs the network side of an interaction.
type Action func(ctx context.Context) error

// Reducer owns the interaction state of one post or ad.
type Reducer struct {
	userID   string
	strategy Strategy
	like     Action
	view     Action
	logger   *logging.Logger

	mu    sync.Mutex
	state State
	// version increases on every local mutation and every sync; a rollback
	// only applies if it still matches.
	version uint64
}

// NewReducer creates a reducer seeded from server data.
func NewReducer(userID string, strategy Strategy, like, view Action, logger *logging.Logger) *Reducer {
	if strategy == "" {
		strategy = FireAndForget
	}
	return &Reducer{
		userID:   userID,
		strategy: strategy,
		like:     like,
		view:     view,
		logger:   logger,
	}
}

// State returns a copy of the current state.
func (r *Reducer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Sync re-derives liked and likesCount from server data.
func (r *Reducer) Sync(likedBy []string, likesCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Liked = r.userID != "" && lo.Contains(likedBy, r.userID)
	r.state.LikesCount = max(likesCount, 0)
	r.version++
}

// SyncLikes is Sync for a normalized likes payload. A count-only payload
// cannot say whether the current user is among the likers, so liked is false.
func (r *Reducer) SyncLikes(likes models.Likes) {
	r.Sync(likes.Users(), likes.Count())
}

// SetCommentsCount accepts the authoritative comment count.
func (r *Reducer) SetCommentsCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.CommentsCount = max(n, 0)
}

// SetViews accepts the authoritative view count.
func (r *Reducer) SetViews(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Views = max(n, 0)
}

// Toggle flips liked optimistically and sends the like request. Request
// failures are logged, never returned; the returned state is what the
// viewer should see once the call settles.
func (r *Reducer) Toggle(ctx context.Context) State {
	r.mu.Lock()
	prev := r.state
	r.state.Liked = !r.state.Liked
	if r.state.Liked {
		r.state.LikesCount++
	} else {
		r.state.LikesCount = max(r.state.LikesCount-1, 0)
	}
	r.version++
	version := r.version
	r.mu.Unlock()

	if r.like == nil {
		return r.State()
	}

	if err := r.like(ctx); err != nil {
		r.logger.Warn("Like request failed", logging.WithFields(map[string]interface{}{
			"strategy": string(r.strategy),
			"error":    err.Error(),
		}))

		if r.strategy == Rollback {
			r.mu.Lock()
			if r.version == version {
				r.state.Liked = prev.Liked
				r.state.LikesCount = prev.LikesCount
				r.version++
			}
			r.mu.Unlock()
		}
	}

	return r.State()
}

// RecordView counts a view locally and reports it.
func (r *Reducer) RecordView(ctx context.Context) State {
	r.mu.Lock()
	r.state.Views++
	r.mu.Unlock()

	if r.view != nil {
		if err := r.view(ctx); err != nil {
			r.logger.Debug("View report failed", logging.WithField("error", err.Error()))
		}
	}
	return r.State()
}
