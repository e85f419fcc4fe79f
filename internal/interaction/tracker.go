package interaction

import (
	"context"
	"sync"

	"github.com/johnrirwin/socialfeed/internal/logging"
	"github.com/johnrirwin/socialfeed/internal/models"
)

// Backend is the slice of the gateway the tracker needs.
type Backend interface {
	LikePost(ctx context.Context, postID string) error
	LikeAd(ctx context.Context, adID string) error
	RecordPostView(ctx context.Context, postID string) error
	RecordAdImpression(ctx context.Context, adID string) error
}

// Seed is the server data a reducer starts from.
type Seed struct {
	Likes         models.Likes
	CommentsCount int
	Views         int
}

// PostSeed extracts a Seed from a post.
func PostSeed(p models.Post) Seed {
	return Seed{Likes: p.Likes, CommentsCount: p.CommentsCount, Views: p.Views}
}

// AdSeed extracts a Seed from an ad.
func AdSeed(a models.Ad) Seed {
	return Seed{Likes: a.Likes, Views: a.Impressions}
}

// Tracker holds one reducer per mounted feed item.
type Tracker struct {
	backend  Backend
	userID   string
	strategy Strategy
	logger   *logging.Logger

	mu       sync.Mutex
	reducers map[string]*Reducer
}

// NewTracker creates a tracker acting as userID.
func NewTracker(backend Backend, userID string, strategy Strategy, logger *logging.Logger) *Tracker {
	return &Tracker{
		backend:  backend,
		userID:   userID,
		strategy: strategy,
		logger:   logger,
		reducers: make(map[string]*Reducer),
	}
}

func key(kind models.ItemKind, id string) string {
	return string(kind) + ":" + id
}

// Track returns the reducer for an item, creating it from seed on first sight.
func (t *Tracker) Track(kind models.ItemKind, id string, seed Seed) *Reducer {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key(kind, id)
	if r, ok := t.reducers[k]; ok {
		return r
	}

	r := t.newReducer(kind, id)
	r.SyncLikes(seed.Likes)
	r.SetCommentsCount(seed.CommentsCount)
	r.SetViews(seed.Views)
	t.reducers[k] = r
	return r
}

// Sync pushes fresh server data into an item's reducer, creating it if needed.
func (t *Tracker) Sync(kind models.ItemKind, id string, seed Seed) *Reducer {
	t.mu.Lock()
	r, ok := t.reducers[key(kind, id)]
	t.mu.Unlock()
	if !ok {
		return t.Track(kind, id, seed)
	}

	r.SyncLikes(seed.Likes)
	r.SetCommentsCount(seed.CommentsCount)
	r.SetViews(seed.Views)
	return r
}

// Lookup returns the reducer for an item if it is tracked.
func (t *Tracker) Lookup(kind models.ItemKind, id string) (*Reducer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.reducers[key(kind, id)]
	return r, ok
}

// Release drops an item's state once it leaves the mounted list.
func (t *Tracker) Release(kind models.ItemKind, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.reducers, key(kind, id))
}

// Len returns the number of tracked items.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.reducers)
}

func (t *Tracker) newReducer(kind models.ItemKind, id string) *Reducer {
	logger := t.logger.With(logging.WithFields(map[string]interface{}{
		"kind": string(kind),
		"id":   id,
	}))

	var like, view Action
	if t.backend != nil {
		switch kind {
		case models.ItemAd:
			like = func(ctx context.Context) error { return t.backend.LikeAd(ctx, id) }
			view = func(ctx context.Context) error { return t.backend.RecordAdImpression(ctx, id) }
		default:
			like = func(ctx context.Context) error { return t.backend.LikePost(ctx, id) }
			view = func(ctx context.Context) error { return t.backend.RecordPostView(ctx, id) }
		}
	}
	return NewReducer(t.userID, t.strategy, like, view, logger)
}
