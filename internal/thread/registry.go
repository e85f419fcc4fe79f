package thread

import (
	"context"
	"sync"

	"github.com/johnrirwin/socialfeed/internal/logging"
)

// Registry keeps one engine per open comment section.
type Registry struct {
	backend Backend
	userID  string
	cfg     Config
	logger  *logging.Logger
	opts    []Option

	mu      sync.Mutex
	entries map[string]*entry
}

// entry is an engine whose first Load is shared by every caller.
type entry struct {
	engine *Engine
	ready  chan struct{}
	err    error
}

// NewRegistry creates a registry whose engines act as userID.
func NewRegistry(backend Backend, userID string, cfg Config, logger *logging.Logger, opts ...Option) *Registry {
	return &Registry{
		backend: backend,
		userID:  userID,
		cfg:     cfg,
		logger:  logger,
		opts:    opts,
		entries: make(map[string]*entry),
	}
}

// Open returns the loaded engine for postID. The first caller creates and
// loads it; concurrent callers wait for that load instead of starting their
// own. A failed first load forgets the engine so the next Open retries.
func (r *Registry) Open(ctx context.Context, postID string) (*Engine, error) {
	r.mu.Lock()
	if ent, ok := r.entries[postID]; ok {
		r.mu.Unlock()
		select {
		case <-ent.ready:
			if ent.err != nil {
				return nil, ent.err
			}
			return ent.engine, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ent := &entry{
		engine: New(postID, r.userID, r.backend, r.cfg, r.logger.With(logging.WithField("post_id", postID)), r.opts...),
		ready:  make(chan struct{}),
	}
	r.entries[postID] = ent
	r.mu.Unlock()

	ent.err = ent.engine.Load(ctx)
	if ent.err != nil {
		r.mu.Lock()
		if r.entries[postID] == ent {
			delete(r.entries, postID)
		}
		r.mu.Unlock()
	}
	close(ent.ready)

	if ent.err != nil {
		return nil, ent.err
	}
	return ent.engine, nil
}

// Release closes and forgets the engine for postID.
func (r *Registry) Release(postID string) {
	r.mu.Lock()
	ent, ok := r.entries[postID]
	delete(r.entries, postID)
	r.mu.Unlock()

	if ok {
		ent.engine.Close()
	}
}

// Len returns the number of open threads.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
