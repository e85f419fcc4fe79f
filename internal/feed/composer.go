// Package feed composes the home feed: paginated posts with cyclic ad
// insertion and profile-suggestion blocks.
package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/johnrirwin/socialfeed/internal/cache"
	"github.com/johnrirwin/socialfeed/internal/logging"
	"github.com/johnrirwin/socialfeed/internal/models"
)

const (
	adsCacheKey         = "feed:ads"
	suggestionsCacheKey = "feed:suggestions:%d"

	// LoadErrorMessage is shown when the first page cannot be loaded.
	LoadErrorMessage = "Could not load the feed. Pull down to try again."
)

// Source is the slice of the gateway the composer reads from.
type Source interface {
	FetchPosts(ctx context.Context, offset, limit int) (*models.PostsPage, error)
	FetchAds(ctx context.Context) ([]models.Ad, error)
	FetchProfileSuggestions(ctx context.Context, limit int) ([]models.Profile, error)
}

// Config holds composer settings.
type Config struct {
	PageSize         int
	AdEvery          int
	SuggestionsLimit int
	CacheTTL         time.Duration
}

// State is a snapshot of the feed.
type State struct {
	Items        []models.FeedItem `json:"items"`
	Posts        int               `json:"posts"`
	Offset       int               `json:"offset"`
	HasMore      bool              `json:"hasMore"`
	Loading      bool              `json:"loading"`
	Refreshing   bool              `json:"refreshing"`
	FetchingMore bool              `json:"fetchingMore"`
	Error        string            `json:"error,omitempty"`
}

// Composer owns the feed list order.
type Composer struct {
	source Source
	cache  cache.Cache
	cfg    Config
	logger *logging.Logger

	mu           sync.RWMutex
	posts        []models.Post
	ads          []models.Ad
	suggestions  []models.Profile
	offset       int
	hasMore      bool
	loading      bool
	refreshing   bool
	fetchingMore bool
	errMsg       string
	closed       bool
}

// New creates a composer. c may be nil.
func New(source Source, c cache.Cache, cfg Config, logger *logging.Logger) *Composer {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.AdEvery <= 0 {
		cfg.AdEvery = 3
	}
	if cfg.SuggestionsLimit <= 0 {
		cfg.SuggestionsLimit = 10
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Composer{
		source: source,
		cache:  c,
		cfg:    cfg,
		logger: logger,
		posts:  make([]models.Post, 0),
	}
}

// Load fetches the first page. fresh, when set, is a post the viewer just
// created; it is shown first even if the backend has not indexed it yet.
func (f *Composer) Load(ctx context.Context, fresh *models.Post) error {
	return f.load(ctx, fresh, false)
}

// Refresh reloads the first page, bypassing cached ads and suggestions.
func (f *Composer) Refresh(ctx context.Context) error {
	return f.load(ctx, nil, true)
}

type loadResult struct {
	page        *models.PostsPage
	postsErr    error
	ads         []models.Ad
	suggestions []models.Profile
}

func (f *Composer) load(ctx context.Context, fresh *models.Post, bypassCache bool) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	if bypassCache {
		f.refreshing = true
	} else {
		f.loading = true
	}
	f.errMsg = ""
	f.mu.Unlock()

	res := f.fetchFirstPage(ctx, bypassCache)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.loading = false
	f.refreshing = false
	if f.closed {
		return nil
	}

	if res.postsErr != nil {
		f.errMsg = LoadErrorMessage
		f.logger.Warn("Failed to load feed", logging.WithField("error", res.postsErr.Error()))
		return fmt.Errorf("load feed: %w", res.postsErr)
	}

	genuine := genuinePosts(res.page.Posts)
	sortByDate(genuine)

	posts := genuine
	if fresh != nil && fresh.ID != "" {
		posts = append([]models.Post{*fresh}, genuine...)
	}
	f.posts = deduplicate(posts)
	f.offset = len(genuine)
	f.hasMore = res.page.HasMore
	f.ads = res.ads
	f.suggestions = res.suggestions

	f.logger.Info("Feed loaded", logging.WithFields(map[string]interface{}{
		"posts":       len(f.posts),
		"ads":         len(f.ads),
		"suggestions": len(f.suggestions),
		"has_more":    f.hasMore,
		"inline_ads":  len(res.page.InlineAds),
	}))
	return nil
}

// fetchFirstPage loads the first page, the ad pool and suggestions in parallel.
func (f *Composer) fetchFirstPage(ctx context.Context, bypassCache bool) loadResult {
	var (
		wg  sync.WaitGroup
		res loadResult
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		res.page, res.postsErr = f.source.FetchPosts(ctx, 0, f.cfg.PageSize)
		if res.postsErr == nil && res.page == nil {
			res.page = &models.PostsPage{}
		}
	}()
	go func() {
		defer wg.Done()
		res.ads = f.loadAds(ctx, bypassCache)
	}()
	go func() {
		defer wg.Done()
		res.suggestions = f.loadSuggestions(ctx, bypassCache)
	}()
	wg.Wait()

	return res
}

func (f *Composer) loadAds(ctx context.Context, bypassCache bool) []models.Ad {
	var ads []models.Ad
	if !bypassCache && cache.Load(f.cache, adsCacheKey, &ads) {
		return ads
	}

	ads, err := f.source.FetchAds(ctx)
	if err != nil {
		f.logger.Warn("Failed to load ads", logging.WithField("error", err.Error()))
		return []models.Ad{}
	}
	ads = lo.UniqBy(ads, func(a models.Ad) string { return a.ID })

	if f.cache != nil {
		f.cache.SetWithTTL(adsCacheKey, ads, f.cfg.CacheTTL)
	}
	return ads
}

func (f *Composer) loadSuggestions(ctx context.Context, bypassCache bool) []models.Profile {
	key := fmt.Sprintf(suggestionsCacheKey, f.cfg.SuggestionsLimit)

	var profiles []models.Profile
	if !bypassCache && cache.Load(f.cache, key, &profiles) {
		return profiles
	}

	profiles, err := f.source.FetchProfileSuggestions(ctx, f.cfg.SuggestionsLimit)
	if err != nil {
		f.logger.Warn("Failed to load profile suggestions", logging.WithField("error", err.Error()))
		return []models.Profile{}
	}

	if f.cache != nil {
		f.cache.SetWithTTL(key, profiles, f.cfg.CacheTTL)
	}
	return profiles
}

// FetchMore appends the next page. It does nothing while another fetch-more
// is in flight or once the stream is exhausted.
func (f *Composer) FetchMore(ctx context.Context) error {
	f.mu.Lock()
	if f.closed || f.fetchingMore || !f.hasMore {
		f.mu.Unlock()
		return nil
	}
	f.fetchingMore = true
	offset := f.offset
	f.mu.Unlock()

	page, err := f.source.FetchPosts(ctx, offset, f.cfg.PageSize)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchingMore = false
	if f.closed {
		return nil
	}
	if err != nil {
		f.logger.Warn("Failed to fetch more posts", logging.WithFields(map[string]interface{}{
			"offset": offset,
			"error":  err.Error(),
		}))
		return fmt.Errorf("fetch more: %w", err)
	}
	if page == nil {
		page = &models.PostsPage{}
	}

	genuine := genuinePosts(page.Posts)
	seen := lo.Associate(f.posts, func(p models.Post) (string, bool) { return p.ID, true })
	for _, p := range genuine {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		f.posts = append(f.posts, p)
	}
	f.offset = offset + len(genuine)
	f.hasMore = page.HasMore

	f.logger.Debug("Fetched more posts", logging.WithFields(map[string]interface{}{
		"offset":   f.offset,
		"received": len(genuine),
		"has_more": f.hasMore,
	}))
	return nil
}

// Close marks the feed unmounted. Results of requests still in flight are
// discarded.
func (f *Composer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// Posts returns a copy of the loaded posts in list order.
func (f *Composer) Posts() []models.Post {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Post, len(f.posts))
	copy(out, f.posts)
	return out
}

// Post finds a loaded post by id.
func (f *Composer) Post(id string) (models.Post, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return lo.Find(f.posts, func(p models.Post) bool { return p.ID == id })
}

// Ad finds an ad in the current pool by id.
func (f *Composer) Ad(id string) (models.Ad, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return lo.Find(f.ads, func(a models.Ad) bool { return a.ID == id })
}

// Items returns the composed render list.
func (f *Composer) Items() []models.FeedItem {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Compose(f.posts, f.ads, f.suggestions, f.cfg.AdEvery)
}

// State returns a snapshot of the feed.
func (f *Composer) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return State{
		Items:        Compose(f.posts, f.ads, f.suggestions, f.cfg.AdEvery),
		Posts:        len(f.posts),
		Offset:       f.offset,
		HasMore:      f.hasMore,
		Loading:      f.loading,
		Refreshing:   f.refreshing,
		FetchingMore: f.fetchingMore,
		Error:        f.errMsg,
	}
}

func deduplicate(posts []models.Post) []models.Post {
	return lo.UniqBy(posts, func(p models.Post) string { return p.ID })
}

func sortByDate(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
