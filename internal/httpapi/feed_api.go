package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/johnrirwin/socialfeed/internal/feed"
	"github.com/johnrirwin/socialfeed/internal/interaction"
	"github.com/johnrirwin/socialfeed/internal/logging"
	"github.com/johnrirwin/socialfeed/internal/models"
	"github.com/johnrirwin/socialfeed/internal/ratelimit"
)

// FeedAPI handles the feed list and per-item interactions.
type FeedAPI struct {
	composer *feed.Composer
	tracker  *interaction.Tracker
	backend  Backend
	logger   *logging.Logger

	refreshLimiter ratelimit.RateLimiter
}

// NewFeedAPI creates a new feed API handler
func NewFeedAPI(composer *feed.Composer, tracker *interaction.Tracker, backend Backend, logger *logging.Logger) *FeedAPI {
	return &FeedAPI{
		composer: composer,
		tracker:  tracker,
		backend:  backend,
		logger:   logger,
	}
}

// RegisterRoutes registers feed routes on the given mux
func (api *FeedAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/feed", corsMiddleware(api.handleFeed))
	mux.HandleFunc("/api/feed/refresh", corsMiddleware(api.handleRefresh))
	mux.HandleFunc("/api/feed/more", corsMiddleware(api.handleMore))
	mux.HandleFunc("/api/items/", corsMiddleware(api.handleItem))
}

type feedResponse struct {
	feed.State
	Interactions map[string]interaction.State `json:"interactions"`
}

// response renders the feed and makes sure every rendered item has
// interaction state.
func (api *FeedAPI) response() feedResponse {
	st := api.composer.State()
	resp := feedResponse{State: st, Interactions: make(map[string]interaction.State)}

	for _, item := range st.Items {
		switch item.Kind {
		case models.ItemPost:
			r := api.tracker.Track(models.ItemPost, item.Post.ID, interaction.PostSeed(*item.Post))
			resp.Interactions[item.Key] = r.State()
		case models.ItemAd:
			r := api.tracker.Track(models.ItemAd, item.Ad.ID, interaction.AdSeed(*item.Ad))
			resp.Interactions[item.Key] = r.State()
		}
	}
	return resp
}

// syncTracked pushes freshly loaded server data into tracked items.
func (api *FeedAPI) syncTracked() {
	for _, p := range api.composer.Posts() {
		if _, ok := api.tracker.Lookup(models.ItemPost, p.ID); ok {
			api.tracker.Sync(models.ItemPost, p.ID, interaction.PostSeed(p))
		}
	}
}

// handleFeed handles GET /api/feed
func (api *FeedAPI) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, api.response())
}

// handleRefresh handles POST /api/feed/refresh
func (api *FeedAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if api.refreshLimiter != nil && !api.refreshLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "feed was refreshed too recently")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	if err := api.composer.Refresh(ctx); err != nil {
		// The error string is part of the feed state; the list is still served.
		writeJSON(w, http.StatusBadGateway, api.response())
		return
	}
	api.syncTracked()
	writeJSON(w, http.StatusOK, api.response())
}

// handleMore handles POST /api/feed/more
func (api *FeedAPI) handleMore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	if err := api.composer.FetchMore(ctx); err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.response())
}

// handleItem handles /api/items/{kind}/{id}[/{action}]
func (api *FeedAPI) handleItem(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/items/")
	if len(parts) < 2 {
		writeError(w, http.StatusBadRequest, "invalid_request", "item kind and id required")
		return
	}

	kind := models.ItemKind(parts[0])
	id := parts[1]
	if kind != models.ItemPost && kind != models.ItemAd {
		writeError(w, http.StatusBadRequest, "invalid_request", "kind must be post or ad")
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		api.tracker.Release(kind, id)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost || len(parts) != 3 {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reducer, ok := api.reducer(kind, id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "item is not in the feed")
		return
	}

	switch parts[2] {
	case "like":
		writeJSON(w, http.StatusOK, reducer.Toggle(r.Context()))
	case "view":
		writeJSON(w, http.StatusOK, reducer.RecordView(r.Context()))
	case "click":
		if kind != models.ItemAd {
			writeError(w, http.StatusBadRequest, "invalid_request", "only ads can be clicked")
			return
		}
		if err := api.backend.RecordAdClick(r.Context(), id); err != nil {
			api.logger.Warn("Ad click report failed", logging.WithFields(map[string]interface{}{
				"ad_id": id,
				"error": err.Error(),
			}))
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown item action")
	}
}

// reducer finds tracked state for an item, seeding it from the feed when the
// item is loaded but not yet rendered.
func (api *FeedAPI) reducer(kind models.ItemKind, id string) (*interaction.Reducer, bool) {
	if r, ok := api.tracker.Lookup(kind, id); ok {
		return r, true
	}
	switch kind {
	case models.ItemPost:
		if p, ok := api.composer.Post(id); ok {
			return api.tracker.Track(kind, id, interaction.PostSeed(p)), true
		}
	case models.ItemAd:
		if a, ok := api.composer.Ad(id); ok {
			return api.tracker.Track(kind, id, interaction.AdSeed(a)), true
		}
	}
	return nil, false
}
