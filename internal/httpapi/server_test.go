package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/johnrirwin/socialfeed/internal/feed"
	"github.com/johnrirwin/socialfeed/internal/gateway"
	"github.com/johnrirwin/socialfeed/internal/interaction"
	"github.com/johnrirwin/socialfeed/internal/models"
	"github.com/johnrirwin/socialfeed/internal/ratelimit"
	"github.com/johnrirwin/socialfeed/internal/session"
	"github.com/johnrirwin/socialfeed/internal/testutil"
	"github.com/johnrirwin/socialfeed/internal/thread"
)

// fakeGateway stands in for every backend interface the façade wires.
type fakeGateway struct {
	mu sync.Mutex

	posts         []models.Post
	ads           []models.Ad
	comments      []models.Comment
	conversations []models.Conversation
	fail          error

	postLikes []string
	adClicks  []string
	sent      []string
}

func (g *fakeGateway) FetchPosts(ctx context.Context, offset, limit int) (*models.PostsPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return nil, g.fail
	}
	if offset >= len(g.posts) {
		return &models.PostsPage{}, nil
	}
	end := min(offset+limit, len(g.posts))
	return &models.PostsPage{Posts: g.posts[offset:end], HasMore: end < len(g.posts)}, nil
}

func (g *fakeGateway) FetchAds(ctx context.Context) ([]models.Ad, error) {
	return g.ads, nil
}

func (g *fakeGateway) FetchProfileSuggestions(ctx context.Context, limit int) ([]models.Profile, error) {
	return []models.Profile{{ID: "u9", Username: "suggested"}}, nil
}

func (g *fakeGateway) LikePost(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.postLikes = append(g.postLikes, id)
	return nil
}

func (g *fakeGateway) LikeAd(ctx context.Context, id string) error             { return nil }
func (g *fakeGateway) RecordPostView(ctx context.Context, id string) error     { return nil }
func (g *fakeGateway) RecordAdImpression(ctx context.Context, id string) error { return nil }

func (g *fakeGateway) RecordAdClick(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.adClicks = append(g.adClicks, id)
	return nil
}

func (g *fakeGateway) FetchConversations(ctx context.Context) ([]models.Conversation, error) {
	if g.fail != nil {
		return nil, g.fail
	}
	return g.conversations, nil
}

func (g *fakeGateway) GetPostComments(ctx context.Context, postID string) ([]models.Comment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.comments, nil
}

func (g *fakeGateway) AddCommentToPost(ctx context.Context, postID, text string) ([]models.Comment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, text)
	g.comments = append(g.comments, models.Comment{ID: fmt.Sprintf("new%d", len(g.sent)), PostID: postID, Text: text, CreatedAt: time.Now()})
	return nil, nil
}

func (g *fakeGateway) AddReplyToComment(ctx context.Context, commentID, text, replyTo string) ([]models.Comment, error) {
	return nil, nil
}

func (g *fakeGateway) LikeComment(ctx context.Context, id string) error { return nil }
func (g *fakeGateway) LikeReply(ctx context.Context, id string) error   { return nil }

func samplePosts(n int) []models.Post {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = models.Post{
			ID:        fmt.Sprintf("p%d", i+1),
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
			Likes:     models.LikesCount(i),
		}
	}
	return posts
}

type testEnv struct {
	gw       *fakeGateway
	composer *feed.Composer
	tracker  *interaction.Tracker
	session  *session.Session
	handler  http.Handler
}

func newTestEnv(t *testing.T, gw *fakeGateway) *testEnv {
	t.Helper()
	logger := testutil.NullLogger()

	composer := feed.New(gw, nil, feed.Config{PageSize: 5, AdEvery: 3}, logger)
	tracker := interaction.NewTracker(gw, "me", interaction.FireAndForget, logger)
	threads := thread.NewRegistry(gw, "me", thread.Config{}, logger)
	sess := session.New(session.NewMemoryStore(), logger)

	s := New(composer, tracker, threads, sess, gw, logger)
	return &testEnv{gw: gw, composer: composer, tracker: tracker, session: sess, handler: s.Handler()}
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	return w
}

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		data       interface{}
		wantStatus int
	}{
		{
			name:       "success response",
			status:     http.StatusOK,
			data:       map[string]string{"message": "hello"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "created response",
			status:     http.StatusCreated,
			data:       models.FeedItem{Kind: models.ItemPost, Key: "123"},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeJSON(w, tt.status, tt.data)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			contentType := w.Header().Get("Content-Type")
			if contentType != "application/json" {
				t.Errorf("Content-Type = %s, want application/json", contentType)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		code       string
		message    string
		wantStatus int
	}{
		{
			name:       "bad request",
			status:     http.StatusBadRequest,
			code:       "invalid_request",
			message:    "text is required",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not found",
			status:     http.StatusNotFound,
			code:       "not_found",
			message:    "item is not in the feed",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, tt.status, tt.code, tt.message)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var response map[string]string
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}

			if response["code"] != tt.code {
				t.Errorf("code = %s, want %s", response["code"], tt.code)
			}
			if response["message"] != tt.message {
				t.Errorf("message = %s, want %s", response["message"], tt.message)
			}
		})
	}
}

func TestWriteUpstreamError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unauthorized", fmt.Errorf("like: %w", &gateway.RequestError{Status: 401}), http.StatusUnauthorized},
		{"server error", &gateway.RequestError{Status: 500}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeUpstreamError(w, tt.err)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	logger := testutil.NullLogger()
	s := &Server{logger: logger}

	handler := s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("OPTIONS request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/feed", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") == "" {
			t.Error("Missing Access-Control-Allow-Origin header")
		}
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("GET request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Code != http.StatusTeapot {
			t.Errorf("status = %d, want %d", w.Code, http.StatusTeapot)
		}
	})
}

func TestPathParts(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/items/post/p1/like", "post|p1|like"},
		{"/api/items/post/p1/", "post|p1"},
		{"/api/items/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := strings.Join(pathParts(tt.path, "/api/items/"), "|")
			if got != tt.want {
				t.Errorf("pathParts(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, &fakeGateway{})

	if w := env.do(t, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("/health status = %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/metrics", ""); w.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", w.Code)
	}
}

func TestFeedRoutes(t *testing.T) {
	gw := &fakeGateway{posts: samplePosts(7), ads: []models.Ad{{ID: "a1"}}}
	env := newTestEnv(t, gw)

	w := env.do(t, http.MethodPost, "/api/feed/refresh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Items        []models.FeedItem            `json:"items"`
		Offset       int                          `json:"offset"`
		HasMore      bool                         `json:"hasMore"`
		Interactions map[string]interaction.State `json:"interactions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Offset != 5 || !resp.HasMore {
		t.Errorf("offset = %d hasMore = %v", resp.Offset, resp.HasMore)
	}
	var adPositions []int
	for _, item := range resp.Items {
		if item.Kind == models.ItemAd {
			adPositions = append(adPositions, item.Position)
		}
	}
	if len(adPositions) != 1 || adPositions[0] != 3 {
		t.Errorf("ad positions = %v, want [3]", adPositions)
	}
	if st, ok := resp.Interactions["p3"]; !ok || st.LikesCount != 2 {
		t.Errorf("interactions[p3] = %+v", st)
	}

	w = env.do(t, http.MethodPost, "/api/feed/more", "")
	if w.Code != http.StatusOK {
		t.Fatalf("more status = %d", w.Code)
	}
	if st := env.composer.State(); st.Posts != 7 || st.HasMore {
		t.Errorf("after more: %+v", st)
	}

	if w := env.do(t, http.MethodGet, "/api/feed", ""); w.Code != http.StatusOK {
		t.Errorf("GET /api/feed status = %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/feed", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/feed status = %d", w.Code)
	}
}

func TestFeedRefreshFailure(t *testing.T) {
	gw := &fakeGateway{fail: &gateway.RequestError{Status: 503}}
	env := newTestEnv(t, gw)

	w := env.do(t, http.MethodPost, "/api/feed/refresh", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Error != feed.LoadErrorMessage {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestFeedRefreshThrottled(t *testing.T) {
	gw := &fakeGateway{posts: samplePosts(2)}
	logger := testutil.NullLogger()
	composer := feed.New(gw, nil, feed.Config{PageSize: 5, AdEvery: 3}, logger)
	tracker := interaction.NewTracker(gw, "me", interaction.FireAndForget, logger)
	threads := thread.NewRegistry(gw, "me", thread.Config{}, logger)
	sess := session.New(session.NewMemoryStore(), logger)

	s := New(composer, tracker, threads, sess, gw, logger)
	s.SetRefreshLimiter(ratelimit.New(time.Hour))
	handler := s.Handler()

	refresh := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/feed/refresh", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := refresh(); code != http.StatusOK {
		t.Fatalf("first refresh status = %d, want 200", code)
	}
	if code := refresh(); code != http.StatusTooManyRequests {
		t.Errorf("second refresh status = %d, want 429", code)
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	if got := clientKey(req); got != "10.1.2.3" {
		t.Errorf("clientKey() = %q, want 10.1.2.3", got)
	}

	req.Header.Set("X-Forwarded-For", "192.168.0.9, 10.0.0.1")
	if got := clientKey(req); got != "192.168.0.9" {
		t.Errorf("clientKey() with forwarded header = %q, want 192.168.0.9", got)
	}
}

func TestItemRoutes(t *testing.T) {
	gw := &fakeGateway{posts: samplePosts(3), ads: []models.Ad{{ID: "a1"}}}
	env := newTestEnv(t, gw)
	_ = env.composer.Load(context.Background(), nil)

	w := env.do(t, http.MethodPost, "/api/items/post/p2/like", "")
	if w.Code != http.StatusOK {
		t.Fatalf("like status = %d: %s", w.Code, w.Body.String())
	}
	var st interaction.State
	_ = json.NewDecoder(w.Body).Decode(&st)
	if !st.Liked || st.LikesCount != 2 {
		t.Errorf("state after like = %+v", st)
	}
	if len(gw.postLikes) != 1 || gw.postLikes[0] != "p2" {
		t.Errorf("backend likes = %v", gw.postLikes)
	}

	if w := env.do(t, http.MethodPost, "/api/items/post/p2/view", ""); w.Code != http.StatusOK {
		t.Errorf("view status = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/items/ad/a1/click", ""); w.Code != http.StatusNoContent {
		t.Errorf("click status = %d", w.Code)
	}
	if len(gw.adClicks) != 1 {
		t.Errorf("ad clicks = %v", gw.adClicks)
	}

	if w := env.do(t, http.MethodDelete, "/api/items/post/p2", ""); w.Code != http.StatusNoContent {
		t.Errorf("release status = %d", w.Code)
	}
	if _, ok := env.tracker.Lookup(models.ItemPost, "p2"); ok {
		t.Error("item still tracked after release")
	}

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"unknown item", http.MethodPost, "/api/items/post/zzz/like", http.StatusNotFound},
		{"bad kind", http.MethodPost, "/api/items/story/p1/like", http.StatusBadRequest},
		{"missing id", http.MethodPost, "/api/items/post", http.StatusBadRequest},
		{"unknown action", http.MethodPost, "/api/items/post/p1/share", http.StatusNotFound},
		{"post click", http.MethodPost, "/api/items/post/p1/click", http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/api/items/post/p1/like", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, tt.method, tt.path, ""); w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestThreadRoutes(t *testing.T) {
	gw := &fakeGateway{comments: []models.Comment{{
		ID:        "c1",
		Author:    models.UserRef{ID: "u1", Username: "ana"},
		CreatedAt: time.Now().Add(-time.Hour),
		Replies: []models.Reply{
			{ID: "r1", Author: models.UserRef{Username: "ben"}},
		},
	}}}
	env := newTestEnv(t, gw)

	w := env.do(t, http.MethodGet, "/api/posts/p1/comments", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET comments status = %d", w.Code)
	}
	var view thread.View
	_ = json.NewDecoder(w.Body).Decode(&view)
	if view.Count != 1 || !view.Comments[0].Expanded {
		t.Errorf("view = %+v", view)
	}

	w = env.do(t, http.MethodPost, "/api/posts/p1/comments/c1/reply", "")
	_ = json.NewDecoder(w.Body).Decode(&view)
	if view.Draft != "@ana " {
		t.Errorf("draft = %q", view.Draft)
	}

	w = env.do(t, http.MethodPost, "/api/posts/p1/replies/r1/reply", "")
	_ = json.NewDecoder(w.Body).Decode(&view)
	if view.Target == nil || view.Target.ReplyTo != "ben" {
		t.Errorf("target = %+v", view.Target)
	}

	env.do(t, http.MethodPost, "/api/posts/p1/replies/r1/like", "")
	env.do(t, http.MethodPost, "/api/posts/p1/comments/c1/collapse", "")

	env.do(t, http.MethodDelete, "/api/posts/p1/comments", "")
	w = env.do(t, http.MethodPost, "/api/posts/p1/comments", `{"text":"first!"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST comment status = %d: %s", w.Code, w.Body.String())
	}
	_ = json.NewDecoder(w.Body).Decode(&view)
	if view.Count != 2 || view.Comments[0].Text != "first!" {
		t.Errorf("view after send = %+v", view.Comments)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"blank text", http.MethodPost, "/api/posts/p1/comments", `{"text":"  "}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/posts/p1/comments", `{`, http.StatusBadRequest},
		{"unknown comment", http.MethodPost, "/api/posts/p1/comments/nope/expand", "", http.StatusNotFound},
		{"unknown action", http.MethodPost, "/api/posts/p1/comments/c1/pin", "", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/posts/p1/likes", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, tt.method, tt.path, tt.body); w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestThreadDraftRoute(t *testing.T) {
	gw := &fakeGateway{comments: []models.Comment{{
		ID:        "c1",
		Author:    models.UserRef{ID: "u1", Username: "ana"},
		CreatedAt: time.Now().Add(-time.Hour),
	}}}
	env := newTestEnv(t, gw)

	w := env.do(t, http.MethodPut, "/api/posts/p1/draft", `{"text":"half a thought"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT draft status = %d: %s", w.Code, w.Body.String())
	}
	var view thread.View
	_ = json.NewDecoder(w.Body).Decode(&view)
	if view.Draft != "half a thought" || !view.Loaded {
		t.Errorf("view = %+v", view)
	}

	w = env.do(t, http.MethodGet, "/api/posts/p1/comments", "")
	_ = json.NewDecoder(w.Body).Decode(&view)
	if view.Draft != "half a thought" {
		t.Errorf("draft after GET = %q", view.Draft)
	}

	env.do(t, http.MethodPost, "/api/posts/p1/comments/c1/reply", "")
	w = env.do(t, http.MethodPut, "/api/posts/p1/draft", `{"text":"@ana nice shot"}`)
	_ = json.NewDecoder(w.Body).Decode(&view)
	if view.Target == nil || view.Target.CommentID != "c1" || view.Draft != "@ana nice shot" {
		t.Errorf("editing the draft should keep the reply target: %+v", view)
	}

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"wrong method", http.MethodPost, `{"text":"x"}`, http.StatusMethodNotAllowed},
		{"bad json", http.MethodPut, `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, tt.method, "/api/posts/p1/draft", tt.body); w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestSessionRoutes(t *testing.T) {
	env := newTestEnv(t, &fakeGateway{conversations: []models.Conversation{{ID: "cv1"}}})
	ctx := context.Background()

	var resp sessionResponse
	w := env.do(t, http.MethodGet, "/api/session", "")
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.SignedIn || resp.Theme != models.ThemeSystem {
		t.Errorf("signed-out session = %+v", resp)
	}

	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1", "username": "ana"}).SignedString([]byte("k"))
	_ = env.session.SetToken(ctx, token)

	if w := env.do(t, http.MethodPut, "/api/session/theme", `{"theme":"dark"}`); w.Code != http.StatusOK {
		t.Fatalf("PUT theme status = %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/session", "")
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if !resp.SignedIn || resp.UserID != "u1" || resp.Username != "ana" || resp.Theme != models.ThemeDark {
		t.Errorf("session = %+v", resp)
	}

	w = env.do(t, http.MethodGet, "/api/conversations", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"count":1`) {
		t.Errorf("conversations = %d %s", w.Code, w.Body.String())
	}
}
