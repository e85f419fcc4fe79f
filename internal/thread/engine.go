// Package thread runs the comment section of a single post: the comment and
// reply tree, reply pagination, reply targeting and like toggling.
package thread

import (
	"context"
	"errors"
	"fmt"
	mrand "math/rand"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/text/unicode/norm"

	"github.com/johnrirwin/socialfeed/internal/logging"
	"github.com/johnrirwin/socialfeed/internal/models"
)

var (
	// ErrEmptyText is returned when a comment or reply has no visible text.
	ErrEmptyText = errors.New("comment text is empty")
	// ErrNotFound is returned for unknown comment or reply ids.
	ErrNotFound = errors.New("comment not found")
)

// Backend is the slice of the gateway the engine needs.
type Backend interface {
	GetPostComments(ctx context.Context, postID string) ([]models.Comment, error)
	AddCommentToPost(ctx context.Context, postID, text string) ([]models.Comment, error)
	AddReplyToComment(ctx context.Context, commentID, text, replyTo string) ([]models.Comment, error)
	LikeComment(ctx context.Context, commentID string) error
	LikeReply(ctx context.Context, replyID string) error
}

// Rand picks which comment auto-disclosure expands. *math/rand/v2.Rand
// satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return mrand.Intn(n) }

// Config holds engine settings.
type Config struct {
	ReplyPageSize       int
	DisclosureBlockSize int
}

// Target is where the next submission goes: a top-level comment when nil,
// otherwise a reply under CommentID.
type Target struct {
	CommentID string `json:"commentId"`
	ReplyTo   string `json:"replyTo,omitempty"`
}

// Engine holds one post's comment thread.
type Engine struct {
	postID  string
	userID  string
	backend Backend
	rand    Rand
	cfg     Config
	logger  *logging.Logger
	onCount func(postID string, n int)

	mu       sync.Mutex
	comments []models.Comment
	expanded map[string]bool
	pages    map[string]int
	draft    string
	target   *Target
	loaded   bool
	errMsg   string
	closed   bool
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRand sets the randomness source used by auto-disclosure.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rand = r }
}

// WithCountObserver is called with the comment count whenever the list changes.
func WithCountObserver(fn func(postID string, n int)) Option {
	return func(e *Engine) { e.onCount = fn }
}

// New creates the engine for postID acting as userID.
func New(postID, userID string, backend Backend, cfg Config, logger *logging.Logger, opts ...Option) *Engine {
	if cfg.ReplyPageSize <= 0 {
		cfg.ReplyPageSize = 4
	}
	if cfg.DisclosureBlockSize <= 0 {
		cfg.DisclosureBlockSize = 5
	}
	e := &Engine{
		postID:   postID,
		userID:   userID,
		backend:  backend,
		rand:     globalRand{},
		cfg:      cfg,
		logger:   logger,
		expanded: make(map[string]bool),
		pages:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load fetches the comment list from the backend.
func (e *Engine) Load(ctx context.Context) error {
	comments, err := e.backend.GetPostComments(ctx, e.postID)
	if err != nil {
		e.mu.Lock()
		if !e.closed {
			e.errMsg = "Could not load comments."
		}
		e.mu.Unlock()
		return fmt.Errorf("load comments: %w", err)
	}
	e.replace(comments)
	return nil
}

// replace swaps in an authoritative comment list and reruns auto-disclosure.
func (e *Engine) replace(comments []models.Comment) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	sorted := make([]models.Comment, len(comments))
	copy(sorted, comments)
	models.SortCommentsNewestFirst(sorted)

	e.comments = sorted
	e.loaded = true
	e.errMsg = ""
	for id, page := range e.pages {
		if c, ok := e.find(id); ok {
			e.pages[id] = clampPage(page, e.totalPages(len(c.Replies)))
		} else {
			delete(e.pages, id)
		}
	}
	e.autoDisclose()
	n := len(e.comments)
	onCount := e.onCount
	e.mu.Unlock()

	if onCount != nil {
		onCount(e.postID, n)
	}
}

// autoDisclose expands one random comment with replies in every block.
// Must be called with mu held.
func (e *Engine) autoDisclose() {
	for _, block := range lo.Chunk(e.comments, e.cfg.DisclosureBlockSize) {
		candidates := lo.Filter(block, func(c models.Comment, _ int) bool {
			return len(c.Replies) > 0
		})
		if len(candidates) == 0 {
			continue
		}
		pick := candidates[e.rand.IntN(len(candidates))]
		if !e.expanded[pick.ID] {
			e.expanded[pick.ID] = true
			e.pages[pick.ID] = 1
		}
	}
}

func (e *Engine) find(commentID string) (models.Comment, bool) {
	return lo.Find(e.comments, func(c models.Comment) bool { return c.ID == commentID })
}

func (e *Engine) totalPages(replies int) int {
	return (replies + e.cfg.ReplyPageSize - 1) / e.cfg.ReplyPageSize
}

func clampPage(page, total int) int {
	return max(1, min(page, max(total, 1)))
}

// Expand shows the first page of a comment's replies.
func (e *Engine) Expand(commentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.find(commentID); !ok {
		return ErrNotFound
	}
	if !e.expanded[commentID] {
		e.expanded[commentID] = true
		e.pages[commentID] = 1
	}
	return nil
}

// Collapse hides a comment's replies and resets its page.
func (e *Engine) Collapse(commentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.find(commentID); !ok {
		return ErrNotFound
	}
	delete(e.expanded, commentID)
	e.pages[commentID] = 1
	return nil
}

// NextPage moves to the next reply page, stopping at the last.
func (e *Engine) NextPage(commentID string) (int, error) {
	return e.movePage(commentID, 1)
}

// PrevPage moves to the previous reply page, stopping at the first.
func (e *Engine) PrevPage(commentID string) (int, error) {
	return e.movePage(commentID, -1)
}

func (e *Engine) movePage(commentID string, delta int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.find(commentID)
	if !ok {
		return 0, ErrNotFound
	}
	current := max(e.pages[commentID], 1)
	page := clampPage(current+delta, e.totalPages(len(c.Replies)))
	e.pages[commentID] = page
	return page, nil
}

// ReplyToComment targets a top-level comment and pre-fills the draft with a
// mention of its author.
func (e *Engine) ReplyToComment(commentID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.find(commentID)
	if !ok {
		return "", ErrNotFound
	}
	e.target = &Target{CommentID: c.ID}
	e.draft = mention(c.Author.Handle())
	return e.draft, nil
}

// ReplyToReply targets the parent comment of a nested reply, remembering
// whom the reply answers. The draft is cleared.
func (e *Engine) ReplyToReply(replyID string) (Target, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, c := range e.comments {
		for _, r := range c.Replies {
			if r.ID != replyID {
				continue
			}
			e.target = &Target{CommentID: c.ID, ReplyTo: norm.NFC.String(r.Author.Handle())}
			e.draft = ""
			return *e.target, nil
		}
	}
	return Target{}, ErrNotFound
}

// CancelReply drops the pending reply target and the draft.
func (e *Engine) CancelReply() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = nil
	e.draft = ""
}

// SetDraft replaces the composer text.
func (e *Engine) SetDraft(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = text
}

// Send submits text as a reply to the pending target, or as a top-level
// comment when there is none. The target is cleared before the request.
func (e *Engine) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	e.mu.Lock()
	target := e.target
	e.target = nil
	e.draft = ""
	e.mu.Unlock()

	var (
		comments []models.Comment
		err      error
	)
	if target != nil {
		comments, err = e.backend.AddReplyToComment(ctx, target.CommentID, text, target.ReplyTo)
	} else {
		comments, err = e.backend.AddCommentToPost(ctx, e.postID, text)
	}
	if err != nil {
		e.mu.Lock()
		if e.draft == "" {
			e.draft = text
		}
		e.mu.Unlock()
		return fmt.Errorf("send comment: %w", err)
	}

	if comments != nil {
		e.replace(comments)
		return nil
	}
	return e.Load(ctx)
}

// LikeComment toggles the viewer's like on a comment, then refetches the
// thread. Request failures are logged and the optimistic state kept.
func (e *Engine) LikeComment(ctx context.Context, commentID string) error {
	e.mu.Lock()
	idx := -1
	for i := range e.comments {
		if e.comments[i].ID == commentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return ErrNotFound
	}
	e.comments[idx].Likes = toggle(e.comments[idx].Likes, e.userID)
	e.mu.Unlock()

	if err := e.backend.LikeComment(ctx, commentID); err != nil {
		e.logger.Warn("Comment like failed", logging.WithFields(map[string]interface{}{
			"comment_id": commentID,
			"error":      err.Error(),
		}))
		return nil
	}

	if err := e.Load(ctx); err != nil {
		e.logger.Warn("Comment refetch failed", logging.WithField("error", err.Error()))
	}
	return nil
}

// LikeReply toggles the viewer's like on a reply. There is no refetch.
func (e *Engine) LikeReply(ctx context.Context, replyID string) error {
	e.mu.Lock()
	found := false
	for ci := range e.comments {
		for ri := range e.comments[ci].Replies {
			if e.comments[ci].Replies[ri].ID != replyID {
				continue
			}
			// copy on write: earlier snapshots may still hold the old slice
			replies := slices.Clone(e.comments[ci].Replies)
			replies[ri].Likes = toggle(replies[ri].Likes, e.userID)
			e.comments[ci].Replies = replies
			found = true
			break
		}
	}
	e.mu.Unlock()
	if !found {
		return ErrNotFound
	}

	if err := e.backend.LikeReply(ctx, replyID); err != nil {
		e.logger.Warn("Reply like failed", logging.WithFields(map[string]interface{}{
			"reply_id": replyID,
			"error":    err.Error(),
		}))
	}
	return nil
}

// Close detaches the engine; later backend results are ignored.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

func toggle(likes models.Likes, userID string) models.Likes {
	if likes.Has(userID) {
		return likes.Without(userID)
	}
	return likes.With(userID)
}

func mention(username string) string {
	username = norm.NFC.String(strings.TrimSpace(username))
	if username == "" {
		return ""
	}
	return "@" + username + " "
}
