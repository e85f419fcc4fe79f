package thread

import (
	"time"

	"github.com/johnrirwin/socialfeed/internal/models"
)

// ReplyView is a reply as rendered for the viewer. It holds copies only,
// so it can be serialized after the engine lock is released.
type ReplyView struct {
	ID         string         `json:"id"`
	CommentID  string         `json:"commentId"`
	ReplyTo    string         `json:"replyTo,omitempty"`
	Author     models.UserRef `json:"author"`
	Text       string         `json:"text"`
	CreatedAt  time.Time      `json:"createdAt"`
	LikesCount int            `json:"likesCount"`
	Liked      bool           `json:"liked"`
}

// CommentView is a top-level comment with its disclosure state. Only the
// replies on the current page are included.
type CommentView struct {
	ID             string         `json:"id"`
	PostID         string         `json:"postId"`
	Author         models.UserRef `json:"author"`
	Text           string         `json:"text"`
	CreatedAt      time.Time      `json:"createdAt"`
	ReplyCount     int            `json:"replyCount"`
	LikesCount     int            `json:"likesCount"`
	Liked          bool           `json:"liked"`
	Expanded       bool           `json:"expanded"`
	Page           int            `json:"page"`
	TotalPages     int            `json:"totalPages"`
	VisibleReplies []ReplyView    `json:"visibleReplies"`
}

// View is a snapshot of the whole thread.
type View struct {
	PostID   string        `json:"postId"`
	Comments []CommentView `json:"comments"`
	Count    int           `json:"count"`
	Draft    string        `json:"draft"`
	Target   *Target       `json:"target,omitempty"`
	Loaded   bool          `json:"loaded"`
	Error    string        `json:"error,omitempty"`
}

// View returns the current thread snapshot.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := View{
		PostID:   e.postID,
		Comments: make([]CommentView, 0, len(e.comments)),
		Count:    len(e.comments),
		Draft:    e.draft,
		Loaded:   e.loaded,
		Error:    e.errMsg,
	}
	if e.target != nil {
		t := *e.target
		v.Target = &t
	}

	for _, c := range e.comments {
		total := e.totalPages(len(c.Replies))
		cv := CommentView{
			ID:             c.ID,
			PostID:         c.PostID,
			Author:         c.Author,
			Text:           c.Text,
			CreatedAt:      c.CreatedAt,
			ReplyCount:     len(c.Replies),
			LikesCount:     c.Likes.Count(),
			Liked:          c.Likes.Has(e.userID),
			Expanded:       e.expanded[c.ID],
			Page:           clampPage(e.pages[c.ID], total),
			TotalPages:     total,
			VisibleReplies: []ReplyView{},
		}
		if cv.Expanded {
			for _, r := range e.pageOf(c.Replies, cv.Page) {
				cv.VisibleReplies = append(cv.VisibleReplies, ReplyView{
					ID:         r.ID,
					CommentID:  r.CommentID,
					ReplyTo:    r.ReplyTo,
					Author:     r.Author,
					Text:       r.Text,
					CreatedAt:  r.CreatedAt,
					LikesCount: r.Likes.Count(),
					Liked:      r.Likes.Has(e.userID),
				})
			}
		}
		v.Comments = append(v.Comments, cv)
	}
	return v
}

// pageOf returns the replies on a 1-based page.
func (e *Engine) pageOf(replies []models.Reply, page int) []models.Reply {
	start := (page - 1) * e.cfg.ReplyPageSize
	if start >= len(replies) || start < 0 {
		return nil
	}
	end := min(start+e.cfg.ReplyPageSize, len(replies))
	return replies[start:end]
}
