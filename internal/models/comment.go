package models

import (
	"sort"
	"time"
)

// Reply is a nested reply under a top-level comment.
type Reply struct {
	ID        string    `json:"id"`
	CommentID string    `json:"commentId"`
	ReplyTo   string    `json:"replyTo,omitempty"`
	Author    UserRef   `json:"author"`
	Text      string    `json:"text"`
	Likes     Likes     `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a top-level comment on a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Author    UserRef   `json:"author"`
	Text      string    `json:"text"`
	Likes     Likes     `json:"likes"`
	Replies   []Reply   `json:"replies"`
	CreatedAt time.Time `json:"createdAt"`
}

// SortCommentsNewestFirst orders comments by CreatedAt descending, in place.
func SortCommentsNewestFirst(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
}
