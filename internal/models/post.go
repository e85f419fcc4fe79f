package models

import "time"

// MediaKind identifies the primary media of a post.
type MediaKind string

const (
	MediaNone  MediaKind = ""
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// PostContent holds the body of a post. At most one of ImageURL and VideoURL is set.
type PostContent struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
	VideoURL string `json:"videoUrl,omitempty"`
}

// Media returns the primary media kind and URL.
func (c PostContent) Media() (MediaKind, string) {
	switch {
	case c.ImageURL != "":
		return MediaImage, c.ImageURL
	case c.VideoURL != "":
		return MediaVideo, c.VideoURL
	default:
		return MediaNone, ""
	}
}

// Post is a feed post as seen by the client after gateway normalization.
type Post struct {
	ID            string      `json:"id"`
	Author        UserRef     `json:"author"`
	Content       PostContent `json:"content"`
	CreatedAt     time.Time   `json:"createdAt"`
	Likes         Likes       `json:"likes"`
	CommentsCount int         `json:"commentsCount"`
	Comments      []Comment   `json:"comments,omitempty"`
	Shares        int         `json:"shares"`
	Views         int         `json:"views"`
}

// PostsPage is one page of the paginated post stream.
type PostsPage struct {
	Posts []Post `json:"posts"`
	// InlineAds are ad entries the backend mixed into the page. They are
	// never counted toward the pagination offset.
	InlineAds   []Ad           `json:"inlineAds,omitempty"`
	HasMore     bool           `json:"hasMore"`
	CyclingInfo map[string]any `json:"cyclingInfo,omitempty"`
}
