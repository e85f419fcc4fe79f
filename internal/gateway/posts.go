package gateway

import (
	"context"
	"fmt"
	"strconv"

	"resty.dev/v3"

	"github.com/johnrirwin/socialfeed/internal/models"
)

// FetchPosts returns one page of the post stream starting at offset.
// Entries flagged as ads come back in InlineAds, never in Posts; entries
// without an id are dropped.
func (c *Client) FetchPosts(ctx context.Context, offset, limit int) (*models.PostsPage, error) {
	raw, err := c.get(ctx, "posts", "/posts", func(r *resty.Request) {
		r.SetQueryParam("offset", strconv.Itoa(offset)).
			SetQueryParam("limit", strconv.Itoa(limit))
	})
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	return decodePostsPage(raw, limit), nil
}

func decodePostsPage(data []byte, limit int) *models.PostsPage {
	page := &models.PostsPage{Posts: []models.Post{}}

	var envelope struct {
		HasMore     *bool          `json:"hasMore"`
		CyclingInfo map[string]any `json:"cyclingInfo"`
	}
	lenient(data, &envelope)
	page.CyclingInfo = envelope.CyclingInfo

	list := unwrapList(data, "posts", "data")
	for _, raw := range list {
		var w wireEntry
		if !lenient(raw, &w) || w.id() == "" {
			continue
		}
		if w.isAd() {
			page.InlineAds = append(page.InlineAds, w.ad())
			continue
		}
		page.Posts = append(page.Posts, w.post())
	}

	// Without an explicit flag a full page implies more to come.
	if envelope.HasMore != nil {
		page.HasMore = *envelope.HasMore
	} else {
		page.HasMore = limit > 0 && len(list) >= limit
	}
	return page
}

// LikePost toggles the current user's like on a post.
func (c *Client) LikePost(ctx context.Context, postID string) error {
	if _, err := c.post(ctx, "post_like", "/posts/"+pathID(postID)+"/like", nil); err != nil {
		return fmt.Errorf("like post %s: %w", postID, err)
	}
	return nil
}

// RecordPostView reports that the post was shown.
func (c *Client) RecordPostView(ctx context.Context, postID string) error {
	if _, err := c.post(ctx, "post_view", "/posts/"+pathID(postID)+"/view", nil); err != nil {
		return fmt.Errorf("record view %s: %w", postID, err)
	}
	return nil
}
