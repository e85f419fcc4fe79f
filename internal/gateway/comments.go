package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"resty.dev/v3"

	"github.com/johnrirwin/socialfeed/internal/models"
)

// GetPostComments returns the comment tree of a post.
func (c *Client) GetPostComments(ctx context.Context, postID string) ([]models.Comment, error) {
	raw, err := c.get(ctx, "comments", "/posts/"+pathID(postID)+"/comments", nil)
	if err != nil {
		return nil, fmt.Errorf("get comments %s: %w", postID, err)
	}
	return decodeComments(raw, postID), nil
}

// AddCommentToPost posts a top-level comment. The result is the post's full
// comment list when the backend returned one, nil otherwise.
func (c *Client) AddCommentToPost(ctx context.Context, postID, text string) ([]models.Comment, error) {
	raw, err := c.post(ctx, "comment_add", "/posts/"+pathID(postID)+"/comments", func(r *resty.Request) {
		r.SetBody(map[string]string{"text": text})
	})
	if err != nil {
		return nil, fmt.Errorf("add comment %s: %w", postID, err)
	}
	return returnedComments(raw, postID), nil
}

// AddReplyToComment posts a reply under a top-level comment. replyTo names
// the user being answered and may be empty.
func (c *Client) AddReplyToComment(ctx context.Context, commentID, text, replyTo string) ([]models.Comment, error) {
	body := map[string]string{"text": text}
	if replyTo != "" {
		body["replyTo"] = replyTo
	}
	raw, err := c.post(ctx, "reply_add", "/comments/"+pathID(commentID)+"/replies", func(r *resty.Request) {
		r.SetBody(body)
	})
	if err != nil {
		return nil, fmt.Errorf("add reply %s: %w", commentID, err)
	}
	return returnedComments(raw, ""), nil
}

// LikeComment toggles the current user's like on a comment.
func (c *Client) LikeComment(ctx context.Context, commentID string) error {
	if _, err := c.post(ctx, "comment_like", "/comments/"+pathID(commentID)+"/like", nil); err != nil {
		return fmt.Errorf("like comment %s: %w", commentID, err)
	}
	return nil
}

// LikeReply toggles the current user's like on a reply.
func (c *Client) LikeReply(ctx context.Context, replyID string) error {
	if _, err := c.post(ctx, "reply_like", "/replies/"+pathID(replyID)+"/like", nil); err != nil {
		return fmt.Errorf("like reply %s: %w", replyID, err)
	}
	return nil
}

// returnedComments extracts a full comment list from a write response. The
// backend answers with the updated post, a bare comment array, or something
// else entirely; only the first two count.
func returnedComments(data []byte, postID string) []models.Comment {
	if len(data) == 0 {
		return nil
	}

	var list []json.RawMessage
	if json.Unmarshal(data, &list) == nil {
		return decodeComments(data, postID)
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(data, &obj) != nil {
		return nil
	}
	if post, ok := obj["post"]; ok {
		obj = nil
		if json.Unmarshal(post, &obj) != nil {
			return nil
		}
	}
	comments, ok := obj["comments"]
	if !ok || json.Unmarshal(comments, &list) != nil {
		return nil
	}
	return decodeComments(comments, postID)
}
