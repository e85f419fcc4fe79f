package gateway

import (
	"context"
	"fmt"
	"strconv"

	"resty.dev/v3"

	"github.com/johnrirwin/socialfeed/internal/models"
)

// FetchProfileSuggestions returns up to limit suggested profiles.
func (c *Client) FetchProfileSuggestions(ctx context.Context, limit int) ([]models.Profile, error) {
	raw, err := c.get(ctx, "suggestions", "/users/suggestions", func(r *resty.Request) {
		if limit > 0 {
			r.SetQueryParam("limit", strconv.Itoa(limit))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("fetch suggestions: %w", err)
	}
	profiles := decodeProfiles(raw)
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	return profiles, nil
}

// FetchConversations returns the current user's conversation summaries.
func (c *Client) FetchConversations(ctx context.Context) ([]models.Conversation, error) {
	raw, err := c.get(ctx, "conversations", "/conversations", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}
	return decodeConversations(raw), nil
}
