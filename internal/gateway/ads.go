package gateway

import (
	"context"
	"fmt"

	"github.com/johnrirwin/socialfeed/internal/models"
)

// FetchAds returns the active ad pool.
func (c *Client) FetchAds(ctx context.Context) ([]models.Ad, error) {
	raw, err := c.get(ctx, "ads", "/ads/active", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch ads: %w", err)
	}
	return decodeAds(raw), nil
}

// LikeAd toggles the current user's like on an ad.
func (c *Client) LikeAd(ctx context.Context, adID string) error {
	if _, err := c.post(ctx, "ad_like", "/ads/"+pathID(adID)+"/like", nil); err != nil {
		return fmt.Errorf("like ad %s: %w", adID, err)
	}
	return nil
}

// RecordAdImpression reports that the ad was shown.
func (c *Client) RecordAdImpression(ctx context.Context, adID string) error {
	if _, err := c.post(ctx, "ad_impression", "/ads/"+pathID(adID)+"/impression", nil); err != nil {
		return fmt.Errorf("record impression %s: %w", adID, err)
	}
	return nil
}

// RecordAdClick reports a click on the ad's contact action.
func (c *Client) RecordAdClick(ctx context.Context, adID string) error {
	if _, err := c.post(ctx, "ad_click", "/ads/"+pathID(adID)+"/click", nil); err != nil {
		return fmt.Errorf("record click %s: %w", adID, err)
	}
	return nil
}
