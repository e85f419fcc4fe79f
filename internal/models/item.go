package models

// ItemKind identifies what a render-list entry holds.
type ItemKind string

const (
	ItemPost        ItemKind = "post"
	ItemAd          ItemKind = "ad"
	ItemSuggestions ItemKind = "suggestions"
)

// FeedItem is one entry in the composed render list.
type FeedItem struct {
	Kind ItemKind `json:"kind"`
	// Key is stable across re-renders: the post/ad ID, or the 1-based
	// post position for suggestion blocks.
	Key         string    `json:"key"`
	Post        *Post     `json:"post,omitempty"`
	Ad          *Ad       `json:"ad,omitempty"`
	Suggestions []Profile `json:"suggestions,omitempty"`
	// Position is the 1-based post position the entry follows (ads and
	// suggestion blocks) or occupies (posts).
	Position int `json:"position"`
}
