package feed

import (
	"fmt"
	"strconv"

	"github.com/samber/lo"

	"github.com/johnrirwin/socialfeed/internal/models"
)

// SuggestionTriggers returns the 1-based post positions after which a
// profile-suggestion block renders for n loaded posts: a third and two
// thirds of the way down, never at the very top or bottom.
func SuggestionTriggers(n int) []int {
	if n < 2 {
		return nil
	}
	candidates := []int{n / 3, 2 * n / 3}
	return lo.Uniq(lo.Filter(candidates, func(pos int, _ int) bool {
		return pos > 0 && pos < n
	}))
}

// AdForInsertion returns the ad shown at the k-th insertion (1-based). The
// pool is walked cyclically.
func AdForInsertion(pool []models.Ad, k int) (models.Ad, bool) {
	if len(pool) == 0 || k < 1 {
		return models.Ad{}, false
	}
	return pool[(k-1)%len(pool)], true
}

// Compose merges posts with ads and suggestion blocks into the render list.
// An ad follows every adEvery-th post; at a shared position the order is
// post, ad, suggestions.
func Compose(posts []models.Post, ads []models.Ad, suggestions []models.Profile, adEvery int) []models.FeedItem {
	triggers := lo.Associate(SuggestionTriggers(len(posts)), func(pos int) (int, bool) {
		return pos, true
	})

	items := make([]models.FeedItem, 0, len(posts)+len(posts)/max(adEvery, 1)+len(triggers))
	for i := range posts {
		pos := i + 1
		post := posts[i]
		items = append(items, models.FeedItem{
			Kind:     models.ItemPost,
			Key:      post.ID,
			Post:     &post,
			Position: pos,
		})

		if adEvery > 0 && pos%adEvery == 0 {
			k := pos / adEvery
			if ad, ok := AdForInsertion(ads, k); ok {
				items = append(items, models.FeedItem{
					Kind:     models.ItemAd,
					Key:      fmt.Sprintf("%s#%d", ad.ID, k),
					Ad:       &ad,
					Position: pos,
				})
			}
		}

		if triggers[pos] && len(suggestions) > 0 {
			items = append(items, models.FeedItem{
				Kind:        models.ItemSuggestions,
				Key:         "suggestions-" + strconv.Itoa(pos),
				Suggestions: suggestions,
				Position:    pos,
			})
		}
	}
	return items
}

// genuinePosts keeps entries that can take part in pagination.
func genuinePosts(posts []models.Post) []models.Post {
	return lo.Filter(posts, func(p models.Post, _ int) bool {
		return p.ID != ""
	})
}
