package feed

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/johnrirwin/socialfeed/internal/models"
)

func makePosts(n int) []models.Post {
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = models.Post{ID: fmt.Sprintf("p%d", i+1)}
	}
	return posts
}

func renderKeys(items []models.FeedItem) string {
	keys := make([]string, len(items))
	for i, item := range items {
		switch item.Kind {
		case models.ItemPost:
			keys[i] = item.Post.ID
		case models.ItemAd:
			keys[i] = item.Ad.ID
		case models.ItemSuggestions:
			keys[i] = fmt.Sprintf("S%d", item.Position)
		}
	}
	return strings.Join(keys, ",")
}

func TestSuggestionTriggers(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, nil},
		{1, nil},
		{2, []int{1}},
		{3, []int{1, 2}},
		{4, []int{1, 2}},
		{6, []int{2, 4}},
		{10, []int{3, 6}},
		{11, []int{3, 7}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			got := SuggestionTriggers(tt.n)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SuggestionTriggers(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestSuggestionTriggers_Properties(t *testing.T) {
	for n := 2; n <= 200; n++ {
		got := SuggestionTriggers(n)
		seen := map[int]bool{}
		for _, pos := range got {
			if pos <= 0 || pos >= n {
				t.Fatalf("n=%d: trigger %d out of (0,n)", n, pos)
			}
			if seen[pos] {
				t.Fatalf("n=%d: duplicate trigger %d", n, pos)
			}
			seen[pos] = true
			if pos != n/3 && pos != 2*n/3 {
				t.Fatalf("n=%d: unexpected trigger %d", n, pos)
			}
		}
	}
}

func TestAdForInsertion_Cycles(t *testing.T) {
	pool := []models.Ad{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}}
	for k := 1; k <= 20; k++ {
		ad, ok := AdForInsertion(pool, k)
		if !ok {
			t.Fatalf("AdForInsertion(k=%d) not ok", k)
		}
		if want := pool[(k-1)%len(pool)].ID; ad.ID != want {
			t.Errorf("AdForInsertion(k=%d) = %s, want %s", k, ad.ID, want)
		}
	}

	if _, ok := AdForInsertion(nil, 1); ok {
		t.Error("AdForInsertion(empty) should report no ad")
	}
}

func TestCompose_EndToEnd(t *testing.T) {
	items := Compose(makePosts(10), []models.Ad{{ID: "a1"}}, []models.Profile{{ID: "u1"}}, 3)

	want := "p1,p2,p3,a1,S3,p4,p5,p6,a1,S6,p7,p8,p9,a1,p10"
	if got := renderKeys(items); got != want {
		t.Errorf("render order = %s\nwant           %s", got, want)
	}

	keys := map[string]bool{}
	for _, item := range items {
		if keys[item.Key] {
			t.Errorf("duplicate render key %q", item.Key)
		}
		keys[item.Key] = true
	}
}

func TestCompose_NoAdsKeepsPostPositions(t *testing.T) {
	items := Compose(makePosts(7), nil, nil, 3)
	if got := renderKeys(items); got != "p1,p2,p3,p4,p5,p6,p7" {
		t.Errorf("render order = %s", got)
	}
	for i, item := range items {
		if item.Position != i+1 {
			t.Errorf("item %d Position = %d", i, item.Position)
		}
	}
}

func TestCompose_AdCyclicity(t *testing.T) {
	pool := []models.Ad{{ID: "a1"}, {ID: "a2"}}
	items := Compose(makePosts(12), pool, nil, 3)

	k := 0
	for _, item := range items {
		if item.Kind != models.ItemAd {
			continue
		}
		k++
		if want := pool[(k-1)%len(pool)].ID; item.Ad.ID != want {
			t.Errorf("insertion %d = %s, want %s", k, item.Ad.ID, want)
		}
		if item.Position != 3*k {
			t.Errorf("insertion %d at position %d, want %d", k, item.Position, 3*k)
		}
	}
	if k != 4 {
		t.Errorf("ad insertions = %d, want 4", k)
	}
}
