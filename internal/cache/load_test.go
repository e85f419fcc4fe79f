package cache

import (
	"testing"
	"time"
)

type cachedAd struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestLoad_TypedValue(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set("ads", []cachedAd{{ID: "a1", Title: "Shoes"}})

	var got []cachedAd
	if !Load(c, "ads", &got) {
		t.Fatal("Load() = false, want true")
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("Load() = %+v", got)
	}
}

func TestLoad_GenericJSONValue(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	// Shape the redis backend returns after json.Unmarshal into interface{}.
	c.Set("ads", []interface{}{
		map[string]interface{}{"id": "a2", "title": "Hats"},
	})

	var got []cachedAd
	if !Load(c, "ads", &got) {
		t.Fatal("Load() = false, want true")
	}
	if len(got) != 1 || got[0].Title != "Hats" {
		t.Errorf("Load() = %+v", got)
	}
}

func TestLoad_Missing(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	var got []cachedAd
	if Load(c, "nope", &got) {
		t.Error("Load() = true for missing key")
	}
	if Load(nil, "nope", &got) {
		t.Error("Load() = true for nil cache")
	}
}

func TestLoad_NonPointer(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set("k", "v")
	var s string
	if Load(c, "k", s) {
		t.Error("Load() = true for non-pointer destination")
	}
}
