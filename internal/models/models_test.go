package models

import (
	"testing"
	"time"
)

func TestParseContactMethod(t *testing.T) {
	tests := []struct {
		in   string
		want ContactMethod
	}{
		{"link", ContactLink},
		{"WhatsApp", ContactWhatsApp},
		{"direct_message", ContactDirectMessage},
		{"direct-message", ContactDirectMessage},
		{"dm", ContactDirectMessage},
		{"carrier-pigeon", ContactLink},
		{"", ContactLink},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseContactMethod(tt.in); got != tt.want {
				t.Errorf("ParseContactMethod(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPostContent_Media(t *testing.T) {
	tests := []struct {
		name     string
		content  PostContent
		wantKind MediaKind
		wantURL  string
	}{
		{"none", PostContent{Text: "hi"}, MediaNone, ""},
		{"image", PostContent{ImageURL: "i.png"}, MediaImage, "i.png"},
		{"video", PostContent{VideoURL: "v.mp4"}, MediaVideo, "v.mp4"},
		{"image wins", PostContent{ImageURL: "i.png", VideoURL: "v.mp4"}, MediaImage, "i.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, url := tt.content.Media()
			if kind != tt.wantKind || url != tt.wantURL {
				t.Errorf("Media() = (%q, %q), want (%q, %q)", kind, url, tt.wantKind, tt.wantURL)
			}
		})
	}
}

func TestSortCommentsNewestFirst(t *testing.T) {
	now := time.Now()
	comments := []Comment{
		{ID: "old", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "new", CreatedAt: now},
		{ID: "mid", CreatedAt: now.Add(-time.Hour)},
	}

	SortCommentsNewestFirst(comments)

	want := []string{"new", "mid", "old"}
	for i, id := range want {
		if comments[i].ID != id {
			t.Errorf("comments[%d] = %q, want %q", i, comments[i].ID, id)
		}
	}
}

func TestUserRef_Handle(t *testing.T) {
	if got := (UserRef{Username: " ana ", DisplayName: "Ana"}).Handle(); got != "ana" {
		t.Errorf("Handle() = %q, want %q", got, "ana")
	}
	if got := (UserRef{DisplayName: "Ana B"}).Handle(); got != "Ana B" {
		t.Errorf("Handle() = %q, want %q", got, "Ana B")
	}
}

func TestParseTheme(t *testing.T) {
	if ParseTheme("DARK") != ThemeDark {
		t.Error("ParseTheme(DARK) should be dark")
	}
	if ParseTheme("neon") != ThemeSystem {
		t.Error("unknown theme should fall back to system")
	}
}
