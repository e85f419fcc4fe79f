package models

import "strings"

// UserRef is the author/participant reference embedded in posts, comments and replies.
type UserRef struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Verified    bool   `json:"verified,omitempty"`
}

// Handle returns the name used for mentions. Falls back to the display name
// when the backend did not send a username.
func (u UserRef) Handle() string {
	if name := strings.TrimSpace(u.Username); name != "" {
		return name
	}
	return strings.TrimSpace(u.DisplayName)
}

// Profile is an entry in a profile-suggestion block.
type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Verified    bool   `json:"verified"`
	Followers   int    `json:"followers"`
}

// Theme is the persisted UI theme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme normalizes a theme value, defaulting to ThemeSystem.
func ParseTheme(s string) Theme {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight
	case ThemeDark:
		return ThemeDark
	default:
		return ThemeSystem
	}
}
