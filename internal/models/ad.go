package models

import "strings"

// ContactMethod is how a viewer reaches an advertiser.
type ContactMethod string

const (
	ContactLink          ContactMethod = "link"
	ContactWhatsApp      ContactMethod = "whatsapp"
	ContactDirectMessage ContactMethod = "direct-message"
)

// ParseContactMethod normalizes the wire value; unknown values become ContactLink.
func ParseContactMethod(s string) ContactMethod {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "_", "-")
	switch v {
	case "whatsapp":
		return ContactWhatsApp
	case "direct-message", "dm", "message":
		return ContactDirectMessage
	default:
		return ContactLink
	}
}

// Ad is a sponsored entry. Its ID space is distinct from posts.
type Ad struct {
	ID            string        `json:"id"`
	Author        UserRef       `json:"author"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	MediaURL      string        `json:"mediaUrl,omitempty"`
	ContactMethod ContactMethod `json:"contactMethod"`
	ContactValue  string        `json:"contactValue,omitempty"`
	Likes         Likes         `json:"likes"`
	Impressions   int           `json:"impressions"`
	Clicks        int           `json:"clicks"`
}
