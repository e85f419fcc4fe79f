package models

import "time"

// Conversation is a direct-message thread summary.
type Conversation struct {
	ID           string    `json:"id"`
	Participants []UserRef `json:"participants"`
	LastMessage  string    `json:"lastMessage,omitempty"`
	UnreadCount  int       `json:"unreadCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
