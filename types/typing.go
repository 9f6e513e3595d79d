package types

import "time"

// TypingState is the ephemeral composing signal for one participant in one
// conversation. Entries expire after a short TTL of inactivity and are never
// mixed into message data.
type TypingState struct {
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	DisplayName    string    `json:"displayName"`
	IsTyping       bool      `json:"isTyping"`
	LastActivity   time.Time `json:"lastActivity"`
}
