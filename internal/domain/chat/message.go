// Package chat models the chatbot widget: its transcript, its open/closed and
// idle/awaiting state, and the prompt sent to the text generator.
package chat

import "time"

// Role identifies the author of a message
type Role string

// Roles
const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one entry of the transcript
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

func newMessage(role Role, content string, now time.Time) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

// Fixed bot replies
const (
	NotLoadedMessage  = "CRM data has not been loaded yet. Please try again in a moment."
	ErrorMessage      = "Error: Unable to fetch response."
	NoResponseMessage = "No response from AI."
)
