package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles. A message is written once and never edited.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultSessionTitle is used when a session is created without a title.
const DefaultSessionTitle = "New Chat"

type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionDetail is a session plus its messages in creation order.
type SessionDetail struct {
	ChatSession
	Messages []*Message `json:"messages"`
}

type CreateSessionRequest struct {
	Title string `json:"title"`
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessageResponse carries both halves of one exchange.
type SendMessageResponse struct {
	UserMessage *Message `json:"user_message"`
	AIMessage   *Message `json:"ai_message"`
}

type DeleteSessionResponse struct {
	Success bool `json:"success"`
}

type HelloResponse struct {
	Greeting string `json:"greeting"`
}
