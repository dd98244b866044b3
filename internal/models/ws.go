package models

import (
	"github.com/google/uuid"
)

// WSMessage is the envelope pushed to connected clients.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// SessionEvent notifies a client that a session (or the session list) changed
// and the corresponding cache should be refetched.
type SessionEvent struct {
	SessionID uuid.UUID `json:"session_id,omitempty"`
}
