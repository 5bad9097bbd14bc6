package session

import (
	"encoding/json"
	"strings"
)

// Inbound client actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Message is an inbound client message. Payloads are arbitrary structured
// JSON; anything beyond the recognized fields is ignored.
type Message struct {
	Action string `json:"action"`
	UserID string `json:"user_id"`
}

// parseMessage decodes and validates an inbound message. The user identifier
// must be non-empty after trimming whitespace.
func parseMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, ErrMalformedMessage
	}

	switch msg.Action {
	case ActionSubscribe, ActionUnsubscribe:
	default:
		return Message{}, ErrUnknownAction
	}

	msg.UserID = strings.TrimSpace(msg.UserID)
	if msg.UserID == "" {
		return Message{}, ErrInvalidUserID
	}
	return msg, nil
}
