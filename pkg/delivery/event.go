package delivery

import (
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/notification"
)

// Outbound event names of the real-time protocol.
const (
	EventNotification = "notification"
	EventSubscribed   = "subscribed"
	EventError        = "error"
)

// Event is the outbound message envelope. Every notification event carries a
// server-assigned ISO-8601 timestamp, regardless of any timestamp present in
// the original payload.
type Event struct {
	Name      string `json:"event"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp string `json:"timestamp"`
}

func newEvent(name string, payload any, at time.Time) Event {
	return Event{
		Name:      name,
		Payload:   payload,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}

// NewNotificationEvent wraps a payload in a server-stamped notification event.
func NewNotificationEvent(p notification.Payload, at time.Time) Event {
	return newEvent(EventNotification, p, at)
}

// NewSubscribedEvent acknowledges a successful subscription.
func NewSubscribedEvent(userID string, at time.Time) Event {
	return newEvent(EventSubscribed, map[string]string{"user_id": userID}, at)
}

// NewErrorEvent reports a session-level error to a single connection.
func NewErrorEvent(message string, at time.Time) Event {
	return newEvent(EventError, map[string]string{"message": message}, at)
}
