package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// ConnectionID records the connection identifier under the key "connection_id".
func ConnectionID(id string) slog.Attr {
	return slog.String("connection_id", id)
}

// NotificationID records the notification identifier under the key "notification_id".
func NotificationID(id string) slog.Attr {
	return slog.String("notification_id", id)
}

// EventType records the notification event type under the key "event_type".
func EventType(t string) slog.Attr {
	return slog.String("event_type", t)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Count records a generic count under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}
