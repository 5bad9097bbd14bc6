package notification

import "context"

// Storage is the durable store adapter for notification records. The store is
// the source of truth: the coordinator always writes here before any push.
type Storage interface {
	// Create persists a new notification and returns the stored copy with its
	// assigned identifier and creation timestamp.
	Create(ctx context.Context, p Payload) (Payload, error)

	// List returns a user's notifications, newest first.
	List(ctx context.Context, userID string, opts ListOptions) ([]Payload, error)

	// MarkAllRead marks all of a user's unread notifications as read and
	// returns the number of records updated.
	MarkAllRead(ctx context.Context, userID string) (int, error)

	// Delete removes a single notification owned by userID. Returns
	// ErrNotificationNotFound for unknown ids and ErrAccessDenied when the
	// record belongs to another user.
	Delete(ctx context.Context, id, userID string) error

	// CountUnread returns the number of unread notifications for a user.
	CountUnread(ctx context.Context, userID string) (int, error)
}

// ListOptions provides filtering and pagination for List.
type ListOptions struct {
	Limit      int  // maximum number of records to return (0 = no limit)
	Offset     int  // number of records to skip
	OnlyUnread bool // when true, only unread records are returned
}
