package notifier

import (
	"context"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notification"
)

// Read-side helpers compose a durable operation with an optional live-sync
// push: the store operation always runs first, and a lightweight control
// event follows only if the acting user currently has a live connection, so
// other open devices of the same user stay in sync (e.g. marking as read on
// one device reflects on another open tab in real time).

// History returns the user's most recent notifications and, if the user is
// connected, pushes them as a NOTIFICATION_HISTORY control event.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]notification.Payload, error) {
	records, err := s.storage.List(ctx, userID, notification.ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}

	if s.registry.IsConnected(userID) {
		s.engine.PushToUser(ctx, userID, notification.Payload{
			Type:    notification.TypeHistory,
			Message: "notification history",
			UserID:  userID,
			Data: map[string]any{
				"notifications": records,
				"count":         len(records),
			},
		})
	}
	return records, nil
}

// MarkAllRead marks all of the user's notifications as read and notifies
// their live devices with a NOTIFICATIONS_READ control event.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	count, err := s.storage.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.log.Info("notifications marked as read", logger.UserID(userID), logger.Count(count))

	if s.registry.IsConnected(userID) {
		s.engine.PushToUser(ctx, userID, notification.Payload{
			Type:    notification.TypeRead,
			Message: "all notifications marked as read",
			UserID:  userID,
			Data:    map[string]any{"count": count},
		})
	}
	return count, nil
}

// Delete removes a single notification owned by userID and notifies their
// live devices with a NOTIFICATION_DELETED control event.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if err := s.storage.Delete(ctx, id, userID); err != nil {
		return err
	}

	if s.registry.IsConnected(userID) {
		s.engine.PushToUser(ctx, userID, notification.Payload{
			Type:    notification.TypeDeleted,
			Message: "notification deleted",
			UserID:  userID,
			Data:    map[string]any{"notification_id": id},
		})
	}
	return nil
}

// UnreadCount returns the user's unread notification count and pushes it to
// their live devices as an UNREAD_COUNT_UPDATE control event.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.storage.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.registry.IsConnected(userID) {
		s.engine.PushToUser(ctx, userID, notification.Payload{
			Type:    notification.TypeUnreadCount,
			Message: "unread count update",
			UserID:  userID,
			Data:    map[string]any{"unread_count": count},
		})
	}
	return count, nil
}

// ConnectedUserCount reports the number of distinct users with at least one
// live connection. Used for operational visibility.
func (s *Service) ConnectedUserCount() int {
	return s.registry.UserCount()
}

// IsUserConnected reports whether the user has at least one live connection.
func (s *Service) IsUserConnected(userID string) bool {
	return s.registry.IsConnected(userID)
}

// Connections returns a snapshot of the user's live connection identifiers.
func (s *Service) Connections(userID string) []string {
	return s.registry.Connections(userID)
}
