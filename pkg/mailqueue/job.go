package mailqueue

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/notification"
)

// DefaultQueueKey is the Redis list the enqueuer and worker share.
const DefaultQueueKey = "notifyhub:mail"

// EmailJob is the wire format of one queued email digest. Jobs carry the
// notification content, not a rendered email, so the rendering logic can
// change without draining the queue.
type EmailJob struct {
	NotificationID string                 `json:"notification_id"`
	UserID         string                 `json:"user_id"`
	Type           notification.EventType `json:"type"`
	Message        string                 `json:"message"`
	ActorName      string                 `json:"actor_name,omitempty"`
	EnqueuedAt     time.Time              `json:"enqueued_at"`
	Attempts       int                    `json:"attempts"`
}

// subjects maps event types to email subject lines.
var subjects = map[notification.EventType]string{
	notification.TypeLike:           "Someone liked your post",
	notification.TypeComment:        "New comment on your post",
	notification.TypeFollow:         "You have a new follower",
	notification.TypeMention:        "You were mentioned",
	notification.TypePostShared:     "Your post was shared",
	notification.TypePageInvitation: "You were invited to a page",
	notification.TypePageFollow:     "Your page has a new follower",
	notification.TypeMessage:        "You have a new message",
	notification.TypeBookmark:       "Your post was bookmarked",
}

// Subject returns the subject line for the job's event type.
func (j EmailJob) Subject() string {
	if s, ok := subjects[j.Type]; ok {
		return s
	}
	return "You have a new notification"
}

// BodyHTML renders a minimal HTML body from the notification content.
func (j EmailJob) BodyHTML() string {
	if j.ActorName != "" {
		return fmt.Sprintf("<p><strong>%s</strong></p><p>%s</p>", j.ActorName, j.Message)
	}
	return fmt.Sprintf("<p>%s</p>", j.Message)
}
