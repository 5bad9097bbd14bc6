package notification

import (
	"strings"
	"time"
)

// EventType is the closed set of notification event types. Producers pick one
// of the domain types; the control types are reserved for server-originated
// sync messages and never persisted.
type EventType string

const (
	TypeLike           EventType = "LIKE"
	TypeComment        EventType = "COMMENT"
	TypeFollow         EventType = "FOLLOW"
	TypeMention        EventType = "MENTION"
	TypePostShared     EventType = "POST_SHARED"
	TypePageInvitation EventType = "PAGE_INVITATION"
	TypePageFollow     EventType = "PAGE_FOLLOW"
	TypeMessage        EventType = "MESSAGE"
	TypeBookmark       EventType = "BOOKMARK"
	TypeCustom         EventType = "CUSTOM"
)

// Control types carried on live-sync pushes so that other open devices of the
// same user stay consistent with durable state.
const (
	TypeTest        EventType = "TEST"
	TypeHistory     EventType = "NOTIFICATION_HISTORY"
	TypeRead        EventType = "NOTIFICATIONS_READ"
	TypeDeleted     EventType = "NOTIFICATION_DELETED"
	TypeUnreadCount EventType = "UNREAD_COUNT_UPDATE"
)

var domainTypes = map[EventType]struct{}{
	TypeLike:           {},
	TypeComment:        {},
	TypeFollow:         {},
	TypeMention:        {},
	TypePostShared:     {},
	TypePageInvitation: {},
	TypePageFollow:     {},
	TypeMessage:        {},
	TypeBookmark:       {},
	TypeCustom:         {},
}

// IsDomainType reports whether t is one of the persistable producer-facing
// event types (as opposed to a control type).
func (t EventType) IsDomainType() bool {
	_, ok := domainTypes[t]
	return ok
}

// Payload is the unit of delivery. A payload is immutable once constructed;
// persistence and push each operate on their own copy (value semantics).
type Payload struct {
	ID          string         `json:"id,omitempty"` // set only after the payload has been persisted
	Type        EventType      `json:"type"`
	Message     string         `json:"message"`
	UserID      string         `json:"user_id"`
	ActorID     string         `json:"actor_id,omitempty"`
	ActorName   string         `json:"actor_name,omitempty"`
	ActorAvatar string         `json:"actor_avatar,omitempty"`
	Data        map[string]any `json:"data,omitempty"` // producer-specific extras
	Read        bool           `json:"read"`           // meaningful only for persisted records
	CreatedAt   time.Time      `json:"created_at"`
}

// Validate checks the payload at the producer boundary. The user identifier
// is validated separately by targeted operations since broadcast payloads
// carry none.
func (p Payload) Validate() error {
	if !p.Type.IsDomainType() {
		return ErrInvalidEventType
	}
	if strings.TrimSpace(p.Message) == "" {
		return ErrEmptyMessage
	}
	return nil
}
