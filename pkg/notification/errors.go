package notification

import "errors"

var (
	// ErrInvalidEventType is returned for payloads whose type is not one of the domain event types.
	ErrInvalidEventType = errors.New("notification: invalid event type")

	// ErrEmptyMessage is returned for payloads without a human-readable message.
	ErrEmptyMessage = errors.New("notification: empty message")

	// ErrEmptyUserID is returned when an operation requires a target user but none was given.
	ErrEmptyUserID = errors.New("notification: empty user id")

	// ErrNotificationNotFound is returned when a notification does not exist.
	ErrNotificationNotFound = errors.New("notification: not found")

	// ErrAccessDenied is returned when a user operates on a notification owned by someone else.
	ErrAccessDenied = errors.New("notification: access denied")

	// ErrStorageFailure wraps backend failures so callers can distinguish
	// store errors from validation errors.
	ErrStorageFailure = errors.New("notification: storage failure")
)
