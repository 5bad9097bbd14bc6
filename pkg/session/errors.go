package session

import "errors"

var (
	// ErrMalformedMessage is returned for inbound payloads that cannot be decoded.
	ErrMalformedMessage = errors.New("session: malformed message")

	// ErrUnknownAction is returned for inbound messages with an unrecognized action.
	ErrUnknownAction = errors.New("session: unknown action")

	// ErrInvalidUserID is returned when the user identifier is empty after trimming.
	ErrInvalidUserID = errors.New("session: invalid user id")

	// ErrUnknownConnection is returned when operating on a connection that never
	// connected or has already terminated.
	ErrUnknownConnection = errors.New("session: unknown connection")
)
