package registry

import "errors"

var (
	// ErrEmptyUserID is returned when a blank user identifier is provided.
	ErrEmptyUserID = errors.New("registry: empty user id")

	// ErrEmptyConnectionID is returned when a blank connection identifier is provided.
	ErrEmptyConnectionID = errors.New("registry: empty connection id")
)
