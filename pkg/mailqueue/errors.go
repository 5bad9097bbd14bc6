package mailqueue

import "errors"

var (
	ErrNilClient      = errors.New("mailqueue: redis client is nil")
	ErrNilSender      = errors.New("mailqueue: email sender is nil")
	ErrNilResolver    = errors.New("mailqueue: recipient resolver is nil")
	ErrEnqueueFailed  = errors.New("mailqueue: failed to enqueue job")
	ErrMalformedJob   = errors.New("mailqueue: malformed job payload")
	ErrNoRecipient    = errors.New("mailqueue: no email recipient for user")
	ErrAlreadyStarted = errors.New("mailqueue: worker already started")
)
