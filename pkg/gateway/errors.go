package gateway

import "errors"

var (
	ErrMissingUserID        = errors.New("gateway: missing X-User-ID header")
	ErrSlowConsumer         = errors.New("gateway: client cannot keep up, event dropped")
	ErrStreamingUnsupported = errors.New("gateway: response writer does not support streaming")
)
