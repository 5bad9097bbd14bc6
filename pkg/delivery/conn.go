package delivery

import "context"

// Conn is one live transport-level session, abstracted away from any specific
// wire protocol. Implementations must not block in Send: a slow or dead
// client is expected to fail fast (typically by dropping the message) so that
// fan-out to other connections is never held up.
type Conn interface {
	// ID returns the opaque identifier unique to this live session.
	ID() string

	// Send pushes one outbound event to the client. Errors are contained by
	// the engine; they never abort a fan-out.
	Send(ctx context.Context, e Event) error
}
