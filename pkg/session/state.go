package session

// State is the lifecycle state of one connection.
//
// Transitions: CONNECTED -> SUBSCRIBED (successful subscribe),
// SUBSCRIBED -> CONNECTED (last unsubscribe), any -> TERMINATED (disconnect).
// TERMINATED is terminal: a reconnecting client is always a fresh CONNECTED
// connection with a new identifier; there is no session resumption.
type State string

const (
	StateConnected  State = "CONNECTED"  // transport open, no identity bound
	StateSubscribed State = "SUBSCRIBED" // identity bound, registered for delivery
	StateTerminated State = "TERMINATED" // removed from registry, transport closed
)
