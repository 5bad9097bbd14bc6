// Package session implements the per-connection lifecycle state machine:
// CONNECTED -> SUBSCRIBED -> TERMINATED.
//
// The handler owns every connection from transport open to close and is the
// only writer of the connection registry. It tolerates races between
// disconnects and in-flight subscribe/unsubscribe operations: unknown
// connections and pairs are defensive no-ops, never failures.
package session
