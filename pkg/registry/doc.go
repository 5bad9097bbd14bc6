// Package registry maintains the in-memory mapping from logical users to
// their live, subscribed connections.
//
// The registry is intentionally ephemeral: it is rebuilt purely from live
// connection events and self-heals on the next disconnect or unsubscribe, so
// no reconciliation job is needed. A user appears in the registry if and only
// if at least one of their connections is currently subscribed; empty sets
// are garbage-collected immediately.
package registry
