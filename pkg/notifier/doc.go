// Package notifier exposes the synchronous notification service used by
// producers (posts, comments, follows, ...).
//
// Every composite operation follows the same ordering invariant: the durable
// store write happens before the real-time push. Store errors propagate to
// the producer unchanged; push errors never do. Read-side helpers pair a
// durable operation with a live-sync control event so multiple devices of
// one user stay consistent.
package notifier
