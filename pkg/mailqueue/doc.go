// Package mailqueue bridges persisted notifications to email through a
// Redis list. The Enqueuer plugs into the notification service as its side
// channel; the Worker drains the list and sends digests via the configured
// email transport. Real-time delivery never waits on email.
package mailqueue
