// Package delivery implements best-effort fan-out of notification events to
// live connections.
//
// The engine resolves targets through the connection registry and sends each
// event independently per connection. There is deliberately no buffering,
// retry, or acknowledgment here: durable storage is the source of truth and
// real-time push is an accelerant on top of it.
package delivery
