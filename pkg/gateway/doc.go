// Package gateway exposes the notification subsystem over HTTP: REST
// endpoints for history, unread counts, read marks and deletion, plus an
// SSE endpoint that binds each open response to the session lifecycle so
// pushes reach the browser the moment they are persisted.
package gateway
