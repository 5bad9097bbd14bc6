package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notification"
	"github.com/dmitrymomot/notifyhub/pkg/registry"
)

// Engine routes notification payloads to live connections. Delivery is
// best-effort and at-most-once per connection per call: no retry, no queuing,
// no acknowledgment tracking. Lost pushes are covered by the durable store,
// not by the engine.
type Engine struct {
	registry *registry.Registry
	conns    map[string]Conn
	mu       sync.RWMutex
	log      *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock overrides the timestamp source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a delivery engine resolving targets through reg.
func NewEngine(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		conns:    make(map[string]Conn),
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddConnection makes conn reachable for pushes. Called by the session
// handler on transport connect; the handler remains the owner of the
// connection for its lifetime.
func (e *Engine) AddConnection(conn Conn) {
	if conn == nil || conn.ID() == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conns[conn.ID()] = conn
}

// RemoveConnection forgets a connection. Safe for unknown ids.
func (e *Engine) RemoveConnection(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.conns, connID)
}

// PushToUser sends the payload, annotated with a server-assigned delivery
// timestamp, to every live connection of userID. A user with no live
// connections is a silent no-op; the notification is lost unless separately
// persisted. Per-connection send failures are logged and isolated: one
// broken connection never prevents delivery to the others and never
// surfaces to the caller.
func (e *Engine) PushToUser(ctx context.Context, userID string, p notification.Payload) {
	connIDs := e.registry.Connections(userID)
	if len(connIDs) == 0 {
		return
	}

	event := NewNotificationEvent(p, e.now())

	e.mu.RLock()
	targets := make([]Conn, 0, len(connIDs))
	for _, id := range connIDs {
		if conn, ok := e.conns[id]; ok {
			targets = append(targets, conn)
		}
	}
	e.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.Send(ctx, event); err != nil {
			// The transport likely just dropped; the session handler will
			// observe the disconnect and clean the registry.
			e.log.LogAttrs(ctx, slog.LevelWarn, "failed to push notification to connection",
				logger.UserID(userID),
				logger.ConnectionID(conn.ID()),
				logger.EventType(string(p.Type)),
				logger.Error(err),
			)
		}
	}
}

// PushToUsers applies PushToUser to each identifier. Partial failure for one
// user does not abort delivery to the rest.
func (e *Engine) PushToUsers(ctx context.Context, userIDs []string, p notification.Payload) {
	for _, userID := range userIDs {
		e.PushToUser(ctx, userID, p)
	}
}

// Broadcast pushes the payload to every user currently in the registry. The
// target set is a snapshot taken at call time; users connecting concurrently
// are not guaranteed to receive it.
func (e *Engine) Broadcast(ctx context.Context, p notification.Payload) {
	e.PushToUsers(ctx, e.registry.Users(), p)
}

// ConnectionCount returns the number of live connections known to the engine.
func (e *Engine) ConnectionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.conns)
}
