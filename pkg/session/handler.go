package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/delivery"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/registry"
)

// Handler manages the connect/subscribe/unsubscribe/disconnect lifecycle that
// keeps the connection registry accurate. It is the exclusive owner of every
// connection for the connection's lifetime; the registry and delivery engine
// only hold references it maintains.
type Handler struct {
	registry *registry.Registry
	engine   *delivery.Engine
	log      *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*conn // connection ID -> live session
}

type conn struct {
	transport delivery.Conn
	state     State
	users     map[string]struct{} // identities this connection is subscribed under
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithClock overrides the timestamp source for emitted events. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler creates a session lifecycle handler over the given registry and
// delivery engine.
func NewHandler(reg *registry.Registry, engine *delivery.Engine, opts ...Option) *Handler {
	h := &Handler{
		registry: reg,
		engine:   engine,
		log:      slog.Default(),
		now:      time.Now,
		sessions: make(map[string]*conn),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnConnect registers a freshly opened transport connection. The connection
// starts in CONNECTED with no identity bound and no registry mutation.
func (h *Handler) OnConnect(transport delivery.Conn) {
	if transport == nil || transport.ID() == "" {
		return
	}

	h.mu.Lock()
	h.sessions[transport.ID()] = &conn{
		transport: transport,
		state:     StateConnected,
		users:     make(map[string]struct{}),
	}
	h.mu.Unlock()

	h.engine.AddConnection(transport)
	h.log.Info("client connected", logger.ConnectionID(transport.ID()))
}

// OnSubscribe binds a user identity to the connection and registers it for
// delivery. On success a subscription acknowledgment is emitted to the
// originating connection only. On validation failure an error event is
// emitted instead and the connection stays CONNECTED so the client may retry
// with a valid identifier.
func (h *Handler) OnSubscribe(ctx context.Context, connID, userID string) {
	h.mu.Lock()
	sess, ok := h.sessions[connID]
	h.mu.Unlock()
	if !ok {
		// Subscribe racing a disconnect is a valid sequence, not a failure.
		h.log.Warn("subscribe for unknown connection", logger.ConnectionID(connID))
		return
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		h.log.Warn("invalid user id provided for subscription", logger.ConnectionID(connID))
		h.emit(ctx, sess.transport, delivery.NewErrorEvent("invalid user id", h.now()))
		return
	}

	if err := h.registry.Register(userID, connID); err != nil {
		h.log.Warn("subscription rejected",
			logger.ConnectionID(connID),
			logger.UserID(userID),
			logger.Error(err),
		)
		h.emit(ctx, sess.transport, delivery.NewErrorEvent("invalid user id", h.now()))
		return
	}

	h.mu.Lock()
	sess.users[userID] = struct{}{}
	sess.state = StateSubscribed
	h.mu.Unlock()

	h.log.Info("user subscribed", logger.UserID(userID), logger.ConnectionID(connID))
	h.emit(ctx, sess.transport, delivery.NewSubscribedEvent(userID, h.now()))
}

// OnUnsubscribe removes the connection/user pair from the registry.
// Idempotent: unknown pairs are a no-op. When the connection holds no
// remaining identities it falls back to CONNECTED.
func (h *Handler) OnUnsubscribe(ctx context.Context, connID, userID string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		h.log.Warn("invalid user id provided for unsubscription", logger.ConnectionID(connID))
		return
	}

	if err := h.registry.Unregister(userID, connID); err != nil {
		h.log.Warn("unsubscribe ignored",
			logger.ConnectionID(connID),
			logger.UserID(userID),
			logger.Error(err),
		)
		return
	}

	h.mu.Lock()
	if sess, ok := h.sessions[connID]; ok {
		delete(sess.users, userID)
		if len(sess.users) == 0 {
			sess.state = StateConnected
		}
	}
	h.mu.Unlock()

	h.log.Info("user unsubscribed", logger.UserID(userID), logger.ConnectionID(connID))
}

// OnDisconnect fires on raw transport disconnect, regardless of the current
// state. The connection is removed from every registry entry it appears in
// and transitions to TERMINATED; no further transitions are possible for
// this connection identifier. Safe to call for connections that never
// subscribed.
func (h *Handler) OnDisconnect(connID string) {
	h.registry.UnregisterConnection(connID)
	h.engine.RemoveConnection(connID)

	h.mu.Lock()
	if sess, ok := h.sessions[connID]; ok {
		sess.state = StateTerminated
		delete(h.sessions, connID)
	}
	h.mu.Unlock()

	h.log.Info("client disconnected", logger.ConnectionID(connID))
}

// HandleMessage decodes one inbound client message and dispatches it.
// Malformed payloads produce an error event on the originating connection
// only; they are never fatal to the service.
func (h *Handler) HandleMessage(ctx context.Context, connID string, raw []byte) {
	h.mu.Lock()
	sess, ok := h.sessions[connID]
	h.mu.Unlock()
	if !ok {
		h.log.Warn("message from unknown connection", logger.ConnectionID(connID))
		return
	}

	msg, err := parseMessage(raw)
	if err != nil {
		h.log.Warn("rejected inbound message",
			logger.ConnectionID(connID),
			logger.Error(err),
		)
		h.emit(ctx, sess.transport, delivery.NewErrorEvent(err.Error(), h.now()))
		return
	}

	switch msg.Action {
	case ActionSubscribe:
		h.OnSubscribe(ctx, connID, msg.UserID)
	case ActionUnsubscribe:
		h.OnUnsubscribe(ctx, connID, msg.UserID)
	}
}

// State returns the lifecycle state of a connection. Terminated or unknown
// connections report StateTerminated.
func (h *Handler) State(connID string) State {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sess, ok := h.sessions[connID]; ok {
		return sess.state
	}
	return StateTerminated
}

func (h *Handler) emit(ctx context.Context, transport delivery.Conn, e delivery.Event) {
	if err := transport.Send(ctx, e); err != nil {
		h.log.Warn("failed to emit session event",
			logger.ConnectionID(transport.ID()),
			logger.Error(err),
		)
	}
}
