package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notification"
	"github.com/dmitrymomot/notifyhub/pkg/notifier"
	"github.com/dmitrymomot/notifyhub/pkg/session"
)

const (
	userIDHeader     = "X-User-ID"
	defaultLimit     = 20
	streamBufferSize = 64
)

// Gateway is the HTTP surface of the notification service: REST endpoints
// for the read side and an SSE endpoint that turns each HTTP connection
// into a live delivery target.
type Gateway struct {
	svc      *notifier.Service
	sessions *session.Handler
	log      *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

// New creates the HTTP gateway.
func New(svc *notifier.Service, sessions *session.Handler, opts ...Option) *Gateway {
	g := &Gateway{
		svc:      svc,
		sessions: sessions,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Router mounts all notification endpoints.
func (g *Gateway) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", g.handleHistory)
		r.Get("/unread-count", g.handleUnreadCount)
		r.Patch("/read", g.handleMarkAllRead)
		r.Delete("/{id}", g.handleDelete)
		r.Post("/test", g.handleTest)
		r.Get("/stream", g.handleStream)
	})

	return r
}

func userIDFrom(r *http.Request) (string, error) {
	userID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if userID == "" {
		return "", ErrMissingUserID
	}
	return userID, nil
}

func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := g.svc.History(r.Context(), userID, limit)
	if err != nil {
		g.log.Error("failed to load notification history", logger.UserID(userID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"notifications": records,
		"count":         len(records),
	})
}

func (g *Gateway) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := g.svc.UnreadCount(r.Context(), userID)
	if err != nil {
		g.log.Error("failed to count unread notifications", logger.UserID(userID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to count unread notifications")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

func (g *Gateway) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := g.svc.MarkAllRead(r.Context(), userID)
	if err != nil {
		g.log.Error("failed to mark notifications read", logger.UserID(userID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to mark notifications as read")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (g *Gateway) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")

	switch err := g.svc.Delete(r.Context(), id, userID); {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
	case errors.Is(err, notification.ErrNotificationNotFound):
		respondError(w, http.StatusNotFound, "notification not found")
	case errors.Is(err, notification.ErrAccessDenied):
		respondError(w, http.StatusForbidden, "notification belongs to another user")
	default:
		g.log.Error("failed to delete notification",
			logger.NotificationID(id), logger.UserID(userID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to delete notification")
	}
}

// handleTest pushes a transient TEST event to the caller's live connections
// so clients can verify their stream end to end. Nothing is persisted.
func (g *Gateway) handleTest(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	g.svc.PushToUser(r.Context(), userID, notification.Payload{
		Type:    notification.TypeTest,
		Message: "test notification",
		UserID:  userID,
	})
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// handleStream upgrades the request to a server-sent event stream and runs
// the full session lifecycle for it: connect, subscribe with the caller's
// user id, pump events, and tear everything down when the client goes away.
func (g *Gateway) handleStream(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, ErrStreamingUnsupported.Error())
		return
	}

	conn := newStreamConn(uuid.NewString(), streamBufferSize)
	g.sessions.OnConnect(conn)
	defer g.sessions.OnDisconnect(conn.ID())

	g.sessions.OnSubscribe(r.Context(), conn.ID(), userID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	g.log.Info("event stream opened", logger.ConnectionID(conn.ID()), logger.UserID(userID))

	for {
		select {
		case <-r.Context().Done():
			g.log.Info("event stream closed", logger.ConnectionID(conn.ID()), logger.UserID(userID))
			return
		case event := <-conn.events:
			data, err := json.Marshal(event)
			if err != nil {
				g.log.Error("failed to encode stream event", logger.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
