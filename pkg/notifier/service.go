package notifier

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/notifyhub/pkg/delivery"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notification"
	"github.com/dmitrymomot/notifyhub/pkg/registry"
)

// Service is the persistence coordinator: it composes the durable store and
// the delivery engine into "durable + push" operations with a fixed ordering
// invariant — never push before persisting. A client refreshing history right
// after receiving a push must always find the record.
type Service struct {
	storage  notification.Storage
	engine   *delivery.Engine
	registry *registry.Registry
	side     SideChannel
	log      *slog.Logger
}

// SideChannel is an optional best-effort secondary delivery path (e.g. the
// outbound email queue). Failures are logged, never propagated.
type SideChannel interface {
	Deliver(ctx context.Context, p notification.Payload) error
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSideChannel attaches a best-effort secondary delivery channel invoked
// after successful persistence.
func WithSideChannel(side SideChannel) Option {
	return func(s *Service) {
		s.side = side
	}
}

// New creates the notification service exposed to producers.
func New(storage notification.Storage, engine *delivery.Engine, reg *registry.Registry, opts ...Option) *Service {
	s := &Service{
		storage:  storage,
		engine:   engine,
		registry: reg,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAndPush durably stores the notification, then pushes the persisted
// payload (including its new identifier) to the target user's live
// connections. If the store write fails, no push occurs and the error
// propagates to the caller unchanged — the notification simply did not
// happen. A persisted notification with zero live connections is not an
// error: storage is the source of truth and push is a best-effort accelerant.
func (s *Service) CreateAndPush(ctx context.Context, p notification.Payload) (notification.Payload, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return notification.Payload{}, notification.ErrEmptyUserID
	}

	persisted, err := s.storage.Create(ctx, p)
	if err != nil {
		return notification.Payload{}, err
	}

	s.log.Debug("notification persisted",
		logger.NotificationID(persisted.ID),
		logger.UserID(persisted.UserID),
		logger.EventType(string(persisted.Type)),
	)

	s.engine.PushToUser(ctx, persisted.UserID, persisted)
	s.deliverSide(ctx, persisted)
	return persisted, nil
}

// CreateAndPushToUsers persists one record per user identifier in parallel
// (independent transactions), then fans out push to exactly the users for
// which persistence succeeded. Partial success is reported as the list of
// created records together with the joined store errors; the caller decides
// whether partial success is acceptable.
func (s *Service) CreateAndPushToUsers(ctx context.Context, userIDs []string, template notification.Payload) ([]notification.Payload, error) {
	if len(userIDs) == 0 {
		s.log.Warn("no user ids provided for bulk notification")
		return []notification.Payload{}, nil
	}

	created, err := s.persistForUsers(ctx, userIDs, template)
	for _, p := range created {
		s.engine.PushToUser(ctx, p.UserID, p)
		s.deliverSide(ctx, p)
	}
	return created, err
}

// BroadcastAndPersist persists one record per *currently connected* user (a
// snapshot taken at call time), then pushes to each of them. Broadcasting to
// users with no live session would create orphan records no one asked for,
// so offline users deliberately get nothing.
func (s *Service) BroadcastAndPersist(ctx context.Context, template notification.Payload) ([]notification.Payload, error) {
	userIDs := s.registry.Users()
	if len(userIDs) == 0 {
		s.log.Warn("no connected users to broadcast to")
		return []notification.Payload{}, nil
	}

	created, err := s.persistForUsers(ctx, userIDs, template)
	for _, p := range created {
		s.engine.PushToUser(ctx, p.UserID, p)
	}
	return created, err
}

// PushToUser pushes a transient notification without persistence.
func (s *Service) PushToUser(ctx context.Context, userID string, p notification.Payload) {
	s.engine.PushToUser(ctx, userID, p)
}

// PushToUsers pushes a transient notification to several users without
// persistence.
func (s *Service) PushToUsers(ctx context.Context, userIDs []string, p notification.Payload) {
	s.engine.PushToUsers(ctx, userIDs, p)
}

// Broadcast pushes a transient notification to all connected users without
// persistence.
func (s *Service) Broadcast(ctx context.Context, p notification.Payload) {
	s.engine.Broadcast(ctx, p)
}

// persistForUsers stores one copy of the template per user concurrently and
// collects per-user outcomes. A failing write for one user never aborts the
// writes for the rest.
func (s *Service) persistForUsers(ctx context.Context, userIDs []string, template notification.Payload) ([]notification.Payload, error) {
	type outcome struct {
		payload notification.Payload
		err     error
		userID  string
	}

	results := make(chan outcome, len(userIDs))
	for _, userID := range userIDs {
		go func(userID string) {
			p := template
			p.UserID = userID
			persisted, err := s.storage.Create(ctx, p)
			results <- outcome{payload: persisted, err: err, userID: userID}
		}(userID)
	}

	created := make([]notification.Payload, 0, len(userIDs))
	var errs []error
	for range userIDs {
		res := <-results
		if res.err != nil {
			s.log.Error("failed to persist notification",
				logger.UserID(res.userID),
				logger.EventType(string(template.Type)),
				logger.Error(res.err),
			)
			errs = append(errs, res.err)
			continue
		}
		created = append(created, res.payload)
	}
	return created, errors.Join(errs...)
}

func (s *Service) deliverSide(ctx context.Context, p notification.Payload) {
	if s.side == nil {
		return
	}
	if err := s.side.Deliver(ctx, p); err != nil {
		s.log.Warn("side channel delivery failed",
			logger.NotificationID(p.ID),
			logger.UserID(p.UserID),
			logger.Error(err),
		)
	}
}
