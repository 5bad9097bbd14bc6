package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/notification"
)

// Enqueuer pushes email jobs onto the Redis list. It implements the
// notification service's side channel, so persisted notifications flow into
// the mail queue without the service knowing about Redis.
type Enqueuer struct {
	client   redis.UniversalClient
	queueKey string
	log      *slog.Logger
	now      func() time.Time
}

// EnqueuerOption configures an Enqueuer.
type EnqueuerOption func(*Enqueuer)

// WithQueueKey overrides the Redis list key.
func WithQueueKey(key string) EnqueuerOption {
	return func(e *Enqueuer) {
		if key != "" {
			e.queueKey = key
		}
	}
}

// WithEnqueuerLogger sets the enqueuer logger.
func WithEnqueuerLogger(log *slog.Logger) EnqueuerOption {
	return func(e *Enqueuer) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEnqueuer creates a Redis-backed email job enqueuer.
func NewEnqueuer(client redis.UniversalClient, opts ...EnqueuerOption) (*Enqueuer, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	e := &Enqueuer{
		client:   client,
		queueKey: DefaultQueueKey,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Deliver queues an email digest for the persisted notification. Control
// events never reach email: only domain notifications are worth a message in
// someone's inbox.
func (e *Enqueuer) Deliver(ctx context.Context, p notification.Payload) error {
	if !p.Type.IsDomainType() {
		return nil
	}

	job := EmailJob{
		NotificationID: p.ID,
		UserID:         p.UserID,
		Type:           p.Type,
		Message:        p.Message,
		ActorName:      p.ActorName,
		EnqueuedAt:     e.now().UTC(),
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return errors.Join(ErrEnqueueFailed, err)
	}

	if err := e.client.LPush(ctx, e.queueKey, raw).Err(); err != nil {
		return errors.Join(ErrEnqueueFailed, err)
	}

	e.log.Debug("email job enqueued",
		logger.NotificationID(p.ID),
		logger.UserID(p.UserID),
		logger.EventType(string(p.Type)),
	)
	return nil
}
