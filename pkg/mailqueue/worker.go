package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifyhub/pkg/email"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// RecipientResolver maps a user identifier to an email address. Returning
// ErrNoRecipient drops the job silently (user has no address or opted out).
type RecipientResolver interface {
	EmailFor(ctx context.Context, userID string) (string, error)
}

// RecipientResolverFunc adapts a function to the RecipientResolver interface.
type RecipientResolverFunc func(ctx context.Context, userID string) (string, error)

func (f RecipientResolverFunc) EmailFor(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// Worker consumes email jobs from the Redis list and hands them to the
// sender. Failed jobs are requeued with an attempt counter until maxAttempts.
type Worker struct {
	client      redis.UniversalClient
	sender      email.EmailSender
	resolver    RecipientResolver
	queueKey    string
	popTimeout  time.Duration
	maxAttempts int
	log         *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerQueueKey overrides the Redis list key.
func WithWorkerQueueKey(key string) WorkerOption {
	return func(w *Worker) {
		if key != "" {
			w.queueKey = key
		}
	}
}

// WithPopTimeout sets the blocking-pop timeout. Shorter values make
// shutdown more responsive at the cost of more Redis round trips.
func WithPopTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.popTimeout = d
		}
	}
}

// WithMaxAttempts bounds delivery retries per job.
func WithMaxAttempts(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithWorkerLogger sets the worker logger.
func WithWorkerLogger(log *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWorker creates a mail queue worker.
func NewWorker(client redis.UniversalClient, sender email.EmailSender, resolver RecipientResolver, opts ...WorkerOption) (*Worker, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if sender == nil {
		return nil, ErrNilSender
	}
	if resolver == nil {
		return nil, ErrNilResolver
	}

	w := &Worker{
		client:      client,
		sender:      sender,
		resolver:    resolver,
		queueKey:    DefaultQueueKey,
		popTimeout:  5 * time.Second,
		maxAttempts: 3,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start launches the consume loop in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		w.run(ctx)
	}()
	return nil
}

// Stop cancels the consume loop and waits for the in-flight job to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Worker) run(ctx context.Context) {
	w.log.Info("mail queue worker started", slog.String("queue", w.queueKey))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("mail queue worker stopped")
			return
		default:
		}

		res, err := w.client.BRPop(ctx, w.popTimeout, w.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			w.log.Error("mail queue pop failed", logger.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(w.popTimeout):
			}
			continue
		}
		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}

		w.process(ctx, []byte(res[1]))
	}
}

func (w *Worker) process(ctx context.Context, raw []byte) {
	var job EmailJob
	if err := json.Unmarshal(raw, &job); err != nil {
		// A job that cannot be decoded will never succeed; drop it.
		w.log.Error("dropping malformed email job", logger.Error(errors.Join(ErrMalformedJob, err)))
		return
	}

	addr, err := w.resolver.EmailFor(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, ErrNoRecipient) {
			w.log.Debug("skipping email job without recipient", logger.UserID(job.UserID))
			return
		}
		w.retry(ctx, job, err)
		return
	}

	err = w.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   addr,
		Subject:  job.Subject(),
		BodyHTML: job.BodyHTML(),
		Tag:      string(job.Type),
	})
	if err != nil {
		w.retry(ctx, job, err)
		return
	}

	w.log.Info("email notification sent",
		logger.NotificationID(job.NotificationID),
		logger.UserID(job.UserID),
		logger.EventType(string(job.Type)),
	)
}

func (w *Worker) retry(ctx context.Context, job EmailJob, cause error) {
	job.Attempts++
	if job.Attempts >= w.maxAttempts {
		w.log.Error("email job exhausted retries",
			logger.NotificationID(job.NotificationID),
			logger.UserID(job.UserID),
			logger.Error(cause),
		)
		return
	}

	raw, err := json.Marshal(job)
	if err != nil {
		w.log.Error("failed to requeue email job", logger.Error(err))
		return
	}
	if err := w.client.LPush(ctx, w.queueKey, raw).Err(); err != nil {
		w.log.Error("failed to requeue email job", logger.Error(err))
		return
	}

	w.log.Warn("email job requeued",
		logger.NotificationID(job.NotificationID),
		slog.Int("attempts", job.Attempts),
		logger.Error(cause),
	)
}
