package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifyhub/pkg/config"
	"github.com/dmitrymomot/notifyhub/pkg/delivery"
	"github.com/dmitrymomot/notifyhub/pkg/email"
	"github.com/dmitrymomot/notifyhub/pkg/gateway"
	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/mailqueue"
	"github.com/dmitrymomot/notifyhub/pkg/notification"
	"github.com/dmitrymomot/notifyhub/pkg/notifier"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
	"github.com/dmitrymomot/notifyhub/pkg/registry"
	"github.com/dmitrymomot/notifyhub/pkg/session"

	redisclient "github.com/dmitrymomot/notifyhub/pkg/redis"
)

type appConfig struct {
	// StorageDriver selects the durable store: "postgres" or "memory".
	// Memory exists for local development and tests only.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`

	// MailEnabled turns on the Redis-backed email side channel.
	MailEnabled bool `env:"MAIL_ENABLED" envDefault:"false"`

	// MailRecipientDomain builds recipient addresses as <user_id>@<domain>.
	// TODO: replace with a lookup against the accounts service once it
	// exposes an email-by-user endpoint.
	MailRecipientDomain string `env:"MAIL_RECIPIENT_DOMAIN"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("service exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var logCfg logger.Config
	if err := config.Load(&logCfg); err != nil {
		return fmt.Errorf("load logger config: %w", err)
	}
	log := logger.NewFromConfig(logCfg, logger.WithAttr(logger.Component("notifyhub")))
	logger.SetAsDefault(log)

	var appCfg appConfig
	if err := config.Load(&appCfg); err != nil {
		return fmt.Errorf("load app config: %w", err)
	}

	reg := registry.New()
	eng := delivery.NewEngine(reg, delivery.WithLogger(log))
	sessions := session.NewHandler(reg, eng, session.WithLogger(log))

	healthProbes := map[string]func(context.Context) error{}

	var storage notification.Storage
	switch appCfg.StorageDriver {
	case "postgres":
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return fmt.Errorf("load postgres config: %w", err)
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		if err := pg.Migrate(ctx, pool, pgCfg, notification.Migrations, log); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		storage = notification.NewPGStorage(pool)
		healthProbes["postgres"] = pg.Healthcheck(pool)
		log.Info("using postgres notification storage")
	default:
		storage = notification.NewMemoryStorage()
		log.Warn("using in-memory notification storage, records are lost on restart")
	}

	svcOpts := []notifier.Option{notifier.WithLogger(log)}

	if appCfg.MailEnabled {
		var redisCfg redisclient.Config
		if err := config.Load(&redisCfg); err != nil {
			return fmt.Errorf("load redis config: %w", err)
		}
		client, err := redisclient.Connect(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		healthProbes["redis"] = redisclient.Healthcheck(client)

		enqueuer, err := mailqueue.NewEnqueuer(client, mailqueue.WithEnqueuerLogger(log))
		if err != nil {
			return fmt.Errorf("create mail enqueuer: %w", err)
		}
		svcOpts = append(svcOpts, notifier.WithSideChannel(enqueuer))

		sender, err := buildEmailSender(log)
		if err != nil {
			return fmt.Errorf("create email sender: %w", err)
		}

		worker, err := mailqueue.NewWorker(client, sender, recipientResolver(appCfg), mailqueue.WithWorkerLogger(log))
		if err != nil {
			return fmt.Errorf("create mail worker: %w", err)
		}
		if err := worker.Start(ctx); err != nil {
			return fmt.Errorf("start mail worker: %w", err)
		}
		defer worker.Stop()
	}

	svc := notifier.New(storage, eng, reg, svcOpts...)
	gw := gateway.New(svc, sessions, gateway.WithLogger(log))

	router := chi.NewRouter()
	router.Get("/health", healthHandler(healthProbes))
	router.Mount("/", gw.Router())

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return fmt.Errorf("load http config: %w", err)
	}
	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, router)
}

func buildEmailSender(log *slog.Logger) (email.EmailSender, error) {
	var cfg email.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if cfg.PostmarkServerToken == "" || cfg.PostmarkAccountToken == "" {
		log.Warn("postmark tokens missing, emails will be logged instead of sent")
		return email.NewDevSender(log), nil
	}
	return email.NewPostmarkClient(cfg)
}

func recipientResolver(cfg appConfig) mailqueue.RecipientResolver {
	return mailqueue.RecipientResolverFunc(func(ctx context.Context, userID string) (string, error) {
		if cfg.MailRecipientDomain == "" {
			return "", mailqueue.ErrNoRecipient
		}
		return fmt.Sprintf("%s@%s", userID, cfg.MailRecipientDomain), nil
	})
}

func healthHandler(probes map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for name, probe := range probes {
			if err := probe(r.Context()); err != nil {
				http.Error(w, fmt.Sprintf("%s: %v", name, err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
