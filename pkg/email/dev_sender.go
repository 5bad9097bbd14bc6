package email

import (
	"context"
	"log/slog"
)

// DevSender logs emails instead of sending them. Used when Postmark tokens
// are absent so local environments can exercise the full queue path.
type DevSender struct {
	log *slog.Logger
}

// NewDevSender creates a log-only sender.
func NewDevSender(log *slog.Logger) EmailSender {
	return &DevSender{log: log}
}

func (d *DevSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	d.log.InfoContext(ctx, "dev email sender: email not delivered",
		slog.String("send_to", params.SendTo),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
	)
	return nil
}
