package email

import (
	"context"
	"log/slog"
)

// LogSender implements EmailSender for local development: it logs the email
// instead of sending it.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) EmailSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "email (dev sender, not delivered)",
		"to", params.SendTo,
		"subject", params.Subject,
		"tag", params.Tag,
	)
	return nil
}
