// internal/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"

	"github.com/annolab/annolab/internal/config"
	gomail "gopkg.in/gomail.v2"
)

// SMTP sends HTML mail through the deployment's SMTP relay. Sends are
// bounded by the caller's context; an expired context abandons the dial and
// reports the context error.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

func New(cfg config.SMTPConfig) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTP) Send(ctx context.Context, to, subject, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send mail to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
