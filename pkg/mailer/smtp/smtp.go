// Package smtp delivers mail to an SMTP submission server.
package smtp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/qturkey/listmailer/pkg/mailer"
)

// Config holds SMTP submission settings.
type Config struct {
	Addr     string `env:"SMTP_ADDR" envDefault:"localhost:587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
}

// sendFunc matches gosmtp.SendMail.
type sendFunc func(addr string, a sasl.Client, from string, to []string, r io.Reader) error

// Sender implements mailer.Sender over SMTP with STARTTLS when offered.
type Sender struct {
	send sendFunc
	cfg  Config
}

// New creates an SMTP sender.
func New(cfg Config) *Sender {
	return &Sender{cfg: cfg, send: gosmtp.SendMail}
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	raw, err := mailer.BuildMIME(email)
	if err != nil {
		return err
	}

	from, err := mail.ParseAddress(email.From)
	if err != nil {
		return fmt.Errorf("smtp: parse sender: %w", err)
	}

	rcpts := make([]string, 0, len(email.To))
	for _, to := range email.To {
		addr, err := mail.ParseAddress(to)
		if err != nil {
			return fmt.Errorf("smtp: parse recipient: %w", err)
		}
		rcpts = append(rcpts, addr.Address)
	}

	var auth sasl.Client
	if s.cfg.Username != "" {
		auth = sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.cfg.Addr, auth, from.Address, rcpts, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("smtp: failed to send email: %w", err)
	}
	return nil
}
