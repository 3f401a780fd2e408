// Package config loads the mailer configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/qturkey/listmailer/internal/dispatch"
	"github.com/qturkey/listmailer/internal/gmail"
	"github.com/qturkey/listmailer/internal/ingest"
	"github.com/qturkey/listmailer/pkg/db"
	"github.com/qturkey/listmailer/pkg/logger"
	"github.com/qturkey/listmailer/pkg/mailer"
	"github.com/qturkey/listmailer/pkg/mailer/resend"
	"github.com/qturkey/listmailer/pkg/mailer/smtp"
	"github.com/qturkey/listmailer/pkg/redis"
)

// ErrInvalid is returned when the environment parses but is inconsistent.
var ErrInvalid = errors.New("config: invalid configuration")

const (
	ProviderGmail  = "gmail"
	ProviderSMTP   = "smtp"
	ProviderResend = "resend"

	ThrottleLocal = "local"
	ThrottleRedis = "redis"
)

type Config struct {
	DB       db.Config
	Redis    redis.Config
	Log      logger.Config
	Ingest   ingest.Config
	Dispatch dispatch.Config
	Mail     Mail
	Gmail    gmail.Config
	SMTP     smtp.Config
	Resend   resend.Config
	HTTP     HTTP
}

// Mail selects the outbound provider and the sender identity.
type Mail struct {
	Provider string `env:"MAIL_PROVIDER" envDefault:"gmail"`
	// Address is the delegated mailbox that is polled and sent from.
	Address  string `env:"EMAIL_ADDRESS,required"`
	FromName string `env:"MAIL_FROM_NAME" envDefault:"QTurkey"`
}

// From formats the From header of outgoing mail.
func (m Mail) From() string {
	return mailer.Recipient(m.FromName, m.Address)
}

type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":5001"`
	Username        string        `env:"WEBAPP_USERNAME"`
	Password        string        `env:"WEBAPP_PASSWORD"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load reads optional dotenv files (.env when none are given), then parses
// and validates the environment. Variables already set take precedence.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load dotenv: %w", err)
	}
	return parse(env.ToMap(os.Environ()))
}

func parse(environ map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environ})
	if err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c Config) Validate() error {
	var errs []error

	if _, err := mail.ParseAddress(c.Mail.Address); err != nil {
		errs = append(errs, fmt.Errorf("EMAIL_ADDRESS: %w", err))
	}

	switch c.Mail.Provider {
	case ProviderGmail:
		if c.Gmail.CredentialsFile == "" {
			errs = append(errs, errors.New("GMAIL_CREDENTIALS_FILE is required for the gmail provider"))
		}
	case ProviderSMTP:
		if c.SMTP.Addr == "" {
			errs = append(errs, errors.New("SMTP_ADDR is required for the smtp provider"))
		}
	case ProviderResend:
		if c.Resend.APIKey == "" {
			errs = append(errs, errors.New("RESEND_API_KEY is required for the resend provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_PROVIDER: unknown provider %q", c.Mail.Provider))
	}

	if c.Dispatch.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("DISPATCH_BATCH_SIZE must be positive, got %d", c.Dispatch.BatchSize))
	}
	if c.Dispatch.ContinuationDelay <= 0 {
		errs = append(errs, errors.New("DISPATCH_CONTINUATION_DELAY must be positive"))
	}
	if c.Dispatch.SendInterval < 0 {
		errs = append(errs, errors.New("DISPATCH_SEND_INTERVAL must not be negative"))
	}

	switch c.Dispatch.Throttle {
	case ThrottleLocal:
	case ThrottleRedis:
		if !c.Redis.Enabled() {
			errs = append(errs, errors.New("REDIS_URL is required for the redis throttle"))
		}
	default:
		errs = append(errs, fmt.Errorf("DISPATCH_THROTTLE: unknown throttle %q", c.Dispatch.Throttle))
	}

	if (c.HTTP.Username == "") != (c.HTTP.Password == "") {
		errs = append(errs, errors.New("WEBAPP_USERNAME and WEBAPP_PASSWORD must be set together"))
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalid}, errs...)...)
}

// Warnings lists settings that are valid but probably unintended.
func (c Config) Warnings() []string {
	var w []string
	if len(c.AuthorizedSenders()) == 0 {
		w = append(w, "AUTHORIZED_SENDERS is empty: templates are stored but no job is ever scheduled")
	}
	if c.HTTP.Username == "" {
		w = append(w, "WEBAPP_USERNAME is empty: /healthz refuses every request")
	}
	if c.Dispatch.SendInterval == 0 {
		w = append(w, "DISPATCH_SEND_INTERVAL is 0: sends are not throttled")
	}
	return w
}

// AuthorizedSenders returns the normalized allow-list. Entries may be
// separated by any run of whitespace.
func (c Config) AuthorizedSenders() []string {
	out := make([]string, 0, len(c.Ingest.AuthorizedSenders))
	for _, s := range c.Ingest.AuthorizedSenders {
		for _, f := range strings.Fields(s) {
			out = append(out, strings.ToLower(f))
		}
	}
	return out
}
