// Package mailer delivers candidate messages over SMTP.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spigell/lumino/internal/candidate"
	"github.com/spigell/lumino/internal/failure"
)

const (
	DefaultHost = "smtp.gmail.com"
	DefaultPort = 587
)

type Config struct {
	Host           string
	Port           int
	SenderEmail    string
	SenderPassword string
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type dialFunc func(cfg Config) (sender, error)

// SMTP sends one message per Send call using STARTTLS and PLAIN auth.
type SMTP struct {
	cfg       Config
	configErr error
	dial      dialFunc
	logger    *zap.Logger
}

// New builds the transport. Missing credentials do not fail here; every Send
// returns the configuration error instead so that runs still complete.
func New(cfg Config, logger *zap.Logger) *SMTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	cfg.SenderEmail = strings.TrimSpace(cfg.SenderEmail)

	return &SMTP{cfg: cfg, configErr: cfg.Check(), dial: dialSMTP, logger: logger}
}

// Check reports missing or malformed sender credentials.
func (c Config) Check() error {
	cerr := &failure.ConfigurationError{}
	if strings.TrimSpace(c.SenderEmail) == "" || c.SenderPassword == "" {
		cerr.Add("SENDER_EMAIL and SENDER_PASSWORD must be set")
	} else if !candidate.ValidEmail(c.SenderEmail) {
		cerr.Add(fmt.Sprintf("sender email %q is not a valid address", c.SenderEmail))
	}
	return cerr.OrNil()
}

func (s *SMTP) Send(ctx context.Context, msg candidate.EmailMessage) error {
	if s.configErr != nil {
		return s.configErr
	}

	m := mail.NewMsg()
	if err := m.From(s.cfg.SenderEmail); err != nil {
		return fmt.Errorf("%w: set sender: %w", failure.ErrTransport, err)
	}
	if err := m.To(msg.ToEmail); err != nil {
		return fmt.Errorf("%w: set recipient: %w", failure.ErrTransport, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := s.dial(s.cfg)
	if err != nil {
		return fmt.Errorf("%w: create smtp client: %w", failure.ErrTransport, err)
	}

	s.logger.Debug("sending email", zap.String("host", s.cfg.Host), zap.Int("port", s.cfg.Port), zap.String("to", msg.ToEmail))

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%w: %w", failure.ErrTransport, err)
	}
	return nil
}

func dialSMTP(cfg Config) (sender, error) {
	return mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SenderEmail),
		mail.WithPassword(cfg.SenderPassword),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
}
