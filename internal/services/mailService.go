package services

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/config"
)

// Message is a plain-text email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers emails
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns the SMTP mailer when SMTP is configured and the log
// mailer otherwise.
func NewMailer(cfg *config.Config, logger *zap.Logger) Mailer {
	if cfg.IsEmailConfigured() {
		return NewSMTPMailer(cfg.Email)
	}
	logger.Warn("SMTP not configured, emails will be logged instead of sent")
	return NewLogMailer(logger)
}

// SMTPMailer sends emails through an SMTP relay
type SMTPMailer struct {
	config config.EmailConfig
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{config: cfg}
}

// Send sends msg using SMTP. net/smtp has no context support, so ctx is only
// checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", m.config.SMTPUsername, m.config.SMTPPassword, m.config.SMTPHost)
	}

	body := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		m.config.FromName, m.config.FromEmail, msg.To, msg.Subject, msg.Body))

	addr := m.config.SMTPHost + ":" + m.config.SMTPPort
	if err := smtp.SendMail(addr, auth, m.config.FromEmail, []string{msg.To}, body); err != nil {
		return errors.Wrap(err, "failed to send email")
	}
	return nil
}

// LogMailer writes emails to the log. Used in development.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}
