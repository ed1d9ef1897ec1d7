package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// Mailer sends a notification email. Delivery is fire-and-forget; callers
// log failures but never roll back on them.
type Mailer interface {
	Send(ctx context.Context, to, subject, preview, htmlBody string) error
}

// NewMailer picks the SMTP implementation when an address is configured and
// a log-only fallback otherwise.
func NewMailer(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if strings.TrimSpace(cfg.SMTPAddr) == "" {
		logger.Warn("MAIL_SMTP_ADDR not provided; emails will only be logged")
		return &logMailer{logger: logger}
	}
	return &smtpMailer{cfg: cfg, logger: logger}
}

type smtpMailer struct {
	cfg    config.MailConfig
	logger *zap.Logger
}

func (m *smtpMailer) Send(_ context.Context, to, subject, preview, htmlBody string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	fmt.Fprintf(&msg, "X-Preview: %s\r\n", preview)
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		host := m.cfg.SMTPAddr
		if idx := strings.IndexByte(host, ':'); idx >= 0 {
			host = host[:idx]
		}
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)
	}

	if err := smtp.SendMail(m.cfg.SMTPAddr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	m.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

type logMailer struct {
	logger *zap.Logger
}

func (m *logMailer) Send(_ context.Context, to, subject, preview, _ string) error {
	m.logger.Info("email (log only)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("preview", preview))
	return nil
}
