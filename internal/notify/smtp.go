package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"resumescreen/internal/config"
	"resumescreen/internal/errors"
)

// SMTPNotifier sends mail over SMTP with STARTTLS and plain auth, the
// lowest common denominator the usual transactional providers accept.
type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *errors.Logger

	// send is swappable for tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

var _ Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier creates an SMTP-backed notifier.
func NewSMTPNotifier(cfg config.SMTPConfig, logger *errors.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		logger:   logger,
		send:     smtp.SendMail,
	}
}

// Send implements Notifier.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.username == "" || n.password == "" {
		if n.logger != nil {
			n.logger.Warn("SMTP credentials not set, skipping send", "to", msg.To)
		}
		return errors.NewNotifyError(errors.ErrCodeNotifyFailed,
			"SMTP credentials not configured", nil)
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.username, n.password, n.host)

	if err := n.send(addr, auth, n.from, []string{msg.To}, formatMessage(n.from, msg)); err != nil {
		return errors.NewNotifyError(errors.ErrCodeNotifyFailed,
			fmt.Sprintf("Failed to send mail to %s", msg.To), err)
	}

	if n.logger != nil {
		n.logger.Info("Mail sent", "to", msg.To, "subject", msg.Subject)
	}
	return nil
}

// formatMessage renders RFC 5322 headers plus the body. Header values are
// sanitized so a crafted subject cannot inject extra headers.
func formatMessage(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", sanitizeHeader(from))
	fmt.Fprintf(&b, "To: %s\r\n", sanitizeHeader(msg.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// sanitizeHeader strips CR and LF from header values.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "")
}
