// Package mail delivers plain-text notifications over SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"intelpipeline/internal/config"
	"intelpipeline/internal/ports"
)

// SMTPNotifier implements ports.Notifier over a configured relay.
type SMTPNotifier struct {
	cfg  config.SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var _ ports.Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier wires the relay settings.
func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
}

// Send delivers one message. The context is checked before dialing; net/smtp
// itself does not take a context.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.cfg.Host == "" {
		return fmt.Errorf("smtp host is not configured")
	}
	if to == "" {
		return fmt.Errorf("notification recipient is empty")
	}

	from := n.cfg.From
	if from == "" {
		from = n.cfg.Username
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := n.send(addr, auth, from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
