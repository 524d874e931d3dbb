package alert

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	apperrors "github.com/hadiiskaargar/PricePilot/pkg/errors"
)

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Host string
	Port int
	User string
	Pass string
	To   string
}

// Complete reports whether every field needed to send mail is set.
func (c EmailConfig) Complete() bool {
	return c.Host != "" && c.Port != 0 && c.User != "" && c.Pass != "" && c.To != ""
}

// EmailSink delivers price drop alerts over SMTP with STARTTLS.
type EmailSink struct {
	cfg EmailConfig
}

// NewEmailSink creates an email sink; the config must be complete.
func NewEmailSink(cfg EmailConfig) (*EmailSink, error) {
	if !cfg.Complete() {
		return nil, fmt.Errorf("email sink: credentials not fully configured")
	}
	return &EmailSink{cfg: cfg}, nil
}

// Name implements Sink.
func (s *EmailSink) Name() string {
	return "email"
}

// Send implements Sink.
func (s *EmailSink) Send(_ context.Context, ev Event) error {
	subject := fmt.Sprintf("Price Drop Alert: %s", ev.ProductName)
	body := fmt.Sprintf(
		"The price for %s has dropped from $%s to $%s.\r\n\r\nProduct link: %s\r\n",
		ev.ProductName, ev.OldPrice, ev.NewPrice, ev.URL,
	)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.User)
	fmt.Fprintf(&msg, "To: %s\r\n", s.cfg.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	if err := smtp.SendMail(addr, auth, s.cfg.User, []string{s.cfg.To}, []byte(msg.String())); err != nil {
		return apperrors.NewAlert(ev.URL, err)
	}
	return nil
}
