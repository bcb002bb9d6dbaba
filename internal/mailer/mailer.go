package mailer

import (
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"

	"lynixmail/internal/models"
)

// Message is one outbound email. HTML is the rendered body, Text its
// plain-text alternative.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Transport sends messages over an already-configured SMTP connection.
type Transport interface {
	Send(msg *Message) error
	Verify() error
}

type smtpTransport struct {
	dialer *gomail.Dialer
	cfg    models.SMTPConfig
}

// NewSMTPTransport binds a transport to a resolved SMTP configuration.
// Port 465 selects implicit SSL; UseTLS relaxes certificate verification,
// which internal relays with self-signed certificates need.
func NewSMTPTransport(cfg *models.SMTPConfig) Transport {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.Port == 465 {
		d.SSL = true
	}
	if cfg.UseTLS {
		d.TLSConfig = &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: true,
		}
	}
	return &smtpTransport{dialer: d, cfg: *cfg}
}

func (t *smtpTransport) Send(msg *Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", t.cfg.From, t.cfg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if t.cfg.ReplyTo != "" {
		m.SetHeader("Reply-To", t.cfg.ReplyTo)
	}
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	if err := t.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send error: %w", err)
	}

	return nil
}

func (t *smtpTransport) Verify() error {
	s, err := t.dialer.Dial()
	if err != nil {
		return fmt.Errorf("smtp connection failed: %w", err)
	}
	return s.Close()
}
