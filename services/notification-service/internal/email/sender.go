package email

import (
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

type Sender interface {
	Send(msg Message) error
}

// Message is one plain-text email.
type Message struct {
	FromName string
	To       string
	Subject  string
	Body     string
}

// SMTPConfig is embedded in the service config under the SMTP prefix.
type SMTPConfig struct {
	Host     string `envconfig:"HOST" default:"mailpit"`
	Port     string `envconfig:"PORT" default:"1025"`
	From     string `envconfig:"FROM" default:"no-reply@meethub.local"`
	Username string `envconfig:"USER"`
	Password string `envconfig:"PASS"`
}

// SMTPSender sends email via SMTP. Without credentials it sends unauthenticated
// (Mailpit-compatible); with them it uses PLAIN auth, which net/smtp only
// allows over TLS or to localhost.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	host := strings.TrimSpace(cfg.Host)
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = "no-reply@meethub.local"
	}
	s := &SMTPSender{
		addr: net.JoinHostPort(host, strings.TrimSpace(cfg.Port)),
		from: from,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	return s
}

func (s *SMTPSender) Send(msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("email: empty recipient")
	}
	raw := buildMessage(s.from, msg, time.Now())
	return smtp.SendMail(s.addr, s.auth, s.from, []string{msg.To}, []byte(raw))
}

func buildMessage(from string, msg Message, now time.Time) string {
	fromHeader := from
	if msg.FromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.FromName), from)
	}
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		fromHeader,
		msg.To,
		mime.QEncoding.Encode("utf-8", msg.Subject),
		now.UTC().Format(time.RFC1123Z),
		strings.ReplaceAll(msg.Body, "\n", "\r\n"),
	)
}
