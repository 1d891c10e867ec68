// Package mail delivers rendered notification emails.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/seoulglow/kbeauty-store/internal/domain/notify"
)

// SMTPConfig holds SMTP connection credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTP sends messages through an SMTP relay. Port 465 uses implicit TLS,
// other ports upgrade with STARTTLS when the server offers it.
type SMTP struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTP creates an SMTP transport.
func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTP{cfg: cfg, now: time.Now}
}

// Send delivers msg.
func (s *SMTP) Send(ctx context.Context, msg notify.Message) error {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return errors.Wrap(err, "parse sender")
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return errors.Wrap(err, "parse recipient")
	}
	raw := buildRaw(msg, s.now())

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := s.dial(ctx, addr)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "smtp handshake")
	}
	defer func() { _ = client.Close() }()

	if s.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return errors.Wrap(err, "starttls")
			}
		}
	}
	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return errors.Wrap(err, "auth")
		}
	}
	if err := client.Mail(from.Address); err != nil {
		return errors.Wrap(err, "mail from")
	}
	if err := client.Rcpt(to.Address); err != nil {
		return errors.Wrap(err, "rcpt to")
	}
	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "data")
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return errors.Wrap(err, "write body")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "close body")
	}
	return client.Quit()
}

func (s *SMTP) dial(ctx context.Context, addr string) (net.Conn, error) {
	if s.cfg.Port == 465 {
		d := &tls.Dialer{Config: &tls.Config{ServerName: s.cfg.Host}}
		return d.DialContext(ctx, "tcp", addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// buildRaw frames msg as an RFC 5322 HTML message.
func buildRaw(msg notify.Message, date time.Time) []byte {
	var b strings.Builder
	header := func(k, v string) {
		b.WriteString(k + ": " + sanitize(v) + "\r\n")
	}
	header("From", msg.From)
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="UTF-8"`)
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

// sanitize strips line breaks so header values cannot inject new headers.
func sanitize(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}

// Address formats a display name and address as a From header value.
func Address(name, addr string) string {
	if name == "" {
		return addr
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}

var _ notify.Transport = (*SMTP)(nil)

func (c SMTPConfig) String() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
