package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// smtpTimeout bounds one whole SMTP session when ctx carries no earlier
// deadline.
const smtpTimeout = 10 * time.Second

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP sends mail through a plain SMTP relay.
type SMTP struct {
	Host string
	Port string
	User string
	Pass string

	// sendMail is s.session; swapped in tests.
	sendMail sendFunc
}

// NewSMTP returns nil when no host is configured.
func NewSMTP(host, port, user, pass string) *SMTP {
	if host == "" {
		return nil
	}
	if port == "" {
		port = "587"
	}
	return &SMTP{Host: host, Port: port, User: user, Pass: pass}
}

func (s *SMTP) Send(ctx context.Context, m Message) error {
	if s == nil || s.Host == "" {
		return ErrDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := mail.ParseAddress(m.From)
	if err != nil {
		return fmt.Errorf("smtp: bad sender %q: %w", m.From, err)
	}
	to, err := mail.ParseAddress(m.To)
	if err != nil {
		return fmt.Errorf("smtp: bad recipient %q: %w", m.To, err)
	}

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}
	send := s.sendMail
	if send == nil {
		send = s.session
	}
	addr := net.JoinHostPort(s.Host, s.Port)
	if err := send(ctx, addr, auth, from.Address, []string{to.Address}, buildMIME(m)); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

// session runs the same exchange as smtp.SendMail on a connection whose
// deadline follows ctx, so a relay that stalls cannot hold the caller.
func (s *SMTP) session(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	deadline := time.Now().Add(smtpTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
			return err
		}
	}
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("server doesn't support AUTH")
		}
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMIME(m Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.From + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + mimeHeader(m.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.HTML)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// mimeHeader encodes non-ASCII subjects (the alert subject carries an emoji).
func mimeHeader(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.QEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
