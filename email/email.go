// Package email implements secretary.Mailer over SMTP.
package email

import (
	"context"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/fwojciec/secretary"
	"github.com/jordan-wright/email"
)

var _ secretary.Mailer = (*Mailer)(nil)

// Mailer sends plain-text mail through one SMTP relay.
type Mailer struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, auth smtp.Auth, e *email.Email) error
}

// Option configures a [Mailer].
type Option func(*Mailer)

// WithAuth authenticates with PLAIN auth against the relay host.
func WithAuth(user, password string) Option {
	return func(m *Mailer) {
		host, _, err := net.SplitHostPort(m.addr)
		if err != nil {
			host = m.addr
		}
		m.auth = smtp.PlainAuth("", user, password, host)
	}
}

// New returns a Mailer relaying through addr (host:port) with sender from.
func New(addr, from string, opts ...Option) (*Mailer, error) {
	if addr == "" {
		return nil, fmt.Errorf("email: empty smtp address: %w", secretary.ErrValidation)
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return nil, fmt.Errorf("email: sender %q: %w", from, secretary.ErrValidation)
	}
	m := &Mailer{
		addr: addr,
		from: from,
		send: func(addr string, auth smtp.Auth, e *email.Email) error { return e.Send(addr, auth) },
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Build converts msg to an email from the configured sender.
func (m *Mailer) Build(msg secretary.Mail) (*email.Email, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("email: no recipients: %w", secretary.ErrValidation)
	}
	to := make([]string, 0, len(msg.To))
	for _, r := range msg.To {
		addr, err := mail.ParseAddress(strings.TrimSpace(r))
		if err != nil {
			return nil, fmt.Errorf("email: recipient %q: %w", r, secretary.ErrValidation)
		}
		to = append(to, addr.Address)
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = to
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)
	return e, nil
}

// SendMessage delivers msg. The SMTP exchange cannot be interrupted; when
// ctx ends first SendMessage returns without waiting for it.
func (m *Mailer) SendMessage(ctx context.Context, msg secretary.Mail) error {
	e, err := m.Build(msg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- m.send(m.addr, m.auth, e) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("email: %w: %w", secretary.ErrTransport, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
