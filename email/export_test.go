package email

import (
	"net/smtp"

	"github.com/jordan-wright/email"
)

// SetSend replaces the SMTP send function.
func SetSend(m *Mailer, fn func(addr string, auth smtp.Auth, e *email.Email) error) {
	m.send = fn
}
