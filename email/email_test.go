package email_test

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/fwojciec/secretary"
	secemail "github.com/fwojciec/secretary/email"
	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMailer(t *testing.T) *secemail.Mailer {
	t.Helper()
	m, err := secemail.New("smtp.example.com:587", "secretary@example.com", secemail.WithAuth("user", "pass"))
	require.NoError(t, err)
	return m
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	_, err := secemail.New("", "a@example.com")
	require.ErrorIs(t, err, secretary.ErrValidation)
	_, err = secemail.New("smtp.example.com:25", "not an address")
	require.ErrorIs(t, err, secretary.ErrValidation)
}

func TestMailer_Build(t *testing.T) {
	t.Parallel()
	m := newMailer(t)

	e, err := m.Build(secretary.Mail{
		To:      []string{" Bob <bob@example.com> "},
		Subject: "Meeting",
		Body:    "See you at 10.",
	})
	require.NoError(t, err)
	assert.Equal(t, "secretary@example.com", e.From)
	assert.Equal(t, []string{"bob@example.com"}, e.To)

	raw, err := e.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Subject: Meeting")
	assert.Contains(t, string(raw), "bob@example.com")
	assert.Contains(t, string(raw), "See you at 10.")
}

func TestMailer_Build_Invalid(t *testing.T) {
	t.Parallel()
	m := newMailer(t)
	_, err := m.Build(secretary.Mail{Subject: "x"})
	require.ErrorIs(t, err, secretary.ErrValidation)
	_, err = m.Build(secretary.Mail{To: []string{"nobody"}})
	require.ErrorIs(t, err, secretary.ErrValidation)
}

func TestMailer_SendMessage(t *testing.T) {
	t.Parallel()
	m := newMailer(t)

	var gotAddr string
	var got *email.Email
	secemail.SetSend(m, func(addr string, auth smtp.Auth, e *email.Email) error {
		gotAddr, got = addr, e
		assert.NotNil(t, auth)
		return nil
	})
	err := m.SendMessage(context.Background(), secretary.Mail{To: []string{"bob@example.com"}, Subject: "Hi", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	require.NotNil(t, got)
	assert.Equal(t, "Hi", got.Subject)
}

func TestMailer_SendMessage_Failure(t *testing.T) {
	t.Parallel()
	m := newMailer(t)
	secemail.SetSend(m, func(string, smtp.Auth, *email.Email) error { return errors.New("connection refused") })

	err := m.SendMessage(context.Background(), secretary.Mail{To: []string{"bob@example.com"}})
	require.ErrorIs(t, err, secretary.ErrTransport)
}

func TestMailer_SendMessage_Cancelled(t *testing.T) {
	t.Parallel()
	m := newMailer(t)
	secemail.SetSend(m, func(string, smtp.Auth, *email.Email) error {
		t.Error("send called after cancellation")
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.SendMessage(ctx, secretary.Mail{To: []string{"bob@example.com"}})
	require.ErrorIs(t, err, context.Canceled)
}
