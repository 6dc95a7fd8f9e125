package secretary

import (
	"context"
	"time"
)

// Event is a calendar entry.
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// Calendar lists and creates events.
type Calendar interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)
	CreateEvent(ctx context.Context, e Event) (Event, error)
}

// Mail is an outgoing message.
type Mail struct {
	To      []string
	Subject string
	Body    string
}

// Mailer sends mail.
type Mailer interface {
	SendMessage(ctx context.Context, m Mail) error
}

// Contact is an address book entry.
type Contact struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Company string
}

// Contacts searches the address book.
type Contacts interface {
	SearchContacts(ctx context.Context, query string) ([]Contact, error)
}
