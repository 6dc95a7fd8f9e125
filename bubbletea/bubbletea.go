// Package bubbletea provides the terminal chat UI of the assistant.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/chat"
)

// Chat sends a message to the current conversation.
type Chat interface {
	Send(ctx context.Context, text string) (chat.Reply, error)
}

// Session is the part of the lifecycle manager the UI reads and drives.
type Session interface {
	User() *secretary.Identity
	CurrentConversation() string
	NewConversation() (string, error)
}

// History is the part of the session store the UI reads and clears.
type History interface {
	Query(conversationID string) []secretary.Message
	Clear(conversationID string) error
}

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. Cancelling ctx quits the program.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// ReplyMsg carries the outcome of a send.
type ReplyMsg struct {
	Reply chat.Reply
	Err   error
}

// ConversationMsg reports that a new conversation became current.
type ConversationMsg struct {
	ID  string
	Err error
}

// ClearedMsg reports that the current conversation was cleared.
type ClearedMsg struct {
	Err error
}
