// Package chat wires the router, the handlers, the session store and the
// lifecycle manager into the send path: store the user message, classify
// and handle it, and store the assistant reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/secretary"
	"github.com/sirupsen/logrus"
)

// Router classifies text and produces a reply.
type Router interface {
	Route(ctx context.Context, text string, hc secretary.HandlerContext) (secretary.Intent, string)
}

// Session exposes the bound user and conversation.
type Session interface {
	User() *secretary.Identity
	CurrentConversation() string
	IsCurrent(conversationID string) bool
}

// Store is the part of the session store used by Send.
type Store interface {
	Append(msg secretary.Message) (secretary.Message, error)
	Query(conversationID string) []secretary.Message
}

// Reply is the outcome of one Send.
type Reply struct {
	ConversationID string
	Intent         secretary.Intent
	User           secretary.Message
	Assistant      secretary.Message

	// Warning is non-nil when a message was kept in memory but not
	// persisted. It wraps one or more *secretary.PersistenceWarning.
	Warning error

	// Discarded is set when the conversation changed while the reply was
	// generated. The assistant message was not stored.
	Discarded bool
}

// Service runs the send path.
type Service struct {
	router  Router
	session Session
	store   Store
	log     logrus.FieldLogger
}

// Option configures a [Service].
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// New creates a [Service].
func New(r Router, session Session, st Store, opts ...Option) *Service {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Service{router: r, session: session, store: st, log: discard}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Send delivers text to the current conversation and returns the reply.
func (s *Service) Send(ctx context.Context, text string) (Reply, error) {
	return s.SendWithAttachment(ctx, text, nil)
}

// SendWithAttachment is Send with an optional image for document analysis.
// An attachment routes to document analysis regardless of the text.
func (s *Service) SendWithAttachment(ctx context.Context, text string, att *secretary.Image) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" && att == nil {
		return Reply{}, fmt.Errorf("chat: empty message: %w", secretary.ErrValidation)
	}
	conv := s.session.CurrentConversation()
	if conv == "" {
		return Reply{}, fmt.Errorf("chat: no current conversation: %w", secretary.ErrAuthentication)
	}

	history := s.store.Query(conv)
	userMsg, err := s.store.Append(secretary.Message{
		ConversationID: conv,
		Role:           secretary.RoleUser,
		Content:        text,
	})
	userWarn, err := split(err)
	if err != nil {
		return Reply{}, fmt.Errorf("chat: %w", err)
	}

	hc := secretary.HandlerContext{
		ConversationID: conv,
		History:        history,
		User:           s.session.User(),
		Attachment:     att,
	}
	var (
		intent  secretary.Intent
		content string
	)
	if att != nil {
		intent = secretary.IntentDocumentAnalysis
		content = s.routeAttachment(ctx, text, hc)
	} else {
		intent, content = s.router.Route(ctx, text, hc)
	}

	reply := Reply{ConversationID: conv, Intent: intent, User: userMsg, Warning: userWarn}
	if !s.session.IsCurrent(conv) {
		s.log.WithFields(logrus.Fields{"conversation": conv, "intent": intent}).Info("discarding stale reply")
		reply.Discarded = true
		reply.Assistant = secretary.Message{ConversationID: conv, Role: secretary.RoleAssistant, Content: content, Intent: intent}
		return reply, nil
	}

	asstMsg, err := s.store.Append(secretary.Message{
		ConversationID: conv,
		Role:           secretary.RoleAssistant,
		Content:        content,
		Intent:         intent,
	})
	asstWarn, err := split(err)
	if err != nil {
		return Reply{}, fmt.Errorf("chat: %w", err)
	}
	reply.Assistant = asstMsg
	reply.Warning = errors.Join(userWarn, asstWarn)
	return reply, nil
}

// routeAttachment sends an image straight to the document handler when the
// router exposes one.
func (s *Service) routeAttachment(ctx context.Context, text string, hc secretary.HandlerContext) string {
	if hr, ok := s.router.(interface {
		Handler(secretary.Intent) secretary.Handler
	}); ok {
		return hr.Handler(secretary.IntentDocumentAnalysis).Handle(ctx, text, hc)
	}
	_, content := s.router.Route(ctx, text, hc)
	return content
}

// split separates a persistence warning from a hard error.
func split(err error) (warning, hard error) {
	if err == nil {
		return nil, nil
	}
	var pw *secretary.PersistenceWarning
	if errors.As(err, &pw) {
		return err, nil
	}
	return nil, err
}
