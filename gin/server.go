// Package gin exposes the assistant core over an HTTP JSON API.
//
// Every route except /healthz and POST /v1/auth/signin requires a bearer
// token issued by the identity provider for the user the session is bound
// to. Sign-in issues a token for the configured local identity to any
// caller, so the API must only be reachable by that user.
package gin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/chat"
	"github.com/fwojciec/secretary/lifecycle"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Chat sends a message to the current conversation.
type Chat interface {
	Send(ctx context.Context, text string) (chat.Reply, error)
}

// Session is the lifecycle manager surface used by the API.
type Session interface {
	SignIn(ctx context.Context) (secretary.Identity, error)
	SignOut(ctx context.Context) error
	State() lifecycle.State
	User() *secretary.Identity
	CurrentConversation() string
	NewConversation() (string, error)
	SwitchConversation(id string) error
}

// History is the session store surface used by the API.
type History interface {
	AllConversations() []secretary.ConversationSummary
	Query(conversationID string) []secretary.Message
	Has(conversationID string) bool
	Search(query, conversationID string) []secretary.Message
	Clear(conversationID string) error
	ClearAll() error
	Export(conversationID string) secretary.Export
	Statistics() secretary.Statistics
	Sentiment(conversationID string) secretary.Sentiment
}

// Tokens issues and verifies bearer tokens.
type Tokens interface {
	Token() string
	Refresh() (string, error)
	Verify(token string) (secretary.Identity, error)
}

// Server is the HTTP API.
type Server struct {
	engine  *gin.Engine
	chat    Chat
	session Session
	history History
	tokens  Tokens
	mailer  secretary.Mailer
	log     logrus.FieldLogger
}

// Option configures a [Server].
type Option func(*Server)

// WithMailer enables POST /v1/mail.
func WithMailer(m secretary.Mailer) Option {
	return func(s *Server) { s.mailer = m }
}

// WithLogger sets the logger for request logs and handler failures.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.log = l }
}

// New creates the API server and registers its routes.
func New(c Chat, session Session, history History, tokens Tokens, opts ...Option) *Server {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Server{chat: c, session: session, history: history, tokens: tokens, log: discard}
	for _, o := range opts {
		o(s)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.logRequests())
	r.GET("/healthz", s.health)

	v1 := r.Group("/v1")
	v1.POST("/auth/signin", s.signIn)

	authed := v1.Group("", s.authenticate())
	authed.POST("/auth/signout", s.signOut)
	authed.POST("/auth/refresh", s.refresh)
	authed.GET("/session", s.getSession)
	authed.POST("/chat", s.postChat)
	authed.GET("/conversations", s.listConversations)
	authed.POST("/conversations", s.createConversation)
	authed.DELETE("/conversations", s.clearAll)
	authed.GET("/conversations/:id", s.getConversation)
	authed.DELETE("/conversations/:id", s.clearConversation)
	authed.PUT("/conversations/:id/current", s.switchConversation)
	authed.GET("/conversations/:id/export", s.exportConversation)
	authed.GET("/conversations/:id/sentiment", s.sentiment)
	authed.GET("/search", s.search)
	authed.GET("/stats", s.stats)
	authed.POST("/mail", s.sendMail)

	s.engine = r
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("http api listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("gin: listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("gin: shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gin: listen: %w", err)
		}
		return nil
	}
}

// StatusOf maps an error to an HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, secretary.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, secretary.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, secretary.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, secretary.ErrAlreadyInProgress):
		return http.StatusConflict
	case errors.Is(err, secretary.ErrBackendRejection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, secretary.ErrTransport), errors.Is(err, secretary.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, secretary.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := StatusOf(err)
	entry := s.log.WithFields(logrus.Fields{"request_id": c.GetString(requestIDKey), "status": status})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Debug("request rejected")
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

// warning returns the text of a non-fatal persistence failure, or "" when
// err is nil. ok is false for any other error.
func warning(err error) (text string, ok bool) {
	if err == nil {
		return "", true
	}
	var w *secretary.PersistenceWarning
	if errors.As(err, &w) {
		return w.Error(), true
	}
	return "", false
}
