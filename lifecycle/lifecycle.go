// Package lifecycle implements the session lifecycle state machine that
// binds an authenticated user to a current conversation.
//
//	Unauthenticated --SignIn--> Authenticating --ok--> Authenticated
//	      ^                          |                      |
//	      +-------- failure ---------+------- SignOut ------+
//
// Only one sign-in may be outstanding. A second SignIn issued while the
// first is in flight fails with [secretary.ErrAlreadyInProgress].
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fwojciec/secretary"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State is a lifecycle state.
type State int

// Lifecycle states.
const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// History is the part of the session store the manager drives.
type History interface {
	Restore() error
	Reset()
	Has(conversationID string) bool
	AllConversations() []secretary.ConversationSummary
}

// Manager coordinates authentication with conversation binding.
type Manager struct {
	mu      sync.Mutex
	state   State
	user    *secretary.Identity
	profile *secretary.Profile
	current string

	provider    secretary.IdentityProvider
	history     History
	profiles    secretary.ProfileStore
	medium      secretary.Medium
	log         logrus.FieldLogger
	newID       func() string
	unsubscribe func()
}

// Option configures a [Manager].
type Option func(*Manager)

// WithProfileStore enables the profile upsert on sign-in.
func WithProfileStore(s secretary.ProfileStore) Option {
	return func(m *Manager) { m.profiles = s }
}

// WithMedium persists the current conversation id under
// [secretary.KeyCurrentConversation].
func WithMedium(md secretary.Medium) Option {
	return func(m *Manager) { m.medium = md }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

// WithIDGenerator sets the conversation id generator. Default is UUIDv4.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// New creates a [Manager] in the unauthenticated state and subscribes to
// provider events. Call Close to unsubscribe.
func New(provider secretary.IdentityProvider, history History, opts ...Option) *Manager {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	m := &Manager{
		provider: provider,
		history:  history,
		log:      discard,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(m)
	}
	m.unsubscribe = provider.OnChange(m.onAuthEvent)
	return m
}

// Close stops listening to provider events.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// SignIn runs the identity exchange and binds the resulting user. On
// success the manager is authenticated with a current conversation that is
// either resumed or freshly created.
func (m *Manager) SignIn(ctx context.Context) (secretary.Identity, error) {
	m.mu.Lock()
	switch m.state {
	case StateAuthenticating:
		m.mu.Unlock()
		return secretary.Identity{}, fmt.Errorf("lifecycle: %w", secretary.ErrAlreadyInProgress)
	case StateAuthenticated:
		id := *m.user
		m.mu.Unlock()
		return id, nil
	}
	m.state = StateAuthenticating
	m.mu.Unlock()

	m.log.Info("signing in")
	id, err := m.provider.SignIn(ctx)
	if err != nil {
		m.mu.Lock()
		m.state = StateUnauthenticated
		m.mu.Unlock()
		m.log.WithError(err).Warn("sign-in failed")
		if errors.Is(err, secretary.ErrAuthentication) {
			return secretary.Identity{}, fmt.Errorf("lifecycle: %w", err)
		}
		return secretary.Identity{}, fmt.Errorf("lifecycle: %w: %w", secretary.ErrAuthentication, err)
	}

	m.bind(ctx, id)
	return id, nil
}

// bind completes authentication for id.
func (m *Manager) bind(ctx context.Context, id secretary.Identity) {
	profile := m.upsertProfile(ctx, id)

	if err := m.history.Restore(); err != nil {
		m.log.WithError(err).Warn("history not restored")
	}
	current := m.resume()

	m.mu.Lock()
	m.state = StateAuthenticated
	m.user = &id
	m.profile = profile
	m.current = current
	m.mu.Unlock()

	m.saveCurrent(current)
	m.log.WithFields(logrus.Fields{"user": id.ID, "conversation": current}).Info("signed in")
}

func (m *Manager) upsertProfile(ctx context.Context, id secretary.Identity) *secretary.Profile {
	if m.profiles == nil {
		return nil
	}
	p, err := m.profiles.UpsertProfile(ctx, id)
	if err != nil {
		m.log.WithError(err).WithField("user", id.ID).Warn("profile upsert failed")
		return nil
	}
	return &p
}

// resume picks the persisted current conversation if the store still has
// it, then the most recently active one, and mints a new id otherwise.
func (m *Manager) resume() string {
	if m.medium != nil {
		data, err := m.medium.Load(secretary.KeyCurrentConversation)
		switch {
		case err == nil:
			if id := string(data); id != "" && m.history.Has(id) {
				return id
			}
		case !errors.Is(err, secretary.ErrNotFound):
			m.log.WithError(err).Warn("current conversation not loaded")
		}
	}
	if all := m.history.AllConversations(); len(all) > 0 {
		return all[0].ID
	}
	return m.newID()
}

func (m *Manager) saveCurrent(id string) {
	if m.medium == nil {
		return
	}
	if err := m.medium.Save(secretary.KeyCurrentConversation, []byte(id)); err != nil {
		m.log.WithError(err).Warn("current conversation not persisted")
	}
}

// SignOut signs out with the provider and clears the user, the current
// conversation and the in-memory history. Persisted history is kept. Local
// state is cleared even when the provider call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	err := m.provider.SignOut(ctx)
	m.clear()
	if err != nil {
		m.log.WithError(err).Warn("provider sign-out failed")
		return fmt.Errorf("lifecycle: sign out: %w", err)
	}
	return nil
}

func (m *Manager) clear() {
	m.mu.Lock()
	was := m.state
	m.state = StateUnauthenticated
	m.user = nil
	m.profile = nil
	m.current = ""
	m.mu.Unlock()

	m.history.Reset()
	if was == StateAuthenticated {
		m.log.Info("signed out")
	}
}

// onAuthEvent handles provider-initiated changes.
func (m *Manager) onAuthEvent(ev secretary.AuthEvent, id *secretary.Identity) {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	switch ev {
	case secretary.AuthSignedOut:
		if state == StateAuthenticated {
			m.clear()
		}
	case secretary.AuthUserUpdated, secretary.AuthTokenRefreshed:
		if id == nil {
			return
		}
		m.mu.Lock()
		if m.state == StateAuthenticated {
			u := *id
			m.user = &u
		}
		m.mu.Unlock()
		m.log.WithField("event", ev).Debug("identity refreshed")
	case secretary.AuthSignedIn:
		// A sign-in we started completes in SignIn itself.
		if state == StateUnauthenticated && id != nil {
			m.mu.Lock()
			if m.state != StateUnauthenticated {
				m.mu.Unlock()
				return
			}
			m.state = StateAuthenticating
			m.mu.Unlock()
			m.bind(context.Background(), *id)
		}
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// User returns a copy of the bound user, or nil.
func (m *Manager) User() *secretary.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Profile returns the profile stored at sign-in, or nil.
func (m *Manager) Profile() *secretary.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil
	}
	p := *m.profile
	return &p
}

// CurrentConversation returns the bound conversation id, empty when
// unauthenticated.
func (m *Manager) CurrentConversation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsCurrent reports whether id is still the bound conversation.
func (m *Manager) IsCurrent(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return id != "" && m.current == id
}

var errNotSignedIn = fmt.Errorf("not signed in: %w", secretary.ErrAuthentication)

// NewConversation binds a new, empty conversation and returns its id.
func (m *Manager) NewConversation() (string, error) {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return "", fmt.Errorf("lifecycle: %w", errNotSignedIn)
	}
	id := m.newID()
	m.current = id
	m.mu.Unlock()

	m.saveCurrent(id)
	m.log.WithField("conversation", id).Info("new conversation")
	return id, nil
}

// SwitchConversation binds an existing conversation. Unknown ids fail with
// [secretary.ErrNotFound].
func (m *Manager) SwitchConversation(id string) error {
	if !m.history.Has(id) {
		return fmt.Errorf("lifecycle: conversation %q: %w", id, secretary.ErrNotFound)
	}
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return fmt.Errorf("lifecycle: %w", errNotSignedIn)
	}
	m.current = id
	m.mu.Unlock()

	m.saveCurrent(id)
	m.log.WithField("conversation", id).Info("switched conversation")
	return nil
}
