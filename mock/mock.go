// Package mock provides test doubles for secretary interfaces using function fields.
//
// Unset functions panic when called, so a test fails loudly when it reaches
// a collaborator it did not expect. The few exceptions are documented on
// the method.
package mock

import (
	"context"
	"time"

	"github.com/fwojciec/secretary"
)

// Interface compliance checks.
var (
	_ secretary.Transport        = (*Transport)(nil)
	_ secretary.Backend          = (*Backend)(nil)
	_ secretary.Handler          = (*Handler)(nil)
	_ secretary.Medium           = (*Medium)(nil)
	_ secretary.IdentityProvider = (*IdentityProvider)(nil)
	_ secretary.ProfileStore     = (*ProfileStore)(nil)
	_ secretary.Calendar         = (*Calendar)(nil)
	_ secretary.Mailer           = (*Mailer)(nil)
	_ secretary.Contacts         = (*Contacts)(nil)
)

// Transport is a test double for secretary.Transport.
type Transport struct {
	CallFn func(ctx context.Context, p secretary.Payload) (secretary.RawResponse, error)
}

// Call delegates to CallFn.
func (t *Transport) Call(ctx context.Context, p secretary.Payload) (secretary.RawResponse, error) {
	return t.CallFn(ctx, p)
}

// Backend is a test double for secretary.Backend.
type Backend struct {
	ReadyFn        func() bool
	GenerateFn     func(ctx context.Context, prompt string, opts secretary.GenerateOptions) (string, error)
	AnalyzeImageFn func(ctx context.Context, img secretary.Image, prompt string) (string, error)
}

// Ready delegates to ReadyFn.
func (b *Backend) Ready() bool {
	return b.ReadyFn()
}

// Generate delegates to GenerateFn.
func (b *Backend) Generate(ctx context.Context, prompt string, opts secretary.GenerateOptions) (string, error) {
	return b.GenerateFn(ctx, prompt, opts)
}

// AnalyzeImage delegates to AnalyzeImageFn.
func (b *Backend) AnalyzeImage(ctx context.Context, img secretary.Image, prompt string) (string, error) {
	return b.AnalyzeImageFn(ctx, img, prompt)
}

// Handler is a test double for secretary.Handler.
type Handler struct {
	HandleFn func(ctx context.Context, text string, hc secretary.HandlerContext) string
}

// Handle delegates to HandleFn.
func (h *Handler) Handle(ctx context.Context, text string, hc secretary.HandlerContext) string {
	return h.HandleFn(ctx, text, hc)
}

// Medium is a test double for secretary.Medium.
type Medium struct {
	SaveFn   func(key string, value []byte) error
	LoadFn   func(key string) ([]byte, error)
	DeleteFn func(key string) error
}

// Save delegates to SaveFn.
func (m *Medium) Save(key string, value []byte) error {
	return m.SaveFn(key, value)
}

// Load delegates to LoadFn.
func (m *Medium) Load(key string) ([]byte, error) {
	return m.LoadFn(key)
}

// Delete delegates to DeleteFn.
func (m *Medium) Delete(key string) error {
	return m.DeleteFn(key)
}

// IdentityProvider is a test double for secretary.IdentityProvider.
type IdentityProvider struct {
	SignInFn          func(ctx context.Context) (secretary.Identity, error)
	SignOutFn         func(ctx context.Context) error
	CurrentIdentityFn func() *secretary.Identity
	OnChangeFn        func(fn func(secretary.AuthEvent, *secretary.Identity)) func()
}

// SignIn delegates to SignInFn.
func (p *IdentityProvider) SignIn(ctx context.Context) (secretary.Identity, error) {
	return p.SignInFn(ctx)
}

// SignOut delegates to SignOutFn.
func (p *IdentityProvider) SignOut(ctx context.Context) error {
	return p.SignOutFn(ctx)
}

// CurrentIdentity delegates to CurrentIdentityFn.
func (p *IdentityProvider) CurrentIdentity() *secretary.Identity {
	return p.CurrentIdentityFn()
}

// OnChange delegates to OnChangeFn. When OnChangeFn is nil it subscribes
// nothing and returns a no-op unsubscribe, since most tests never emit
// provider events.
func (p *IdentityProvider) OnChange(fn func(secretary.AuthEvent, *secretary.Identity)) func() {
	if p.OnChangeFn == nil {
		return func() {}
	}
	return p.OnChangeFn(fn)
}

// ProfileStore is a test double for secretary.ProfileStore.
type ProfileStore struct {
	UpsertProfileFn func(ctx context.Context, id secretary.Identity) (secretary.Profile, error)
	GetProfileFn    func(ctx context.Context, id string) (*secretary.Profile, error)
}

// UpsertProfile delegates to UpsertProfileFn.
func (s *ProfileStore) UpsertProfile(ctx context.Context, id secretary.Identity) (secretary.Profile, error) {
	return s.UpsertProfileFn(ctx, id)
}

// GetProfile delegates to GetProfileFn.
func (s *ProfileStore) GetProfile(ctx context.Context, id string) (*secretary.Profile, error) {
	return s.GetProfileFn(ctx, id)
}

// Calendar is a test double for secretary.Calendar.
type Calendar struct {
	ListEventsFn  func(ctx context.Context, from, to time.Time) ([]secretary.Event, error)
	CreateEventFn func(ctx context.Context, e secretary.Event) (secretary.Event, error)
}

// ListEvents delegates to ListEventsFn.
func (c *Calendar) ListEvents(ctx context.Context, from, to time.Time) ([]secretary.Event, error) {
	return c.ListEventsFn(ctx, from, to)
}

// CreateEvent delegates to CreateEventFn.
func (c *Calendar) CreateEvent(ctx context.Context, e secretary.Event) (secretary.Event, error) {
	return c.CreateEventFn(ctx, e)
}

// Mailer is a test double for secretary.Mailer.
type Mailer struct {
	SendMessageFn func(ctx context.Context, m secretary.Mail) error
}

// SendMessage delegates to SendMessageFn.
func (m *Mailer) SendMessage(ctx context.Context, mail secretary.Mail) error {
	return m.SendMessageFn(ctx, mail)
}

// Contacts is a test double for secretary.Contacts.
type Contacts struct {
	SearchContactsFn func(ctx context.Context, query string) ([]secretary.Contact, error)
}

// SearchContacts delegates to SearchContactsFn.
func (c *Contacts) SearchContacts(ctx context.Context, query string) ([]secretary.Contact, error) {
	return c.SearchContactsFn(ctx, query)
}
