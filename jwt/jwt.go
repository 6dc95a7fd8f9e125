// Package jwt implements a local secretary.IdentityProvider. Signing in
// issues an HS256 token for a configured identity and keeps it in the
// persistence medium so a later process can resume the session.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fwojciec/secretary"
	"github.com/golang-jwt/jwt/v4"
)

var _ secretary.IdentityProvider = (*Provider)(nil)

// DefaultTTL is the lifetime of an issued token.
const DefaultTTL = 7 * 24 * time.Hour

const issuer = "secretary-plus"

// Provider signs the configured identity in and out.
type Provider struct {
	secret   []byte
	identity secretary.Identity
	medium   secretary.Medium
	ttl      time.Duration
	now      func() time.Time

	mu        sync.Mutex
	current   *secretary.Identity
	token     string
	listeners map[int]func(secretary.AuthEvent, *secretary.Identity)
	nextID    int
}

// Option configures a [Provider].
type Option func(*Provider)

// WithMedium persists the issued token under [secretary.KeyAuthToken].
func WithMedium(m secretary.Medium) Option {
	return func(p *Provider) { p.medium = m }
}

// WithTTL sets the token lifetime.
func WithTTL(d time.Duration) Option {
	return func(p *Provider) { p.ttl = d }
}

// WithClock sets the time source used for issuing and verifying tokens.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New returns a Provider that signs tokens for identity with secret.
func New(secret []byte, identity secretary.Identity, opts ...Option) (*Provider, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt: empty secret: %w", secretary.ErrValidation)
	}
	if identity.ID == "" {
		return nil, fmt.Errorf("jwt: empty identity id: %w", secretary.ErrValidation)
	}
	p := &Provider{
		secret:    secret,
		identity:  identity,
		ttl:       DefaultTTL,
		now:       time.Now,
		listeners: make(map[int]func(secretary.AuthEvent, *secretary.Identity)),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// SignIn issues a token for the configured identity.
func (p *Provider) SignIn(ctx context.Context) (secretary.Identity, error) {
	if err := ctx.Err(); err != nil {
		return secretary.Identity{}, err
	}
	token, err := p.issue(p.identity)
	if err != nil {
		return secretary.Identity{}, err
	}
	if err := p.persist(token); err != nil {
		return secretary.Identity{}, err
	}
	p.set(&p.identity, token, secretary.AuthSignedIn)
	return p.identity, nil
}

// SignOut forgets the token and removes it from the medium.
func (p *Provider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	if p.medium != nil {
		if derr := p.medium.Delete(secretary.KeyAuthToken); derr != nil && !errors.Is(derr, secretary.ErrNotFound) {
			err = fmt.Errorf("jwt: delete token: %w", derr)
		}
	}
	p.set(nil, "", secretary.AuthSignedOut)
	return err
}

// Refresh reissues the token of a signed-in identity.
func (p *Provider) Refresh() (string, error) {
	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()
	if cur == nil {
		return "", fmt.Errorf("jwt: not signed in: %w", secretary.ErrAuthentication)
	}
	token, err := p.issue(*cur)
	if err != nil {
		return "", err
	}
	if err := p.persist(token); err != nil {
		return "", err
	}
	p.set(cur, token, secretary.AuthTokenRefreshed)
	return token, nil
}

// Restore resumes the session from a token kept in the medium. A missing or
// invalid token leaves the provider signed out; an invalid one is removed.
func (p *Provider) Restore() error {
	if p.medium == nil {
		return nil
	}
	data, err := p.medium.Load(secretary.KeyAuthToken)
	if errors.Is(err, secretary.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("jwt: load token: %w", err)
	}
	id, err := p.Verify(string(data))
	if err != nil {
		if derr := p.medium.Delete(secretary.KeyAuthToken); derr != nil && !errors.Is(derr, secretary.ErrNotFound) {
			return fmt.Errorf("jwt: delete invalid token: %w", derr)
		}
		return nil
	}
	p.set(&id, string(data), secretary.AuthSignedIn)
	return nil
}

// Token returns the current token, or "" when signed out.
func (p *Provider) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// CurrentIdentity returns a copy of the signed-in identity, or nil.
func (p *Provider) CurrentIdentity() *secretary.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	id := *p.current
	return &id
}

// OnChange registers fn for auth events and returns its unsubscribe func.
func (p *Provider) OnChange(fn func(secretary.AuthEvent, *secretary.Identity)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// Verify parses token and returns the identity it was issued for.
func (p *Provider) Verify(token string) (secretary.Identity, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return secretary.Identity{}, fmt.Errorf("jwt: %w: %w", secretary.ErrAuthentication, err)
	}
	if !claims.VerifyExpiresAt(p.now().Unix(), true) {
		return secretary.Identity{}, fmt.Errorf("jwt: %w: token expired", secretary.ErrAuthentication)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return secretary.Identity{}, fmt.Errorf("jwt: %w: missing subject", secretary.ErrAuthentication)
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	avatar, _ := claims["avatar"].(string)
	return secretary.Identity{ID: sub, DisplayName: name, Email: email, AvatarURL: avatar}, nil
}

func (p *Provider) issue(id secretary.Identity) (string, error) {
	now := p.now()
	claims := jwt.MapClaims{
		"iss":    issuer,
		"sub":    id.ID,
		"name":   id.DisplayName,
		"email":  id.Email,
		"avatar": id.AvatarURL,
		"iat":    now.Unix(),
		"exp":    now.Add(p.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return token, nil
}

func (p *Provider) persist(token string) error {
	if p.medium == nil {
		return nil
	}
	if err := p.medium.Save(secretary.KeyAuthToken, []byte(token)); err != nil {
		return fmt.Errorf("jwt: save token: %w", err)
	}
	return nil
}

// set updates the state and notifies listeners outside the lock.
func (p *Provider) set(id *secretary.Identity, token string, ev secretary.AuthEvent) {
	p.mu.Lock()
	if id != nil {
		cp := *id
		id = &cp
	}
	p.current = id
	p.token = token
	fns := make([]func(secretary.AuthEvent, *secretary.Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		var arg *secretary.Identity
		if id != nil {
			cp := *id
			arg = &cp
		}
		fn(ev, arg)
	}
}
