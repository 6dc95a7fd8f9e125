package secretary

import (
	"context"
	"time"
)

// Identity is a user reference owned by the identity provider. The core only
// reads it.
type Identity struct {
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string
}

// AuthEvent is an identity provider state change.
type AuthEvent string

const (
	AuthSignedIn       AuthEvent = "SIGNED_IN"
	AuthSignedOut      AuthEvent = "SIGNED_OUT"
	AuthTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	AuthUserUpdated    AuthEvent = "USER_UPDATED"
)

// IdentityProvider performs the external identity exchange. OnChange
// callbacks receive nil identity on sign-out; the returned function
// unsubscribes.
type IdentityProvider interface {
	SignIn(ctx context.Context) (Identity, error)
	SignOut(ctx context.Context) error
	CurrentIdentity() *Identity
	OnChange(fn func(AuthEvent, *Identity)) (unsubscribe func())
}

// ProfileRole is the access level stored with a profile.
type ProfileRole string

const (
	ProfileOwner ProfileRole = "owner"
	ProfileUser  ProfileRole = "user"
)

// Profile is the persisted record of a user.
type Profile struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
	Role      ProfileRole
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfile builds the profile to store for id when none exists yet. The
// first profile in a store gets ProfileOwner.
func NewProfile(id Identity, first bool, now time.Time) Profile {
	name := id.DisplayName
	if name == "" {
		name = id.Email
	}
	role := ProfileUser
	if first {
		role = ProfileOwner
	}
	return Profile{
		ID:        id.ID,
		Email:     id.Email,
		Name:      name,
		AvatarURL: id.AvatarURL,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ProfileStore persists profiles. UpsertProfile is idempotent: an existing
// profile is returned unchanged. GetProfile returns nil, nil when absent.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, id Identity) (Profile, error)
	GetProfile(ctx context.Context, id string) (*Profile, error)
}
