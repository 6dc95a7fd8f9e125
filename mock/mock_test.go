package mock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_Call(t *testing.T) {
	t.Parallel()

	t.Run("delegates to CallFn", func(t *testing.T) {
		t.Parallel()
		want := secretary.RawResponse{Candidates: []secretary.Candidate{{Text: "ok"}}}
		tr := mock.Transport{
			CallFn: func(ctx context.Context, p secretary.Payload) (secretary.RawResponse, error) {
				assert.Equal(t, "hi", p.Prompt)
				return want, nil
			},
		}
		got, err := tr.Call(context.Background(), secretary.Payload{Prompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("returns error", func(t *testing.T) {
		t.Parallel()
		tr := mock.Transport{
			CallFn: func(ctx context.Context, p secretary.Payload) (secretary.RawResponse, error) {
				return secretary.RawResponse{}, secretary.ErrTransport
			},
		}
		_, err := tr.Call(context.Background(), secretary.Payload{})
		assert.ErrorIs(t, err, secretary.ErrTransport)
	})

	t.Run("panics when CallFn not set", func(t *testing.T) {
		t.Parallel()
		tr := mock.Transport{}
		assert.Panics(t, func() {
			_, _ = tr.Call(context.Background(), secretary.Payload{})
		})
	})
}

func TestBackend(t *testing.T) {
	t.Parallel()

	t.Run("delegates", func(t *testing.T) {
		t.Parallel()
		b := mock.Backend{
			ReadyFn: func() bool { return true },
			GenerateFn: func(ctx context.Context, prompt string, opts secretary.GenerateOptions) (string, error) {
				return "gen:" + prompt, nil
			},
			AnalyzeImageFn: func(ctx context.Context, img secretary.Image, prompt string) (string, error) {
				return img.MimeType, nil
			},
		}
		assert.True(t, b.Ready())
		got, err := b.Generate(context.Background(), "x", secretary.GenerateOptions{})
		require.NoError(t, err)
		assert.Equal(t, "gen:x", got)
		got, err = b.AnalyzeImage(context.Background(), secretary.Image{MimeType: "image/png"}, "")
		require.NoError(t, err)
		assert.Equal(t, "image/png", got)
	})

	t.Run("panics when ReadyFn not set", func(t *testing.T) {
		t.Parallel()
		b := mock.Backend{}
		assert.Panics(t, func() { b.Ready() })
	})
}

func TestHandler_Handle(t *testing.T) {
	t.Parallel()
	h := mock.Handler{
		HandleFn: func(ctx context.Context, text string, hc secretary.HandlerContext) string {
			return hc.ConversationID + ":" + text
		},
	}
	assert.Equal(t, "c1:hi", h.Handle(context.Background(), "hi", secretary.HandlerContext{ConversationID: "c1"}))
}

func TestMedium(t *testing.T) {
	t.Parallel()

	t.Run("delegates", func(t *testing.T) {
		t.Parallel()
		saved := map[string][]byte{}
		m := mock.Medium{
			SaveFn: func(key string, value []byte) error {
				saved[key] = value
				return nil
			},
			LoadFn: func(key string) ([]byte, error) {
				v, ok := saved[key]
				if !ok {
					return nil, secretary.ErrNotFound
				}
				return v, nil
			},
			DeleteFn: func(key string) error {
				delete(saved, key)
				return nil
			},
		}
		require.NoError(t, m.Save("k", []byte("v")))
		got, err := m.Load("k")
		require.NoError(t, err)
		assert.Equal(t, "v", string(got))
		require.NoError(t, m.Delete("k"))
		_, err = m.Load("k")
		assert.ErrorIs(t, err, secretary.ErrNotFound)
	})

	t.Run("panics when SaveFn not set", func(t *testing.T) {
		t.Parallel()
		m := mock.Medium{}
		assert.Panics(t, func() { _ = m.Save("k", nil) })
	})
}

func TestIdentityProvider(t *testing.T) {
	t.Parallel()

	t.Run("delegates", func(t *testing.T) {
		t.Parallel()
		id := secretary.Identity{ID: "u1"}
		p := mock.IdentityProvider{
			SignInFn:          func(ctx context.Context) (secretary.Identity, error) { return id, nil },
			SignOutFn:         func(ctx context.Context) error { return errors.New("boom") },
			CurrentIdentityFn: func() *secretary.Identity { return &id },
		}
		got, err := p.SignIn(context.Background())
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.EqualError(t, p.SignOut(context.Background()), "boom")
		assert.Equal(t, &id, p.CurrentIdentity())
	})

	t.Run("OnChange is nil-safe", func(t *testing.T) {
		t.Parallel()
		p := mock.IdentityProvider{}
		unsubscribe := p.OnChange(func(secretary.AuthEvent, *secretary.Identity) {})
		require.NotNil(t, unsubscribe)
		assert.NotPanics(t, unsubscribe)
	})

	t.Run("OnChange delegates when set", func(t *testing.T) {
		t.Parallel()
		var got secretary.AuthEvent
		p := mock.IdentityProvider{
			OnChangeFn: func(fn func(secretary.AuthEvent, *secretary.Identity)) func() {
				fn(secretary.AuthSignedOut, nil)
				return func() {}
			},
		}
		p.OnChange(func(e secretary.AuthEvent, _ *secretary.Identity) { got = e })
		assert.Equal(t, secretary.AuthSignedOut, got)
	})
}

func TestProfileStore(t *testing.T) {
	t.Parallel()
	s := mock.ProfileStore{
		UpsertProfileFn: func(ctx context.Context, id secretary.Identity) (secretary.Profile, error) {
			return secretary.Profile{ID: id.ID}, nil
		},
		GetProfileFn: func(ctx context.Context, id string) (*secretary.Profile, error) {
			return nil, nil
		},
	}
	p, err := s.UpsertProfile(context.Background(), secretary.Identity{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	got, err := s.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCollaborators_PanicWhenUnset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert.Panics(t, func() { _, _ = (&mock.Calendar{}).ListEvents(ctx, secretary.Event{}.Start, secretary.Event{}.End) })
	assert.Panics(t, func() { _ = (&mock.Mailer{}).SendMessage(ctx, secretary.Mail{}) })
	assert.Panics(t, func() { _, _ = (&mock.Contacts{}).SearchContacts(ctx, "x") })
}
