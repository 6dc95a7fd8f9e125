package gin_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/chat"
	api "github.com/fwojciec/secretary/gin"
	"github.com/fwojciec/secretary/handler"
	"github.com/fwojciec/secretary/jwt"
	"github.com/fwojciec/secretary/lifecycle"
	"github.com/fwojciec/secretary/mock"
	"github.com/fwojciec/secretary/router"
	"github.com/fwojciec/secretary/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server  *api.Server
	store   *store.Store
	session *lifecycle.Manager
	tokens  *jwt.Provider
	mail    []secretary.Mail
}

func newFixture(t *testing.T, reply string, withMailer bool) *fixture {
	t.Helper()
	f := &fixture{store: store.New()}

	var err error
	f.tokens, err = jwt.New([]byte("test-secret"), secretary.Identity{ID: "u1", DisplayName: "Анна", Email: "anna@example.com"})
	require.NoError(t, err)

	ids := []string{"c1", "c2", "c3"}
	f.session = lifecycle.New(f.tokens, f.store, lifecycle.WithIDGenerator(func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}))
	t.Cleanup(f.session.Close)

	b := &mock.Backend{
		ReadyFn: func() bool { return true },
		GenerateFn: func(context.Context, string, secretary.GenerateOptions) (string, error) {
			return reply, nil
		},
	}
	hs := handler.New(b)
	var ropts []router.Option
	for intent, h := range hs {
		ropts = append(ropts, router.WithHandler(intent, h))
	}
	svc := chat.New(router.New(hs[secretary.IntentGeneral], ropts...), f.session, f.store)

	var opts []api.Option
	if withMailer {
		opts = append(opts, api.WithMailer(&mock.Mailer{
			SendMessageFn: func(_ context.Context, m secretary.Mail) error {
				f.mail = append(f.mail, m)
				return nil
			},
		}))
	}
	f.server = api.New(svc, f.session, f.store, f.tokens, opts...)
	return f
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) signIn(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/auth/signin", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
		} `json:"user"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, "Анна", resp.User.DisplayName)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "", false)

	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestServer_Authentication(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "", false)

	rec := f.do(t, http.MethodGet, "/v1/session", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/session", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := jwt.New([]byte("other-secret"), secretary.Identity{ID: "u1"})
	require.NoError(t, err)
	_, err = other.SignIn(context.Background())
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, "/v1/session", other.Token(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := f.signIn(t)
	rec = f.do(t, http.MethodGet, "/v1/session", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sess struct {
		State        string `json:"state"`
		Conversation string `json:"conversation"`
	}
	decode(t, rec, &sess)
	assert.Equal(t, "authenticated", sess.State)
	assert.Equal(t, "c1", sess.Conversation)

	rec = f.do(t, http.MethodPost, "/v1/auth/signout", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, lifecycle.StateUnauthenticated, f.session.State())

	rec = f.do(t, http.MethodGet, "/v1/session", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Refresh(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "", false)

	rec := f.do(t, http.MethodPost, "/v1/auth/refresh", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := f.signIn(t)
	rec = f.do(t, http.MethodPost, "/v1/auth/refresh", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, f.tokens.Token(), resp.Token)
	assert.Equal(t, "u1", resp.User.ID)

	rec = f.do(t, http.MethodGet, "/v1/session", resp.Token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, lifecycle.StateAuthenticated, f.session.State())
}

func TestServer_Chat(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "Рад помочь!", false)
	token := f.signIn(t)

	rec := f.do(t, http.MethodPost, "/v1/chat", token, `{"text":"Спасибо, отлично!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reply struct {
		ConversationID string `json:"conversation_id"`
		User           struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"user"`
		Assistant struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"assistant"`
		Discarded bool `json:"discarded"`
	}
	decode(t, rec, &reply)
	assert.Equal(t, "c1", reply.ConversationID)
	assert.Equal(t, "user", reply.User.Role)
	assert.Equal(t, "Спасибо, отлично!", reply.User.Content)
	assert.Equal(t, "assistant", reply.Assistant.Role)
	assert.Equal(t, "Рад помочь!", reply.Assistant.Content)
	assert.False(t, reply.Discarded)
	assert.Equal(t, 2, f.store.Len())

	t.Run("invalid body", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/chat", token, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("conversation", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/conversations/c1", token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var msgs []struct {
			Role string `json:"role"`
		}
		decode(t, rec, &msgs)
		require.Len(t, msgs, 2)
		assert.Equal(t, "user", msgs[0].Role)
		assert.Equal(t, "assistant", msgs[1].Role)

		rec = f.do(t, http.MethodGet, "/v1/conversations/nope", token, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/conversations", token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var list []struct {
			ID           string `json:"id"`
			MessageCount int    `json:"message_count"`
		}
		decode(t, rec, &list)
		require.Len(t, list, 1)
		assert.Equal(t, "c1", list[0].ID)
		assert.Equal(t, 2, list[0].MessageCount)
	})

	t.Run("search", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/search?q="+url.QueryEscape("помочь"), token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var msgs []struct {
			Content string `json:"content"`
		}
		decode(t, rec, &msgs)
		require.Len(t, msgs, 1)
		assert.Equal(t, "Рад помочь!", msgs[0].Content)
	})

	t.Run("stats", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/stats", token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var st struct {
			TotalMessages int     `json:"total_messages"`
			UserMessages  int     `json:"user_messages"`
			Conversations int     `json:"conversations"`
			Average       float64 `json:"average_per_conversation"`
		}
		decode(t, rec, &st)
		assert.Equal(t, 2, st.TotalMessages)
		assert.Equal(t, 1, st.UserMessages)
		assert.Equal(t, 1, st.Conversations)
		assert.InDelta(t, 2.0, st.Average, 1e-9)
	})

	t.Run("sentiment", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/conversations/c1/sentiment", token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"sentiment":"positive","score":1}`, rec.Body.String())
	})
}

func TestServer_Export(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "Готово.", false)
	token := f.signIn(t)
	rec := f.do(t, http.MethodPost, "/v1/chat", token, `{"text":"Привет"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/conversations/c1/export", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="conversation-c1-`)
	var e struct {
		ConversationID string            `json:"conversation_id"`
		Messages       []json.RawMessage `json:"messages"`
	}
	decode(t, rec, &e)
	assert.Len(t, e.Messages, 2)

	rec = f.do(t, http.MethodGet, "/v1/conversations/c1/export?format=html", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".html")
	assert.Contains(t, rec.Body.String(), "Готово.")

	rec = f.do(t, http.MethodGet, "/v1/conversations/c1/export?format=pdf", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Conversations(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "Ок.", false)
	token := f.signIn(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/chat", token, `{"text":"Первый"}`).Code)

	rec := f.do(t, http.MethodPost, "/v1/conversations", token, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"c2"}`, rec.Body.String())
	assert.Equal(t, "c2", f.session.CurrentConversation())

	rec = f.do(t, http.MethodPut, "/v1/conversations/c1/current", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "c1", f.session.CurrentConversation())

	rec = f.do(t, http.MethodPut, "/v1/conversations/missing/current", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/v1/conversations/c1", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, f.store.Has("c1"))

	rec = f.do(t, http.MethodDelete, "/v1/conversations/c1", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/v1/chat", token, `{"text":"Второй"}`).Code)
	rec = f.do(t, http.MethodDelete, "/v1/conversations", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, f.store.Len())
}

func TestServer_Mail(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "", false)
		token := f.signIn(t)
		rec := f.do(t, http.MethodPost, "/v1/mail", token, `{"to":["bob@example.com"]}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("sends", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "", true)
		token := f.signIn(t)
		rec := f.do(t, http.MethodPost, "/v1/mail", token, `{"to":["bob@example.com"],"subject":"Встреча","body":"В 10:00"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		require.Len(t, f.mail, 1)
		assert.Equal(t, secretary.Mail{To: []string{"bob@example.com"}, Subject: "Встреча", Body: "В 10:00"}, f.mail[0])

		rec = f.do(t, http.MethodPost, "/v1/mail", token, `{"subject":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_ListenAndServe(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "", false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{secretary.ErrValidation, http.StatusBadRequest},
		{secretary.ErrAuthentication, http.StatusUnauthorized},
		{secretary.ErrNotFound, http.StatusNotFound},
		{secretary.ErrAlreadyInProgress, http.StatusConflict},
		{secretary.ErrBackendRejection, http.StatusUnprocessableEntity},
		{secretary.ErrTransport, http.StatusBadGateway},
		{secretary.ErrMalformedResponse, http.StatusBadGateway},
		{secretary.ErrNotConfigured, http.StatusServiceUnavailable},
		{fmt.Errorf("chat: %w", secretary.ErrNotFound), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, api.StatusOf(tt.err))
		})
	}
}
