package anthropic_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/anthropic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"Добрый "},{"type":"text","text":"день"}],"stop_reason":"end_turn"}`

func TestTransport_RequestFormat(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)

		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("Anthropic-Version"))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	tr := anthropic.New("test-api-key", anthropic.WithBaseURL(srv.URL))
	got, err := tr.Call(context.Background(), secretary.Payload{
		Model:        "claude-opus-4-20250514",
		SystemPrompt: "Ты ассистент.",
		Prompt:       "Привет",
		Options:      secretary.GenerateOptions{MaxTokens: 300, Temperature: secretary.Float(0.2)},
	})
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "Добрый день", got.Candidates[0].Text)
	assert.Equal(t, "end_turn", got.Candidates[0].FinishReason)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))
	assert.Equal(t, "claude-opus-4-20250514", body["model"])
	assert.Equal(t, float64(300), body["max_tokens"])
	assert.Equal(t, "Ты ассистент.", body["system"])
	assert.Equal(t, 0.2, body["temperature"])
	assert.Equal(t, float64(40), body["top_k"])
	assert.Equal(t, 0.95, body["top_p"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	content := msg["content"].([]any)
	require.Len(t, content, 1)
	assert.Equal(t, "Привет", content[0].(map[string]any)["text"])
}

func TestTransport_DefaultModelAndImage(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	tr := anthropic.New("k", anthropic.WithBaseURL(srv.URL))
	_, err := tr.Call(context.Background(), secretary.Payload{
		Prompt: "Опиши",
		Image:  &secretary.Image{Data: []byte("PNG"), MimeType: "image/png"},
	})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))
	assert.Equal(t, anthropic.DefaultModel, body["model"])
	assert.Equal(t, float64(secretary.DefaultMaxTokens), body["max_tokens"])
	content := body["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	img := content[0].(map[string]any)
	assert.Equal(t, "image", img["type"])
	src := img["source"].(map[string]any)
	assert.Equal(t, "base64", src["type"])
	assert.Equal(t, "image/png", src["media_type"])
	assert.Equal(t, "UE5H", src["data"])
}

func TestTransport_Refusal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[],"stop_reason":"refusal"}`))
	}))
	defer srv.Close()

	got, err := anthropic.New("k", anthropic.WithBaseURL(srv.URL)).Call(context.Background(), secretary.Payload{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "SAFETY", got.Candidates[0].FinishReason)
}

func TestTransport_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"overloaded", 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, secretary.ErrTransport},
		{"server error", http.StatusInternalServerError, `oops`, secretary.ErrTransport},
		{"rate limit", http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, secretary.ErrBackendRejection},
		{"auth", http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, secretary.ErrBackendRejection},
		{"malformed", http.StatusOK, `{not json`, secretary.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := anthropic.New("k", anthropic.WithBaseURL(srv.URL)).Call(context.Background(), secretary.Payload{Prompt: "x"})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTransport_NetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := anthropic.New("k", anthropic.WithBaseURL(url)).Call(context.Background(), secretary.Payload{Prompt: "x"})
	require.ErrorIs(t, err, secretary.ErrTransport)
}
