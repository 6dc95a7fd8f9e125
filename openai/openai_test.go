package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sse(chunks ...string) string {
	var out string
	for _, c := range chunks {
		out += "data: " + c + "\n\n"
	}
	return out + "data: [DONE]\n\n"
}

func TestTransport_Call(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &captured)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(sse(
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":"Привет"},"finish_reason":null}]}`,
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":"!"},"finish_reason":"stop"}]}`,
		)))
	}))
	defer srv.Close()

	tr := openai.New("test-key", openai.WithBaseURL(srv.URL), openai.WithModel("qwen-turbo"))
	got, err := tr.Call(context.Background(), secretary.Payload{
		SystemPrompt: "Ты ассистент.",
		Prompt:       "Здравствуй",
		Options:      secretary.GenerateOptions{MaxTokens: 300},
	})
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "Привет!", got.Candidates[0].Text)
	assert.Equal(t, "stop", got.Candidates[0].FinishReason)

	assert.Equal(t, "qwen-turbo", captured["model"])
	assert.Equal(t, true, captured["stream"])
	assert.Equal(t, float64(300), captured["max_tokens"])
	assert.Equal(t, 0.7, captured["temperature"])
	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "Здравствуй", msgs[1].(map[string]any)["content"])
}

func TestTransport_ContentFilter(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(sse(
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":""},"finish_reason":"content_filter"}]}`,
		)))
	}))
	defer srv.Close()

	got, err := openai.New("k", openai.WithBaseURL(srv.URL)).Call(context.Background(), secretary.Payload{Prompt: "x"})
	require.NoError(t, err)
	require.Len(t, got.Candidates, 1)
	assert.Equal(t, "SAFETY", got.Candidates[0].FinishReason)
}

func TestTransport_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"server error", http.StatusBadGateway, secretary.ErrTransport},
		{"rate limit", http.StatusTooManyRequests, secretary.ErrBackendRejection},
		{"auth", http.StatusUnauthorized, secretary.ErrBackendRejection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"x"}}`))
			}))
			defer srv.Close()

			_, err := openai.New("k", openai.WithBaseURL(srv.URL)).Call(context.Background(), secretary.Payload{Prompt: "x"})
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestBuildParams_Image(t *testing.T) {
	t.Parallel()

	params := openai.BuildParams(secretary.Payload{
		Prompt: "Опиши",
		Image:  &secretary.Image{Data: []byte("PNG"), MimeType: "image/png"},
	}, "m")
	data, err := json.Marshal(params)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	parts := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	img := parts[1].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	assert.Equal(t, "data:image/png;base64,UE5H", img["image_url"].(map[string]any)["url"])
}
