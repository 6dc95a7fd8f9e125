package main

import (
	"context"
	"testing"

	"github.com/fwojciec/secretary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no keys", Config{Backend: backendAuto}, ""},
		{"gemini key", Config{Backend: backendAuto, GeminiKey: "gk"}, backendGemini},
		{"anthropic key", Config{Backend: backendAuto, AnthropicKey: "sk"}, backendAnthropic},
		{"openai key", Config{Backend: backendAuto, OpenAIKey: "ok"}, backendOpenAI},
		{"explicit wins over keys", Config{Backend: backendOpenAI, GeminiKey: "gk", AnthropicKey: "sk"}, backendOpenAI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := backendName(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBackendName_MultipleKeys(t *testing.T) {
	t.Parallel()
	_, err := backendName(Config{Backend: backendAuto, GeminiKey: "gk", OpenAIKey: "ok"})
	require.ErrorIs(t, err, secretary.ErrValidation)
	assert.Contains(t, err.Error(), "multiple API keys")
}

func TestResolveTransport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name      string
		cfg       Config
		wantName  string
		wantReady bool
	}{
		{"unconfigured", Config{Backend: backendAuto}, "", false},
		{"selected without key", Config{Backend: backendAnthropic}, backendAnthropic, false},
		{"gemini", Config{Backend: backendAuto, GeminiKey: "gk-test", Model: "gemini-2.5-pro"}, backendGemini, true},
		{"anthropic", Config{Backend: backendAnthropic, AnthropicKey: "sk-test"}, backendAnthropic, true},
		{"openai compatible", Config{Backend: backendOpenAI, OpenAIKey: "ok", OpenAIBaseURL: "http://localhost:1/v1"}, backendOpenAI, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr, name, err := resolveTransport(ctx, tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantReady, tr != nil)
		})
	}
}
