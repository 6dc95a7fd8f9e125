package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/anthropic"
	"github.com/fwojciec/secretary/gemini"
	"github.com/fwojciec/secretary/openai"
)

// backendName picks the backend. An explicit name wins; otherwise it is
// detected from which key is set. No key yields "" and an unconfigured
// adapter.
func backendName(cfg Config) (string, error) {
	if cfg.Backend != backendAuto && cfg.Backend != "" {
		return cfg.Backend, nil
	}
	var found []string
	if cfg.GeminiKey != "" {
		found = append(found, backendGemini)
	}
	if cfg.AnthropicKey != "" {
		found = append(found, backendAnthropic)
	}
	if cfg.OpenAIKey != "" {
		found = append(found, backendOpenAI)
	}
	switch len(found) {
	case 0:
		return "", nil
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("multiple API keys found (%s): set SECRETARY_BACKEND or --backend to select: %w",
			strings.Join(found, ", "), secretary.ErrValidation)
	}
}

// resolveTransport builds the transport for the selected backend. A
// selected backend without its key yields a nil transport.
func resolveTransport(ctx context.Context, cfg Config) (secretary.Transport, string, error) {
	name, err := backendName(cfg)
	if err != nil {
		return nil, "", err
	}
	switch name {
	case "":
		return nil, "", nil
	case backendGemini:
		if cfg.GeminiKey == "" {
			return nil, name, nil
		}
		var opts []gemini.Option
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		t, err := gemini.New(ctx, cfg.GeminiKey, opts...)
		if err != nil {
			return nil, name, err
		}
		return t, name, nil
	case backendAnthropic:
		if cfg.AnthropicKey == "" {
			return nil, name, nil
		}
		var opts []anthropic.Option
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		return anthropic.New(cfg.AnthropicKey, opts...), name, nil
	case backendOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, name, nil
		}
		var opts []openai.Option
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		return openai.New(cfg.OpenAIKey, opts...), name, nil
	default:
		return nil, name, fmt.Errorf("unknown backend %q: %w", name, secretary.ErrValidation)
	}
}
