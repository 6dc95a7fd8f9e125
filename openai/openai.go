// Package openai implements [secretary.Transport] for OpenAI-compatible chat
// completion endpoints using github.com/openai/openai-go.
//
// Replies are streamed and folded with the SDK's accumulator, so endpoints
// that only stream (several self-hosted gateways) work too.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/fwojciec/secretary"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when neither the payload nor the transport names one.
const DefaultModel = "gpt-4o-mini"

const finishContentFilter = "content_filter"

// Interface compliance check.
var _ secretary.Transport = (*Transport)(nil)

// Transport implements [secretary.Transport] for chat completions.
type Transport struct {
	client *openai.Client
	model  string
}

// Option configures a [Transport].
type Option func(*transportConfig)

type transportConfig struct {
	baseURL string
	model   string
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *transportConfig) { c.baseURL = url }
}

// WithModel sets the default model id.
func WithModel(model string) Option {
	return func(c *transportConfig) { c.model = model }
}

// New creates a [Transport] with the given API key. SDK-level retries are
// disabled; the backend adapter owns the retry policy.
func New(apiKey string, opts ...Option) *Transport {
	cfg := transportConfig{model: DefaultModel}
	for _, o := range opts {
		o(&cfg)
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	return &Transport{client: openai.NewClient(reqOpts...), model: cfg.model}
}

// Call streams one chat completion and returns the accumulated reply.
func (t *Transport) Call(ctx context.Context, p secretary.Payload) (secretary.RawResponse, error) {
	stream := t.client.Chat.Completions.NewStreaming(ctx, BuildParams(p, t.model))
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		acc.AddChunk(stream.Current())
	}
	if err := stream.Err(); err != nil {
		return secretary.RawResponse{}, classify(err)
	}

	var out secretary.RawResponse
	for _, c := range acc.Choices {
		finish := string(c.FinishReason)
		if finish == finishContentFilter {
			finish = "SAFETY"
		}
		out.Candidates = append(out.Candidates, secretary.Candidate{Text: c.Message.Content, FinishReason: finish})
	}
	return out, nil
}

// BuildParams converts a payload to chat completion params. Stop sequences
// are not forwarded. Exported for testing.
func BuildParams(p secretary.Payload, defaultModel string) openai.ChatCompletionNewParams {
	model := p.Model
	if model == "" {
		model = defaultModel
	}
	opts := p.Options.Resolve()

	var messages []openai.ChatCompletionMessageParamUnion
	if p.SystemPrompt != "" {
		var content any = p.SystemPrompt
		messages = append(messages, openai.ChatCompletionMessageParam{
			Role:    openai.F(openai.ChatCompletionMessageParamRoleSystem),
			Content: openai.F(content),
		})
	}
	var content any = p.Prompt
	if p.Image != nil {
		dataURL := "data:" + p.Image.MimeType + ";base64," + base64.StdEncoding.EncodeToString(p.Image.Data)
		content = []openai.ChatCompletionContentPartUnionParam{
			openai.TextPart(p.Prompt),
			openai.ImagePart(dataURL),
		}
	}
	messages = append(messages, openai.ChatCompletionMessageParam{
		Role:    openai.F(openai.ChatCompletionMessageParamRoleUser),
		Content: openai.F(content),
	})

	return openai.ChatCompletionNewParams{
		Messages:    openai.F(messages),
		Model:       openai.F(model),
		Temperature: openai.F(*opts.Temperature),
		TopP:        openai.F(*opts.TopP),
		MaxTokens:   openai.F(int64(opts.MaxTokens)),
	}
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		return fmt.Errorf("openai: %w: %w", secretary.ErrBackendRejection, err)
	}
	return fmt.Errorf("openai: %w: %w", secretary.ErrTransport, err)
}
