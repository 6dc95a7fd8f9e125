// Package gemini implements [secretary.Transport] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK, translating a
// [secretary.Payload] into a single non-streaming GenerateContent call and
// classifying SDK failures into the backend error taxonomy.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fwojciec/secretary"
	"google.golang.org/genai"
)

// DefaultModel is used when neither the payload nor the transport names one.
const DefaultModel = "gemini-2.5-flash"

// Interface compliance check.
var _ secretary.Transport = (*Transport)(nil)

// Transport implements [secretary.Transport] for the Gemini API.
type Transport struct {
	client  *genai.Client
	model   string
	baseURL string
}

// Option configures a [Transport].
type Option func(*Transport)

// WithModel sets the default model id.
func WithModel(model string) Option {
	return func(t *Transport) { t.model = model }
}

// WithBaseURL points the SDK at another endpoint. Useful for testing with
// httptest.
func WithBaseURL(url string) Option {
	return func(t *Transport) { t.baseURL = url }
}

// New creates a [Transport] authenticated with apiKey.
func New(ctx context.Context, apiKey string, opts ...Option) (*Transport, error) {
	t := &Transport{model: DefaultModel}
	for _, o := range opts {
		o(t)
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if t.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: t.baseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	t.client = gc
	return t, nil
}

// Call sends p as one GenerateContent request.
func (t *Transport) Call(ctx context.Context, p secretary.Payload) (secretary.RawResponse, error) {
	model := p.Model
	if model == "" {
		model = t.model
	}
	contents, config := BuildRequest(p)
	resp, err := t.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return secretary.RawResponse{}, classify(err)
	}
	return ConvertResponse(resp), nil
}

// safetyCategories are blocked at medium probability and above.
var safetyCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// BuildRequest converts a payload to genai contents and config.
// Exported for testing.
func BuildRequest(p secretary.Payload) ([]*genai.Content, *genai.GenerateContentConfig) {
	parts := []*genai.Part{{Text: p.Prompt}}
	if p.Image != nil {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{
			MIMEType: p.Image.MimeType,
			Data:     p.Image.Data,
		}})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	opts := p.Options.Resolve()
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(opts.MaxTokens),
		Temperature:     f32(*opts.Temperature),
		TopP:            f32(*opts.TopP),
		TopK:            f32(float64(*opts.TopK)),
		StopSequences:   opts.StopSequences,
	}
	if p.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: p.SystemPrompt}}}
	}
	for _, c := range safetyCategories {
		config.SafetySettings = append(config.SafetySettings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return contents, config
}

func f32(v float64) *float32 {
	f := float32(v)
	return &f
}

// ConvertResponse flattens a genai response. Thought parts are skipped.
// Exported for testing.
func ConvertResponse(resp *genai.GenerateContentResponse) secretary.RawResponse {
	var out secretary.RawResponse
	if resp == nil {
		return out
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		out.BlockReason = string(resp.PromptFeedback.BlockReason)
	}
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		var text strings.Builder
		if c.Content != nil {
			for _, part := range c.Content.Parts {
				if part == nil || part.Thought {
					continue
				}
				text.WriteString(part.Text)
			}
		}
		out.Candidates = append(out.Candidates, secretary.Candidate{
			Text:         text.String(),
			FinishReason: string(c.FinishReason),
		})
	}
	return out
}

// classify maps SDK errors onto the backend taxonomy. Quota, auth and bad
// request statuses are rejections; server errors and failures without a
// status are transport errors.
func classify(err error) error {
	code, ok := apiCode(err)
	switch {
	case !ok:
		return fmt.Errorf("gemini: %w: %w", secretary.ErrTransport, err)
	case code >= 500:
		return fmt.Errorf("gemini: %w: %w", secretary.ErrTransport, err)
	default:
		return fmt.Errorf("gemini: %w: %w", secretary.ErrBackendRejection, err)
	}
}

func apiCode(err error) (int, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := any(e).(type) {
		case genai.APIError:
			return v.Code, true
		case *genai.APIError:
			return v.Code, true
		}
	}
	return 0, false
}
