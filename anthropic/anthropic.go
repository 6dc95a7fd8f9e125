// Package anthropic implements [secretary.Transport] for the Anthropic
// Messages API over plain net/http.
package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fwojciec/secretary"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-sonnet-4-20250514"
	apiVersion     = "2023-06-01"
	messagesPath   = "/v1/messages"
)

// stopRefusal is the stop reason for safety refusals.
const stopRefusal = "refusal"

// Interface compliance check.
var _ secretary.Transport = (*Transport)(nil)

// apiRequest is the JSON body sent to the Messages API.
type apiRequest struct {
	Model         string       `json:"model"`
	MaxTokens     int          `json:"max_tokens"`
	System        string       `json:"system,omitempty"`
	Messages      []apiMessage `json:"messages"`
	Temperature   *float64     `json:"temperature,omitempty"`
	TopK          *int         `json:"top_k,omitempty"`
	TopP          *float64     `json:"top_p,omitempty"`
	StopSequences []string     `json:"stop_sequences,omitempty"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *apiImageSource `json:"source,omitempty"`
}

type apiImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiResponse struct {
	Content    []apiContentBlock `json:"content"`
	StopReason string            `json:"stop_reason"`
}

type apiErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Transport implements [secretary.Transport] for the Messages API.
type Transport struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures a [Transport].
type Option func(*Transport)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(t *Transport) { t.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *Transport) { t.httpClient = hc }
}

// WithModel sets the default model id.
func WithModel(model string) Option {
	return func(t *Transport) { t.model = model }
}

// New creates a [Transport] with the given API key.
func New(apiKey string, opts ...Option) *Transport {
	t := &Transport{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      DefaultModel,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Call sends p as one non-streaming Messages request.
func (t *Transport) Call(ctx context.Context, p secretary.Payload) (secretary.RawResponse, error) {
	body, err := json.Marshal(t.buildRequest(p))
	if err != nil {
		return secretary.RawResponse{}, fmt.Errorf("anthropic: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return secretary.RawResponse{}, fmt.Errorf("anthropic: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", t.apiKey)
	req.Header.Set("Anthropic-Version", apiVersion)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return secretary.RawResponse{}, fmt.Errorf("anthropic: %w: %w", secretary.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return secretary.RawResponse{}, fmt.Errorf("anthropic: %w: read body: %w", secretary.ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return secretary.RawResponse{}, parseHTTPError(resp.StatusCode, data)
	}

	var ar apiResponse
	if err := json.Unmarshal(data, &ar); err != nil {
		return secretary.RawResponse{}, fmt.Errorf("anthropic: %w: %w", secretary.ErrMalformedResponse, err)
	}
	return convertResponse(ar), nil
}

func (t *Transport) buildRequest(p secretary.Payload) apiRequest {
	model := p.Model
	if model == "" {
		model = t.model
	}
	opts := p.Options.Resolve()

	content := []apiContentBlock{}
	if p.Image != nil {
		content = append(content, apiContentBlock{
			Type: "image",
			Source: &apiImageSource{
				Type:      "base64",
				MediaType: p.Image.MimeType,
				Data:      base64.StdEncoding.EncodeToString(p.Image.Data),
			},
		})
	}
	content = append(content, apiContentBlock{Type: "text", Text: p.Prompt})

	return apiRequest{
		Model:         model,
		MaxTokens:     opts.MaxTokens,
		System:        p.SystemPrompt,
		Messages:      []apiMessage{{Role: "user", Content: content}},
		Temperature:   opts.Temperature,
		TopK:          opts.TopK,
		TopP:          opts.TopP,
		StopSequences: opts.StopSequences,
	}
}

func convertResponse(ar apiResponse) secretary.RawResponse {
	var text string
	for _, b := range ar.Content {
		if b.Type == "text" {
			text += b.Text
		}
	}
	finish := ar.StopReason
	if finish == stopRefusal {
		finish = "SAFETY"
	}
	return secretary.RawResponse{Candidates: []secretary.Candidate{{Text: text, FinishReason: finish}}}
}

// parseHTTPError classifies a non-200 response. Server errors and overload
// (529) are transport errors; everything else is a rejection.
func parseHTTPError(status int, body []byte) error {
	kind := secretary.ErrBackendRejection
	if status >= 500 {
		kind = secretary.ErrTransport
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Type == "" {
		return fmt.Errorf("anthropic: %w: HTTP %d: %s", kind, status, string(body))
	}
	return fmt.Errorf("anthropic: %w: HTTP %d: %s: %s", kind, status, apiErr.Error.Type, apiErr.Error.Message)
}
