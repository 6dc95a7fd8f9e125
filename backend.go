package secretary

import (
	"context"
	"fmt"
)

// Generation defaults applied when an option is left unset.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
	DefaultTopK        = 40
	DefaultTopP        = 0.95
)

// GenerateOptions tunes a single generation. Nil pointers and zero
// MaxTokens take the defaults above; see Resolve.
type GenerateOptions struct {
	Temperature   *float64 // [0, 1]
	MaxTokens     int      // 0 = DefaultMaxTokens
	TopK          *int
	TopP          *float64 // [0, 1]
	StopSequences []string
}

// Float returns a pointer to v. Handy for filling GenerateOptions.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Validate checks value ranges on the options that are set.
func (o GenerateOptions) Validate() error {
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 1) {
		return fmt.Errorf("temperature must be in [0, 1], got %g: %w", *o.Temperature, ErrValidation)
	}
	if o.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", o.MaxTokens, ErrValidation)
	}
	if o.TopK != nil && *o.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d: %w", *o.TopK, ErrValidation)
	}
	if o.TopP != nil && (*o.TopP < 0 || *o.TopP > 1) {
		return fmt.Errorf("top_p must be in [0, 1], got %g: %w", *o.TopP, ErrValidation)
	}
	return nil
}

// Resolve returns a copy of o with every unset field filled from the
// defaults. Transports receive resolved options only.
func (o GenerateOptions) Resolve() GenerateOptions {
	if o.Temperature == nil {
		o.Temperature = Float(DefaultTemperature)
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.TopK == nil {
		o.TopK = Int(DefaultTopK)
	}
	if o.TopP == nil {
		o.TopP = Float(DefaultTopP)
	}
	return o
}

// Image is inline image data sent to the backend for analysis.
type Image struct {
	Data     []byte
	MimeType string // image/jpeg when empty
}

// Payload is one backend request as handed to a Transport.
type Payload struct {
	Model        string // empty = transport default
	SystemPrompt string
	Prompt       string
	Image        *Image
	Options      GenerateOptions // always resolved
}

// Candidate is one generated alternative in a RawResponse.
type Candidate struct {
	Text         string
	FinishReason string
}

// RawResponse is the transport-neutral shape of a backend reply. The adapter
// decides whether it is usable.
type RawResponse struct {
	Candidates  []Candidate
	BlockReason string // non-empty when the backend refused the prompt
}

// Transport executes a single backend call. Implementations wrap network
// and 5xx failures with ErrTransport, safety and quota refusals with
// ErrBackendRejection, and undecodable bodies with ErrMalformedResponse.
// Transports never retry.
type Transport interface {
	Call(ctx context.Context, p Payload) (RawResponse, error)
}

// Backend is the uniform call surface handlers use.
type Backend interface {
	Ready() bool
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	AnalyzeImage(ctx context.Context, img Image, prompt string) (string, error)
}
