// Package backend implements [secretary.Backend] on top of a
// [secretary.Transport], adding the readiness gate, option defaults,
// response validation and retry with exponential backoff.
//
// Only [secretary.ErrTransport] failures are retried. Every other error kind
// is returned to the caller after the first attempt.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fwojciec/secretary"
	"github.com/sirupsen/logrus"
)

// Interface compliance check.
var _ secretary.Backend = (*Adapter)(nil)

const (
	// DefaultMaxAttempts is the total number of transport calls per request.
	DefaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 8 * time.Second
)

// Image analysis presets.
const (
	imageTemperature = 0.4
	imageTopK        = 32
	imageTopP        = 1.0
	imageMaxTokens   = 1024
	defaultImageMIME = "image/jpeg"
)

const pingPrompt = "Привет"

// finishSafety is the normalized finish reason for safety stops.
const finishSafety = "SAFETY"

// Adapter is the language backend adapter.
type Adapter struct {
	transport    secretary.Transport
	model        string
	systemPrompt string
	maxAttempts  int
	baseDelay    time.Duration
	maxDelay     time.Duration
	log          logrus.FieldLogger
}

// Option configures an [Adapter].
type Option func(*Adapter)

// WithModel sets the model id passed to the transport.
func WithModel(model string) Option {
	return func(a *Adapter) { a.model = model }
}

// WithSystemPrompt sets the system instruction sent with every call.
func WithSystemPrompt(prompt string) Option {
	return func(a *Adapter) { a.systemPrompt = prompt }
}

// WithMaxAttempts sets the retry bound. Default is 3.
func WithMaxAttempts(n int) Option {
	return func(a *Adapter) { a.maxAttempts = n }
}

// WithBackoff sets the first retry delay and the delay cap. Each further
// retry doubles the delay.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(a *Adapter) {
		a.baseDelay = base
		a.maxDelay = maxDelay
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Adapter) { a.log = l }
}

// New creates an [Adapter]. A nil transport yields an adapter that is never
// ready, which is how an unconfigured credential is represented.
func New(t secretary.Transport, opts ...Option) *Adapter {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	a := &Adapter{
		transport:   t,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
		log:         discard,
	}
	for _, o := range opts {
		o(a)
	}
	if a.maxAttempts < 1 {
		a.maxAttempts = 1
	}
	return a
}

// Ready reports whether a transport is configured.
func (a *Adapter) Ready() bool {
	return a.transport != nil
}

// Generate sends prompt with opts. Unset options take the documented
// defaults.
func (a *Adapter) Generate(ctx context.Context, prompt string, opts secretary.GenerateOptions) (string, error) {
	return a.do(ctx, secretary.Payload{Prompt: prompt}, opts)
}

// AnalyzeImage asks the backend to describe img according to prompt using
// the image presets.
func (a *Adapter) AnalyzeImage(ctx context.Context, img secretary.Image, prompt string) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("backend: empty image: %w", secretary.ErrValidation)
	}
	if img.MimeType == "" {
		img.MimeType = defaultImageMIME
	}
	opts := secretary.GenerateOptions{
		Temperature: secretary.Float(imageTemperature),
		TopK:        secretary.Int(imageTopK),
		TopP:        secretary.Float(imageTopP),
		MaxTokens:   imageMaxTokens,
	}
	return a.do(ctx, secretary.Payload{Prompt: prompt, Image: &img}, opts)
}

// Ping sends a short greeting to verify the credential and connectivity.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.Generate(ctx, pingPrompt, secretary.GenerateOptions{MaxTokens: 10})
	return err
}

func (a *Adapter) do(ctx context.Context, p secretary.Payload, opts secretary.GenerateOptions) (string, error) {
	if !a.Ready() {
		return "", fmt.Errorf("backend: %w", secretary.ErrNotConfigured)
	}
	if err := opts.Validate(); err != nil {
		return "", fmt.Errorf("backend: %w", err)
	}
	p.Model = a.model
	p.SystemPrompt = a.systemPrompt
	p.Options = opts.Resolve()

	var lastErr error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := a.delay(attempt - 1)
			a.log.WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).WithError(lastErr).Debug("retrying backend call")
			if err := sleep(ctx, delay); err != nil {
				return "", fmt.Errorf("backend: %w: %w", secretary.ErrTransport, err)
			}
		}

		resp, err := a.transport.Call(ctx, p)
		if err == nil {
			return a.extract(resp)
		}
		lastErr = err
		if !errors.Is(err, secretary.ErrTransport) {
			if errors.Is(err, secretary.ErrBackendRejection) {
				a.log.WithError(err).Warn("backend rejected request")
			}
			return "", err
		}
	}
	a.log.WithError(lastErr).WithField("attempts", a.maxAttempts).Warn("backend retries exhausted")
	return "", lastErr
}

// delay returns the backoff before retry n (1-based).
func (a *Adapter) delay(n int) time.Duration {
	d := a.baseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if d >= a.maxDelay {
			return a.maxDelay
		}
	}
	return min(d, a.maxDelay)
}

func (a *Adapter) extract(resp secretary.RawResponse) (string, error) {
	if resp.BlockReason != "" {
		a.log.WithField("reason", resp.BlockReason).Warn("backend blocked prompt")
		return "", fmt.Errorf("backend: prompt blocked (%s): %w", resp.BlockReason, secretary.ErrBackendRejection)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("backend: no candidates: %w", secretary.ErrMalformedResponse)
	}
	c := resp.Candidates[0]
	if strings.EqualFold(c.FinishReason, finishSafety) {
		a.log.Warn("backend stopped generation for safety")
		return "", fmt.Errorf("backend: generation stopped for safety: %w", secretary.ErrBackendRejection)
	}
	if strings.TrimSpace(c.Text) == "" {
		return "", fmt.Errorf("backend: empty candidate text: %w", secretary.ErrMalformedResponse)
	}
	return c.Text, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
