// Package handler implements the intent handlers. Each handler turns user
// text into a domain prompt, calls the language backend and post-processes
// the result into a reply.
//
// Handlers never fail: an unready backend yields a configuration hint and a
// failed call yields a localized apology.
package handler

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
var _ secretary.Handler = (*Handler)(nil)

// User-facing fallback replies.
const (
	NotReadyReply = "Языковая модель не настроена. Укажите API-ключ (например, GEMINI_API_KEY), и я смогу отвечать на запросы."
	ApologyReply  = "Извините, сейчас не удалось получить ответ. Попробуйте ещё раз чуть позже."
	RejectedReply = "Извините, я не могу ответить на этот запрос."
)

// DefaultHistoryLimit is the number of previous messages included in a prompt.
const DefaultHistoryLimit = 10

// systemPrompt is the assistant persona shared by every handler.
const systemPrompt = "Ты — Секретарь+, персональный AI-ассистент. Отвечай на русском языке, кратко и по делу, если пользователь не пишет на другом языке."

// SystemPrompt returns the persona instruction configured on the backend.
func SystemPrompt() string { return systemPrompt }

type config struct {
	calendar     secretary.Calendar
	contacts     secretary.Contacts
	log          logrus.FieldLogger
	now          func() time.Time
	historyLimit int
}

// Option configures handlers.
type Option func(*config)

// WithCalendar enables event enrichment for scheduling requests.
func WithCalendar(c secretary.Calendar) Option {
	return func(cfg *config) { cfg.calendar = c }
}

// WithContacts enables contact enrichment for lookup requests.
func WithContacts(c secretary.Contacts) Option {
	return func(cfg *config) { cfg.contacts = c }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(cfg *config) { cfg.log = l }
}

// WithClock sets the time source used for calendar windows.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) { cfg.now = now }
}

// WithHistoryLimit sets how many previous messages go into the prompt.
func WithHistoryLimit(n int) Option {
	return func(cfg *config) { cfg.historyLimit = n }
}

func newConfig(opts []Option) *config {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	cfg := &config{log: discard, now: time.Now, historyLimit: DefaultHistoryLimit}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// request is a built prompt plus the options to send it with.
type request struct {
	prompt string
	opts   secretary.GenerateOptions
	image  *secretary.Image
}

type buildFunc func(ctx context.Context, text string, hc secretary.HandlerContext) request

// Handler is one intent handler.
type Handler struct {
	intent  secretary.Intent
	backend secretary.Backend
	build   buildFunc
	cta     string
	cfg     *config
}

// Intent returns the intent this handler serves.
func (h *Handler) Intent() secretary.Intent { return h.intent }

// Handle builds the prompt, calls the backend and returns the reply.
func (h *Handler) Handle(ctx context.Context, text string, hc secretary.HandlerContext) string {
	if h.backend == nil || !h.backend.Ready() {
		return NotReadyReply
	}
	req := h.build(ctx, text, hc)

	var (
		out string
		err error
	)
	if req.image != nil {
		out, err = h.backend.AnalyzeImage(ctx, *req.image, req.prompt)
	} else {
		out, err = h.backend.Generate(ctx, req.prompt, req.opts)
	}
	if err != nil {
		h.cfg.log.WithError(err).WithFields(logrus.Fields{
			"intent":       h.intent,
			"conversation": hc.ConversationID,
		}).Warn("handler backend call failed")
		return apology(err)
	}

	out = strings.TrimSpace(out)
	if h.cta != "" && isCreation(text) {
		out += "\n\n" + h.cta
	}
	return out
}

func apology(err error) string {
	switch {
	case errors.Is(err, secretary.ErrNotConfigured):
		return NotReadyReply
	case errors.Is(err, secretary.ErrBackendRejection):
		return RejectedReply
	default:
		return ApologyReply
	}
}

// creationVerbs mark requests that ask the assistant to produce something
// the user may want to act on.
var creationVerbs = []string{"создай", "добавь", "запланируй", "напиши", "составь", "create", "add"}

func isCreation(text string) bool {
	lower := strings.ToLower(text)
	for _, v := range creationVerbs {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}

// New returns a handler for every intent, general included.
func New(b secretary.Backend, opts ...Option) map[secretary.Intent]*Handler {
	return map[secretary.Intent]*Handler{
		secretary.IntentScheduling:       NewScheduling(b, opts...),
		secretary.IntentMessaging:        NewMessaging(b, opts...),
		secretary.IntentTaskPlanning:     NewTaskPlanning(b, opts...),
		secretary.IntentContactLookup:    NewContactLookup(b, opts...),
		secretary.IntentDocumentAnalysis: NewDocumentAnalysis(b, opts...),
		secretary.IntentGeneral:          NewGeneral(b, opts...),
	}
}

// withContext prefixes body with the caller identity and recent history.
func (cfg *config) withContext(body string, hc secretary.HandlerContext) string {
	var b strings.Builder
	if hc.User != nil && hc.User.DisplayName != "" {
		fmt.Fprintf(&b, "Пользователь: %s\n\n", hc.User.DisplayName)
	}
	if hist := cfg.recent(hc.History); len(hist) > 0 {
		b.WriteString("История разговора:\n")
		for _, m := range hist {
			fmt.Fprintf(&b, "%s: %s\n", speaker(m.Role), m.Content)
		}
		b.WriteString("\n")
	}
	b.WriteString(body)
	return b.String()
}

func (cfg *config) recent(history []secretary.Message) []secretary.Message {
	if cfg.historyLimit <= 0 {
		return nil
	}
	if len(history) > cfg.historyLimit {
		return history[len(history)-cfg.historyLimit:]
	}
	return history
}

func speaker(r secretary.Role) string {
	switch r {
	case secretary.RoleAssistant:
		return "Ассистент"
	case secretary.RoleSystem:
		return "Система"
	default:
		return "Пользователь"
	}
}
