// Package router classifies user utterances into intents and dispatches them
// to the matching handler.
//
// Classification is keyword matching: each intent owns a set of substrings
// and the intents are tried in a fixed priority order. The first intent with
// any keyword present in the lower-cased text wins; text matching nothing is
// general. The keyword sets overlap ("планир" belongs to both scheduling and
// task planning), so the order decides such inputs.
package router

import (
	"context"
	"io"
	"strings"

	"github.com/fwojciec/secretary"
	"github.com/sirupsen/logrus"
)

type rule struct {
	intent   secretary.Intent
	keywords []string
}

// rules is evaluated top to bottom.
var rules = []rule{
	{secretary.IntentScheduling, []string{
		"встреч", "календар", "расписан", "событи", "созвон", "совещани",
		"напомни", "напоминани", "планир",
		"meeting", "calendar", "schedule", "appointment", "remind",
	}},
	{secretary.IntentMessaging, []string{
		"письм", "почт", "email", "e-mail", "сообщени", "отправ", "напиши", "ответь",
		"mail", "message", "reply",
	}},
	{secretary.IntentTaskPlanning, []string{
		"задач", "планир", "план ", "приоритет", "дедлайн", "срок", "список дел",
		"todo", "to-do", "task", "deadline", "priority",
	}},
	{secretary.IntentContactLookup, []string{
		"контакт", "телефон", "номер", "адрес", "найди человек", "кто такой", "кто такая",
		"contact", "phone",
	}},
	{secretary.IntentDocumentAnalysis, []string{
		"документ", "файл", "отчет", "отчёт", "договор", "анализ", "резюмир", "pdf",
		"document", "file", "report", "summar",
	}},
}

// Classify returns the intent for text. It is total and deterministic.
func Classify(text string) secretary.Intent {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.intent
			}
		}
	}
	return secretary.IntentGeneral
}

// Keywords returns the keyword set for intent, in match order. General has
// none.
func Keywords(intent secretary.Intent) []string {
	for _, r := range rules {
		if r.intent == intent {
			return append([]string(nil), r.keywords...)
		}
	}
	return nil
}

// Router dispatches classified text to handlers.
type Router struct {
	handlers map[secretary.Intent]secretary.Handler
	fallback secretary.Handler
	log      logrus.FieldLogger
}

// Option configures a [Router].
type Option func(*Router)

// WithHandler registers h for intent.
func WithHandler(intent secretary.Intent, h secretary.Handler) Option {
	return func(r *Router) { r.handlers[intent] = h }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Router) { r.log = l }
}

// New creates a [Router]. Intents with no registered handler go to fallback,
// which also serves [secretary.IntentGeneral] unless a general handler is
// registered.
func New(fallback secretary.Handler, opts ...Option) *Router {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	r := &Router{
		handlers: make(map[secretary.Intent]secretary.Handler),
		fallback: fallback,
		log:      discard,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Route classifies text and returns the intent together with the handler's
// reply.
func (r *Router) Route(ctx context.Context, text string, hc secretary.HandlerContext) (secretary.Intent, string) {
	intent := Classify(text)
	r.log.WithFields(logrus.Fields{"intent": intent, "conversation": hc.ConversationID}).Debug("routing")
	return intent, r.Handler(intent).Handle(ctx, text, hc)
}

// Handler returns the handler registered for intent, or the fallback.
func (r *Router) Handler(intent secretary.Intent) secretary.Handler {
	if h, ok := r.handlers[intent]; ok {
		return h
	}
	return r.fallback
}
