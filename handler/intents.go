package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/secretary"
)

// Per-intent output bounds.
const (
	schedulingMaxTokens = 500
	messagingMaxTokens  = 300
	planningMaxTokens   = 600
	contactsMaxTokens   = 400
	documentMaxTokens   = 500
)

const calendarWindow = 7 * 24 * time.Hour

// NewScheduling returns the scheduling handler. With a calendar configured
// the prompt lists the events of the next seven days.
func NewScheduling(b secretary.Backend, opts ...Option) *Handler {
	cfg := newConfig(opts)
	return &Handler{
		intent:  secretary.IntentScheduling,
		backend: b,
		cfg:     cfg,
		cta:     "Хотите, чтобы я добавил это событие в календарь?",
		build: func(ctx context.Context, text string, hc secretary.HandlerContext) request {
			var sb strings.Builder
			fmt.Fprintf(&sb, "Сегодня %s.\n", cfg.now().Format("2006-01-02 15:04 (Monday)"))
			if events := cfg.upcoming(ctx); events != "" {
				sb.WriteString(events)
			}
			fmt.Fprintf(&sb, `
Помоги пользователю с планированием времени. Запрос:
%s

Предложи конкретное время, учитывая уже запланированные события, укажи продолжительность и необходимую подготовку.`, text)
			return request{
				prompt: cfg.withContext(sb.String(), hc),
				opts:   secretary.GenerateOptions{MaxTokens: schedulingMaxTokens},
			}
		},
	}
}

func (cfg *config) upcoming(ctx context.Context) string {
	if cfg.calendar == nil {
		return ""
	}
	from := cfg.now()
	events, err := cfg.calendar.ListEvents(ctx, from, from.Add(calendarWindow))
	if err != nil {
		cfg.log.WithError(err).Warn("calendar unavailable")
		return ""
	}
	if len(events) == 0 {
		return "Событий на ближайшие 7 дней нет.\n"
	}
	var b strings.Builder
	b.WriteString("События на ближайшие 7 дней:\n")
	for _, e := range events {
		fmt.Fprintf(&b, "- %s–%s %s", e.Start.Format("2006-01-02 15:04"), e.End.Format("15:04"), e.Title)
		if e.Location != "" {
			fmt.Fprintf(&b, " (%s)", e.Location)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Tone is the register of a drafted message.
type Tone string

// Supported tones.
const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneFormal       Tone = "formal"
	ToneCasual       Tone = "casual"
)

var toneDescriptions = map[Tone]string{
	ToneProfessional: "профессиональный и вежливый",
	ToneFriendly:     "дружелюбный и открытый",
	ToneFormal:       "формальный и официальный",
	ToneCasual:       "неформальный и расслабленный",
}

// toneKeywords is checked in order; the first hit wins.
var toneKeywords = []struct {
	tone     Tone
	keywords []string
}{
	{ToneCasual, []string{"неформальн", "casual"}},
	{ToneFormal, []string{"официальн", "формальн", "formal"}},
	{ToneFriendly, []string{"дружелюбн", "дружеск", "friendly"}},
}

// DetectTone picks the tone requested in text, defaulting to professional.
func DetectTone(text string) Tone {
	lower := strings.ToLower(text)
	for _, tk := range toneKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(lower, kw) {
				return tk.tone
			}
		}
	}
	return ToneProfessional
}

// NewMessaging returns the messaging handler, which drafts replies and
// letters in the tone detected from the request.
func NewMessaging(b secretary.Backend, opts ...Option) *Handler {
	cfg := newConfig(opts)
	return &Handler{
		intent:  secretary.IntentMessaging,
		backend: b,
		cfg:     cfg,
		cta:     "Хотите, чтобы я отправил это письмо?",
		build: func(_ context.Context, text string, hc secretary.HandlerContext) request {
			body := fmt.Sprintf(`Составь текст письма или ответа по запросу пользователя.
Тон: %s

Запрос:
%s

Требования к ответу:
- краткость и ясность
- соответствие тону
- конкретность
- вежливость`, toneDescriptions[DetectTone(text)], text)
			return request{
				prompt: cfg.withContext(body, hc),
				opts:   secretary.GenerateOptions{MaxTokens: messagingMaxTokens},
			}
		},
	}
}

// NewTaskPlanning returns the task planning handler.
func NewTaskPlanning(b secretary.Backend, opts ...Option) *Handler {
	cfg := newConfig(opts)
	return &Handler{
		intent:  secretary.IntentTaskPlanning,
		backend: b,
		cfg:     cfg,
		cta:     "Хотите сохранить этот план?",
		build: func(_ context.Context, text string, hc secretary.HandlerContext) request {
			body := fmt.Sprintf(`Создай план задач на основе описания:

%s

Создай структурированный план с:
- разбивкой на подзадачи
- оценкой времени для каждой задачи
- рекомендациями по приоритизации
- советами по эффективности`, text)
			return request{
				prompt: cfg.withContext(body, hc),
				opts:   secretary.GenerateOptions{MaxTokens: planningMaxTokens},
			}
		},
	}
}

// NewContactLookup returns the contact lookup handler. With a contact
// directory configured the prompt includes the matching entries.
func NewContactLookup(b secretary.Backend, opts ...Option) *Handler {
	cfg := newConfig(opts)
	return &Handler{
		intent:  secretary.IntentContactLookup,
		backend: b,
		cfg:     cfg,
		build: func(ctx context.Context, text string, hc secretary.HandlerContext) request {
			var sb strings.Builder
			if found := cfg.matchingContacts(ctx, text); found != "" {
				sb.WriteString(found)
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, `Поисковый запрос: %s

Предоставь релевантную информацию о контакте по запросу. Если данных нет, скажи об этом прямо.`, text)
			return request{
				prompt: cfg.withContext(sb.String(), hc),
				opts:   secretary.GenerateOptions{MaxTokens: contactsMaxTokens},
			}
		},
	}
}

func (cfg *config) matchingContacts(ctx context.Context, query string) string {
	if cfg.contacts == nil {
		return ""
	}
	found, err := cfg.contacts.SearchContacts(ctx, query)
	if err != nil {
		cfg.log.WithError(err).Warn("contacts unavailable")
		return ""
	}
	if len(found) == 0 {
		return "В контактах совпадений не найдено.\n"
	}
	var b strings.Builder
	b.WriteString("Найденные контакты:\n")
	for _, c := range found {
		fields := []string{c.Name}
		for _, f := range []string{c.Company, c.Email, c.Phone} {
			if f != "" {
				fields = append(fields, f)
			}
		}
		fmt.Fprintf(&b, "- %s\n", strings.Join(fields, ", "))
	}
	return b.String()
}

const defaultImagePrompt = "Опиши это изображение"

// NewDocumentAnalysis returns the document analysis handler. HTML input is
// converted to markdown and long documents are cut to a fixed budget. An
// image attachment is sent through the image analysis path instead.
func NewDocumentAnalysis(b secretary.Backend, opts ...Option) *Handler {
	cfg := newConfig(opts)
	return &Handler{
		intent:  secretary.IntentDocumentAnalysis,
		backend: b,
		cfg:     cfg,
		build: func(_ context.Context, text string, hc secretary.HandlerContext) request {
			if hc.Attachment != nil {
				prompt := strings.TrimSpace(text)
				if prompt == "" {
					prompt = defaultImagePrompt
				}
				img := *hc.Attachment
				return request{prompt: prompt, image: &img}
			}
			doc := cfg.normalizeDocument(text)
			body := fmt.Sprintf(`Проанализируй этот документ и предоставь структурированное резюме:
- основные разделы
- ключевые выводы
- важные даты и цифры
- рекомендации

Документ:
%s`, doc)
			return request{
				prompt: cfg.withContext(body, hc),
				opts:   secretary.GenerateOptions{MaxTokens: documentMaxTokens},
			}
		},
	}
}

// NewGeneral returns the general-purpose handler used for unclassified text.
func NewGeneral(b secretary.Backend, opts ...Option) *Handler {
	cfg := newConfig(opts)
	return &Handler{
		intent:  secretary.IntentGeneral,
		backend: b,
		cfg:     cfg,
		build: func(_ context.Context, text string, hc secretary.HandlerContext) request {
			return request{prompt: cfg.withContext(text, hc)}
		},
	}
}
