package secretary

import "context"

// Intent is the classified purpose of a user utterance.
type Intent string

const (
	IntentScheduling       Intent = "scheduling"
	IntentMessaging        Intent = "messaging"
	IntentTaskPlanning     Intent = "task-planning"
	IntentContactLookup    Intent = "contact-lookup"
	IntentDocumentAnalysis Intent = "document-analysis"
	IntentGeneral          Intent = "general"
)

// Intents returns every intent in classification priority order.
func Intents() []Intent {
	return []Intent{
		IntentScheduling,
		IntentMessaging,
		IntentTaskPlanning,
		IntentContactLookup,
		IntentDocumentAnalysis,
		IntentGeneral,
	}
}

// Valid reports whether i is one of the fixed intents.
func (i Intent) Valid() bool {
	for _, known := range Intents() {
		if i == known {
			return true
		}
	}
	return false
}

// HandlerContext carries conversation state into an intent handler.
type HandlerContext struct {
	ConversationID string
	History        []Message // oldest first, excludes the current utterance
	User           *Identity // nil when unauthenticated
	Attachment     *Image
}

// Handler turns an utterance into a reply. Handle never fails: backend
// problems are reported to the user as text.
type Handler interface {
	Handle(ctx context.Context, text string, hc HandlerContext) string
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, text string, hc HandlerContext) string

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, text string, hc HandlerContext) string {
	return f(ctx, text, hc)
}
