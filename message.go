package secretary

import "time"

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single entry in a conversation. Messages are values and are
// never mutated once stored.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	CreatedAt      time.Time
	Intent         Intent // empty for user messages
}

// ConversationSummary describes one conversation held by the store.
type ConversationSummary struct {
	ID           string
	MessageCount int
	LastMessage  Message
}

// LastMessageAt returns the creation time of the newest message.
func (s ConversationSummary) LastMessageAt() time.Time {
	return s.LastMessage.CreatedAt
}

// Statistics aggregates counts over the stored history.
type Statistics struct {
	TotalMessages          int
	UserMessages           int
	AssistantMessages      int
	Conversations          int
	AveragePerConversation float64
	LastActivity           time.Time // zero when nothing is stored
}

// SentimentLabel classifies the tone of a conversation.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// Sentiment is a keyword-based estimate of a conversation's tone.
type Sentiment struct {
	Label SentimentLabel
	Score float64
}

// Export is a downloadable snapshot of one conversation.
type Export struct {
	ConversationID string
	ExportDate     time.Time
	MessageCount   int
	Messages       []Message
}

// Filename returns the suggested download name for the export.
func (e Export) Filename() string {
	return "conversation-" + e.ConversationID + "-" + e.ExportDate.Format(time.DateOnly) + ".json"
}
