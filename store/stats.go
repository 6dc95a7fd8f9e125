package store

import (
	"strings"

	"github.com/fwojciec/secretary"
)

var (
	positiveWords = []string{"спасибо", "отлично", "хорошо", "нравится", "люблю", "рад"}
	negativeWords = []string{"плохо", "ужасно", "ненавижу", "злой", "грустно", "разочарован"}
)

// Statistics aggregates counts over every stored message.
func (s *Store) Statistics() secretary.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st secretary.Statistics
	conversations := make(map[string]struct{})
	for _, m := range s.messages {
		st.TotalMessages++
		switch m.Role {
		case secretary.RoleUser:
			st.UserMessages++
		case secretary.RoleAssistant:
			st.AssistantMessages++
		}
		conversations[m.ConversationID] = struct{}{}
		if m.CreatedAt.After(st.LastActivity) {
			st.LastActivity = m.CreatedAt
		}
	}
	st.Conversations = len(conversations)
	if st.Conversations > 0 {
		st.AveragePerConversation = float64(st.TotalMessages) / float64(st.Conversations)
	}
	return st
}

// Sentiment estimates the tone of a conversation from keyword hits. Each
// keyword counts at most once per message.
func (s *Store) Sentiment(conversationID string) secretary.Sentiment {
	msgs := s.Query(conversationID)
	if len(msgs) == 0 {
		return secretary.Sentiment{Label: secretary.SentimentNeutral, Score: 0}
	}

	var pos, neg int
	for _, m := range msgs {
		content := strings.ToLower(m.Content)
		pos += countHits(content, positiveWords)
		neg += countHits(content, negativeWords)
	}

	total := float64(len(msgs))
	switch {
	case pos > neg:
		return secretary.Sentiment{Label: secretary.SentimentPositive, Score: min(float64(pos)/total, 1)}
	case neg > pos:
		return secretary.Sentiment{Label: secretary.SentimentNegative, Score: min(float64(neg)/total, 1)}
	default:
		return secretary.Sentiment{Label: secretary.SentimentNeutral, Score: 0.5}
	}
}

func countHits(content string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(content, w) {
			n++
		}
	}
	return n
}
