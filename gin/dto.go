package gin

import (
	"time"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/chat"
)

type errorResponse struct {
	Error string `json:"error"`
}

type identityDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

func identityOf(id *secretary.Identity) *identityDTO {
	if id == nil {
		return nil
	}
	return &identityDTO{ID: id.ID, DisplayName: id.DisplayName, Email: id.Email, AvatarURL: id.AvatarURL}
}

type messageDTO struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Intent         string    `json:"intent,omitempty"`
}

func messageOf(m secretary.Message) messageDTO {
	return messageDTO{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           string(m.Role),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		Intent:         string(m.Intent),
	}
}

func messagesOf(msgs []secretary.Message) []messageDTO {
	out := make([]messageDTO, len(msgs))
	for i, m := range msgs {
		out[i] = messageOf(m)
	}
	return out
}

type summaryDTO struct {
	ID            string     `json:"id"`
	MessageCount  int        `json:"message_count"`
	LastMessage   messageDTO `json:"last_message"`
	LastMessageAt time.Time  `json:"last_message_at"`
}

type sessionResponse struct {
	State        string       `json:"state"`
	User         *identityDTO `json:"user"`
	Conversation string       `json:"conversation,omitempty"`
}

type signInResponse struct {
	Token string       `json:"token"`
	User  *identityDTO `json:"user"`
}

type chatRequest struct {
	Text string `json:"text" binding:"required"`
}

type replyResponse struct {
	ConversationID string     `json:"conversation_id"`
	Intent         string     `json:"intent"`
	User           messageDTO `json:"user"`
	Assistant      messageDTO `json:"assistant"`
	Discarded      bool       `json:"discarded"`
	Warning        string     `json:"warning,omitempty"`
}

func replyOf(r chat.Reply) replyResponse {
	out := replyResponse{
		ConversationID: r.ConversationID,
		Intent:         string(r.Intent),
		User:           messageOf(r.User),
		Assistant:      messageOf(r.Assistant),
		Discarded:      r.Discarded,
	}
	if r.Warning != nil {
		out.Warning = r.Warning.Error()
	}
	return out
}

type statsResponse struct {
	TotalMessages          int       `json:"total_messages"`
	UserMessages           int       `json:"user_messages"`
	AssistantMessages      int       `json:"assistant_messages"`
	Conversations          int       `json:"conversations"`
	AveragePerConversation float64   `json:"average_per_conversation"`
	LastActivity           time.Time `json:"last_activity"`
}

type sentimentResponse struct {
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
}

type mailRequest struct {
	To      []string `json:"to" binding:"required"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}
