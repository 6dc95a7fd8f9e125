// Package json encodes conversation history and exports as versioned JSON
// documents.
//
// Two document kinds exist: the history snapshot written to a Medium after
// every store mutation, and the export a user downloads for one
// conversation. Both share the message representation, so an export can be
// fed back through store.Import.
package json

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/secretary"
)

const version = 1

// historyEnvelope is the v1 wire format for a persisted history snapshot.
type historyEnvelope struct {
	Version  int          `json:"version"`
	SavedAt  time.Time    `json:"saved_at"`
	Messages []messageDTO `json:"messages"`
}

// messageDTO is the JSON representation of a Message.
type messageDTO struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Intent         string    `json:"intent,omitempty"`
}

// MarshalHistory serializes the full message log in v1 envelope format.
func MarshalHistory(msgs []secretary.Message, savedAt time.Time) ([]byte, error) {
	env := historyEnvelope{
		Version:  version,
		SavedAt:  savedAt,
		Messages: marshalMessages(msgs),
	}
	return json.Marshal(env)
}

// UnmarshalHistory deserializes a message log from v1 envelope format.
func UnmarshalHistory(data []byte) ([]secretary.Message, error) {
	var env historyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != version {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	return unmarshalMessages(env.Messages)
}

func marshalMessages(msgs []secretary.Message) []messageDTO {
	dtos := make([]messageDTO, len(msgs))
	for i, m := range msgs {
		dtos[i] = messageDTO{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			Role:           string(m.Role),
			Content:        m.Content,
			CreatedAt:      m.CreatedAt,
			Intent:         string(m.Intent),
		}
	}
	return dtos
}

func unmarshalMessages(dtos []messageDTO) ([]secretary.Message, error) {
	msgs := make([]secretary.Message, len(dtos))
	for i, dto := range dtos {
		msg, err := unmarshalMessage(dto)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		msgs[i] = msg
	}
	return msgs, nil
}

func unmarshalMessage(dto messageDTO) (secretary.Message, error) {
	role := secretary.Role(dto.Role)
	if !role.Valid() {
		return secretary.Message{}, fmt.Errorf("unknown role %q", dto.Role)
	}
	if dto.ConversationID == "" {
		return secretary.Message{}, fmt.Errorf("missing conversation_id")
	}
	intent := secretary.Intent(dto.Intent)
	if intent != "" && !intent.Valid() {
		return secretary.Message{}, fmt.Errorf("unknown intent %q", dto.Intent)
	}
	return secretary.Message{
		ID:             dto.ID,
		ConversationID: dto.ConversationID,
		Role:           role,
		Content:        dto.Content,
		CreatedAt:      dto.CreatedAt,
		Intent:         intent,
	}, nil
}
