package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/secretary"
)

// exportEnvelope is the v1 wire format for a conversation export.
type exportEnvelope struct {
	Version        int          `json:"version"`
	ConversationID string       `json:"conversation_id"`
	ExportDate     time.Time    `json:"export_date"`
	MessageCount   int          `json:"message_count"`
	Messages       []messageDTO `json:"messages"`
}

// MarshalExport serializes an export as indented JSON.
func MarshalExport(e secretary.Export) ([]byte, error) {
	env := exportEnvelope{
		Version:        version,
		ConversationID: e.ConversationID,
		ExportDate:     e.ExportDate,
		MessageCount:   len(e.Messages),
		Messages:       marshalMessages(e.Messages),
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalExport deserializes an export. Every message must belong to the
// exported conversation.
func UnmarshalExport(data []byte) (secretary.Export, error) {
	var env exportEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return secretary.Export{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != version {
		return secretary.Export{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	msgs, err := unmarshalMessages(env.Messages)
	if err != nil {
		return secretary.Export{}, err
	}
	for i, m := range msgs {
		if m.ConversationID != env.ConversationID {
			return secretary.Export{}, fmt.Errorf("message %d: conversation %q does not match export %q", i, m.ConversationID, env.ConversationID)
		}
	}
	return secretary.Export{
		ConversationID: env.ConversationID,
		ExportDate:     env.ExportDate,
		MessageCount:   len(msgs),
		Messages:       msgs,
	}, nil
}

// Save writes an export to a JSON file, creating parent directories as needed.
func Save(path string, e secretary.Export) error {
	data, err := MarshalExport(e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return WriteFile(path, data)
}

// Load reads an export from a JSON file.
func Load(path string) (secretary.Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return secretary.Export{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalExport(data)
}

// WriteFile atomically replaces path with data via a temp file and rename.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
