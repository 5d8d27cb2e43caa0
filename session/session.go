// Package session holds the chat types shared by the LLM clients and the
// conversation log kept per chat exchange.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ToolCall records a single tool invocation requested by the model.
type ToolCall struct {
	ToolCallID string         `json:"tool_call_id"`
	Name       string         `json:"name"`
	Args       map[string]any `json:"args,omitempty"`
}

// Message is one entry in a model conversation.
// Role is "user", "assistant", "tool" or "system".
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Turn is one completed user/assistant exchange. Turns are append-only;
// a turn is never rewritten once recorded.
type Turn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	At        time.Time `json:"at"`
}

// Conversation is the persisted log of turns for one chat.
type Conversation struct {
	ID    string `json:"id"`
	Turns []Turn `json:"turns"`
	path  string
}

// New creates a new conversation log.
func New(id string) (*Conversation, error) {
	path, err := conversationPath(id)
	if err != nil {
		return nil, err
	}
	return &Conversation{ID: id, path: path}, nil
}

// Load reads an existing conversation log from disk.
func Load(id string) (*Conversation, error) {
	path, err := conversationPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read conversation file %s: %w", path, err)
	}

	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("could not parse conversation file %s: %w", path, err)
	}
	c.path = path
	return &c, nil
}

// AddTurn appends a completed exchange to the log.
func (c *Conversation) AddTurn(user, assistant string) {
	c.Turns = append(c.Turns, Turn{User: user, Assistant: assistant, At: time.Now()})
}

// Save writes the current log to disk.
func (c *Conversation) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize conversation: %w", err)
	}
	return os.WriteFile(c.path, data, 0644)
}

// Clear drops all recorded turns.
func (c *Conversation) Clear() {
	c.Turns = nil
}

// Log renders the conversation the way the chat window shows it.
func (c *Conversation) Log() string {
	var out string
	for _, t := range c.Turns {
		out += fmt.Sprintf("User: %s\nAssistant: %s\n", t.User, t.Assistant)
	}
	return out
}

func conversationPath(id string) (string, error) {
	dir := filepath.Join(".odoo-agent", "conversations")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("could not create conversation directory: %w", err)
	}
	return filepath.Join(dir, fmt.Sprintf("%s.json", id)), nil
}
