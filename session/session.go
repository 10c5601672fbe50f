// Package session holds the conversation data model and its on-disk form.
// Sessions are plain JSON files under .croft/sessions so they can be
// inspected and resumed across runs.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rmkendall/croft/errors"
)

// Message roles. Checkpoint resets keep only RoleSystem entries.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a structured function call attached to an assistant message,
// or the call a tool-role message answers.
type ToolCall struct {
	ToolCallID string                 `json:"tool_call_id"`
	Name       string                 `json:"name"`
	Args       map[string]interface{} `json:"args"`
}

// Message is one entry in the conversation history.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// CheckpointRecord is the persisted payload of one checkpoint cycle.
type CheckpointRecord struct {
	Cycle   int    `json:"cycle"`
	Summary string `json:"summary"`
}

// Session is a named conversation plus the front-end settings it was started
// with, so a resumed session behaves the way it did before.
type Session struct {
	Name          string    `json:"name"`
	Messages      []Message `json:"messages"`
	Mode          string    `json:"mode,omitempty"`
	Toolset       string    `json:"toolset,omitempty"`
	ToolVerbosity string    `json:"tool_verbosity,omitempty"`
	Acp           bool      `json:"acp,omitempty"`

	path string
}

// New creates a new session.
func New(name string) (*Session, error) {
	path, err := sessionPath(name)
	if err != nil {
		return nil, err
	}
	return &Session{
		Name:     name,
		Messages: []Message{},
		path:     path,
	}, nil
}

// Load loads an existing session from disk.
func Load(name string) (*Session, error) {
	path, err := sessionPath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read session file %s", path)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "could not parse session file %s", path)
	}
	s.path = path
	return &s, nil
}

// Save writes the current session state to disk.
func (s *Session) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize session")
	}
	return os.WriteFile(s.path, data, 0644)
}

// AddMessage appends a message to the session history.
func (s *Session) AddMessage(msg Message) {
	s.Messages = append(s.Messages, msg)
}

func sessionPath(name string) (string, error) {
	dir := filepath.Join(".croft", "sessions")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "could not create session directory")
	}
	return filepath.Join(dir, fmt.Sprintf("%s.json", name)), nil
}
