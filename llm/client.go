// Package llm holds the model-provider collaborators. Each client speaks one
// provider API and converts between the runtime's message model and the
// provider's wire format, surfacing provider-native tool calls as
// session.ToolCall values.
package llm

import (
	"context"
	"fmt"

	"github.com/rmkendall/croft/session"
	"github.com/rmkendall/croft/tools"
)

// Client is the interface for interacting with a Large Language Model.
type Client interface {
	Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error)
}

// MockClient is a stand-in provider for development and tests. It parrots
// the last message back and never requests tools.
type MockClient struct{}

func (m *MockClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	last := ""
	if len(messages) > 0 {
		last = messages[len(messages)-1].Content
	}
	return &session.Message{
		Role:    session.RoleAssistant,
		Content: fmt.Sprintf("I am a mock model. You said: '%s'. I cannot use tools.", last),
	}, nil
}
