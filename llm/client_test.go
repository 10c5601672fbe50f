package llm

import (
	"context"
	"testing"

	"github.com/rmkendall/croft/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClientParrotsLastMessage(t *testing.T) {
	client := &MockClient{}

	resp, err := client.Chat(context.Background(), []session.Message{
		{Role: session.RoleUser, Content: "first"},
		{Role: session.RoleUser, Content: "second"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, session.RoleAssistant, resp.Role)
	assert.Contains(t, resp.Content, "second")
	assert.Empty(t, resp.ToolCalls)
}

func TestMockClientEmptyHistory(t *testing.T) {
	client := &MockClient{}

	resp, err := client.Chat(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Content)
}
