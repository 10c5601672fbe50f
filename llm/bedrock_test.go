package llm

import (
	"encoding/json"
	"testing"

	"github.com/rmkendall/croft/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBedrockMessages(t *testing.T) {
	msgs := []session.Message{
		{Role: session.RoleSystem, Content: "be terse"},
		{Role: session.RoleUser, Content: "hello"},
		{
			Role:    session.RoleAssistant,
			Content: "reading",
			ToolCalls: []session.ToolCall{
				{ToolCallID: "call_1", Name: "read_file", Args: map[string]interface{}{"file_path": "a.txt"}},
			},
		},
		{
			Role:      session.RoleTool,
			Content:   "file contents",
			ToolCalls: []session.ToolCall{{ToolCallID: "call_1"}},
		},
		{Role: session.RoleAssistant, Content: ""},
	}

	out, systemPrompt := toBedrockMessages(msgs)

	assert.Equal(t, "be terse", systemPrompt)
	require.Len(t, out, 3)

	assert.Equal(t, "user", out[0]["role"])

	blocks := out[1]["content"].([]map[string]interface{})
	require.Len(t, blocks, 2)
	assert.Equal(t, "text", blocks[0]["type"])
	assert.Equal(t, "tool_use", blocks[1]["type"])
	assert.Equal(t, "call_1", blocks[1]["id"])

	// Tool results come back as user-role tool_result blocks.
	assert.Equal(t, "user", out[2]["role"])
	resBlocks := out[2]["content"].([]map[string]interface{})
	assert.Equal(t, "tool_result", resBlocks[0]["type"])
	assert.Equal(t, "call_1", resBlocks[0]["tool_use_id"])
}

func TestBuildBedrockRequest(t *testing.T) {
	msgs, _ := toBedrockMessages([]session.Message{{Role: session.RoleUser, Content: "hi"}})

	body, err := buildBedrockRequest(msgs, "system prompt", nil)
	require.NoError(t, err)

	var req map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "bedrock-2023-05-31", req["anthropic_version"])
	assert.Equal(t, "system prompt", req["system"])
	assert.NotContains(t, req, "tools")
}

func TestFromBedrockResponse(t *testing.T) {
	body := []byte(`{
		"content": [
			{"type": "text", "text": "let me check"},
			{"type": "tool_use", "id": "toolu_1", "name": "list_dir", "input": {"dir_path": "."}}
		]
	}`)

	msg, err := fromBedrockResponse(body)
	require.NoError(t, err)
	assert.Equal(t, session.RoleAssistant, msg.Role)
	assert.Equal(t, "let me check", msg.Content)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "toolu_1", msg.ToolCalls[0].ToolCallID)
	assert.Equal(t, ".", msg.ToolCalls[0].Args["dir_path"])
}

func TestFromBedrockResponseError(t *testing.T) {
	_, err := fromBedrockResponse([]byte(`{"error": {"message": "throttled"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
