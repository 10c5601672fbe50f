package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndSaveRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())

	sess, err := New("roundtrip")
	require.NoError(t, err)
	sess.Mode = "auto"
	sess.Toolset = "default"
	sess.AddMessage(Message{Role: RoleSystem, Content: "be terse"})
	sess.AddMessage(Message{Role: RoleUser, Content: "hello"})
	sess.AddMessage(Message{
		Role: RoleAssistant,
		ToolCalls: []ToolCall{
			{ToolCallID: "call_1", Name: "read_file", Args: map[string]interface{}{"file_path": "a.txt"}},
		},
	})
	require.NoError(t, sess.Save())

	loaded, err := Load("roundtrip")
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", loaded.Name)
	assert.Equal(t, "auto", loaded.Mode)
	assert.Equal(t, "default", loaded.Toolset)
	require.Len(t, loaded.Messages, 3)
	assert.Equal(t, RoleSystem, loaded.Messages[0].Role)
	require.Len(t, loaded.Messages[2].ToolCalls, 1)
	assert.Equal(t, "call_1", loaded.Messages[2].ToolCalls[0].ToolCallID)
	assert.Equal(t, "a.txt", loaded.Messages[2].ToolCalls[0].Args["file_path"])
}

func TestSaveWritesUnderStateDir(t *testing.T) {
	t.Chdir(t.TempDir())

	sess, err := New("where")
	require.NoError(t, err)
	require.NoError(t, sess.Save())

	_, err = os.Stat(filepath.Join(".croft", "sessions", "where.json"))
	assert.NoError(t, err)
}

func TestLoadMissingSession(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("nope")
	assert.Error(t, err)
}
