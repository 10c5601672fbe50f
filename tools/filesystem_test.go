package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmkendall/croft/config"
	"github.com/rmkendall/croft/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFSFixture(t *testing.T, fsAccess config.FilesystemAccess) (*workspace.Context, *config.FilesystemAccess) {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	return ws, &fsAccess
}

func TestReadFileTool(t *testing.T) {
	ws, fs := newFSFixture(t, config.FilesystemAccess{})
	tool := &ReadFileTool{fsAccess: fs, ws: ws}

	path := filepath.Join(ws.Root(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\nfour"), 0644))

	got, err := tool.Execute(context.Background(), map[string]interface{}{"file_path": path})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\nfour", got)
}

func TestReadFileToolLineRange(t *testing.T) {
	ws, fs := newFSFixture(t, config.FilesystemAccess{})
	tool := &ReadFileTool{fsAccess: fs, ws: ws}

	path := filepath.Join(ws.Root(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\nfour"), 0644))

	got, err := tool.Execute(context.Background(), map[string]interface{}{
		"file_path": path, "offset": 2, "limit": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "two\nthree", got)

	got, err = tool.Execute(context.Background(), map[string]interface{}{
		"file_path": path, "offset": 10,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFileToolHidden(t *testing.T) {
	ws, fs := newFSFixture(t, config.FilesystemAccess{Hidden: []string{"secrets/**"}})
	tool := &ReadFileTool{fsAccess: fs, ws: ws}

	path := filepath.Join(ws.Root(), "secrets", "key.pem")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("key"), 0600))

	_, err := tool.Execute(context.Background(), map[string]interface{}{"file_path": path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hidden")
}

func TestReadFileToolMissingArg(t *testing.T) {
	ws, fs := newFSFixture(t, config.FilesystemAccess{})
	tool := &ReadFileTool{fsAccess: fs, ws: ws}

	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}

func TestWriteFileTool(t *testing.T) {
	ws, fs := newFSFixture(t, config.FilesystemAccess{})
	tool := &WriteFileTool{fsAccess: fs, ws: ws}

	path := filepath.Join(ws.Root(), "new", "dir", "out.txt")
	got, err := tool.Execute(context.Background(), map[string]interface{}{
		"file_path": path, "content": "hello",
	})
	require.NoError(t, err)
	assert.Contains(t, got, "5 bytes")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWriteFileToolReadOnly(t *testing.T) {
	ws, fs := newFSFixture(t, config.FilesystemAccess{ReadOnly: []string{"vendor/**"}})
	tool := &WriteFileTool{fsAccess: fs, ws: ws}

	path := filepath.Join(ws.Root(), "vendor", "lib.go")
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"file_path": path, "content": "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
}

func TestListDirTool(t *testing.T) {
	ws, fs := newFSFixture(t, config.FilesystemAccess{Hidden: []string{"*.secret"}})
	tool := &ListDirTool{fsAccess: fs, ws: ws}

	root := ws.Root()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.secret"), []byte("b"), 0644))

	got, err := tool.Execute(context.Background(), map[string]interface{}{"dir_path": root})
	require.NoError(t, err)
	assert.Contains(t, got, "a.txt\n")
	assert.Contains(t, got, "sub/\n")
	assert.NotContains(t, got, "b.secret")
}

func TestSearchFilesTool(t *testing.T) {
	ws, fs := newFSFixture(t, config.FilesystemAccess{Hidden: []string{".croft/**"}})
	tool := &SearchFilesTool{fsAccess: fs, ws: ws}

	root := ws.Root()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".croft"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main\nfunc main() {}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "util.go"), []byte("package main\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".croft", "state.go"), []byte("package state\n"), 0644))

	got, err := tool.Execute(context.Background(), map[string]interface{}{"pattern": "**/*.go"})
	require.NoError(t, err)
	assert.Contains(t, got, "src/main.go")
	assert.Contains(t, got, "src/util.go")
	assert.NotContains(t, got, ".croft")
}

func TestSearchFilesToolQuery(t *testing.T) {
	ws, fs := newFSFixture(t, config.FilesystemAccess{})
	tool := &SearchFilesTool{fsAccess: fs, ws: ws}

	root := ws.Root()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package main\nfunc Target() {}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package main\n"), 0644))

	got, err := tool.Execute(context.Background(), map[string]interface{}{
		"pattern": "*.go", "query": "Target",
	})
	require.NoError(t, err)
	assert.Contains(t, got, "a.go:2: func Target() {}")
	assert.NotContains(t, got, "b.go")
}

func TestSearchFilesToolNoMatches(t *testing.T) {
	ws, fs := newFSFixture(t, config.FilesystemAccess{})
	tool := &SearchFilesTool{fsAccess: fs, ws: ws}

	got, err := tool.Execute(context.Background(), map[string]interface{}{"pattern": "*.rs"})
	require.NoError(t, err)
	assert.Equal(t, "No matches found.", got)
}
