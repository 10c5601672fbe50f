package workspace

import (
	goerrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ws, err := New(t.TempDir())
	require.NoError(t, err)
	return ws
}

func TestNewRejectsBadRoots(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = New(file)
	assert.Error(t, err)
}

func TestResolveRelativePath(t *testing.T) {
	ws := newTestContext(t)

	got, err := ws.Resolve("src/main.py")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Root(), "src", "main.py"), got)
}

func TestResolveRootItself(t *testing.T) {
	ws := newTestContext(t)

	got, err := ws.Resolve(".")
	require.NoError(t, err)
	assert.Equal(t, ws.Root(), got)
}

func TestResolveAbsoluteInsideRoot(t *testing.T) {
	ws := newTestContext(t)

	abs := filepath.Join(ws.Root(), "notes.md")
	got, err := ws.Resolve(abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)
}

func TestResolveRejectsEscapes(t *testing.T) {
	ws := newTestContext(t)

	cases := []string{
		"../outside.txt",
		"a/../../outside.txt",
		"/etc/passwd",
		"~/secrets.txt",
	}
	for _, path := range cases {
		t.Run(path, func(t *testing.T) {
			_, err := ws.Resolve(path)
			require.Error(t, err)
			assert.True(t, goerrors.Is(err, ErrOutsideRoot), "expected ErrOutsideRoot, got %v", err)
		})
	}
}

func TestResolveRejectsEmptyPath(t *testing.T) {
	ws := newTestContext(t)

	_, err := ws.Resolve("  ")
	require.Error(t, err)
	assert.False(t, goerrors.Is(err, ErrOutsideRoot))
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("x"), 0644))
	ws := newTestContext(t)
	require.NoError(t, os.Symlink(outside, filepath.Join(ws.Root(), "link")))

	for _, path := range []string{"link", "link/secret.txt", "link/new.txt"} {
		t.Run(path, func(t *testing.T) {
			_, err := ws.Resolve(path)
			require.Error(t, err)
			assert.True(t, goerrors.Is(err, ErrOutsideRoot), "expected ErrOutsideRoot, got %v", err)
		})
	}
}

func TestResolveFollowsInternalSymlink(t *testing.T) {
	ws := newTestContext(t)
	require.NoError(t, os.Mkdir(filepath.Join(ws.Root(), "data"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(ws.Root(), "data"), filepath.Join(ws.Root(), "alias")))

	got, err := ws.Resolve("alias/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Root(), "alias", "file.txt"), got)
}

func TestResolveNormalizesDotSegments(t *testing.T) {
	ws := newTestContext(t)

	got, err := ws.Resolve("a/./b/../c.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Root(), "a", "c.txt"), got)
}
