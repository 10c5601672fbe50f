package toolcall

import (
	"encoding/json"
	goerrors "errors"
	"path/filepath"
	"testing"

	"github.com/rmkendall/croft/config"
	"github.com/rmkendall/croft/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var readFileSpec = config.ToolSpec{
	Aliases:    map[string]string{"path": "file_path", "filename": "file_path"},
	PathParams: []string{"file_path"},
	IntParams:  []string{"limit", "offset"},
	Required:   []string{"file_path"},
}

func TestNormalizeAliasAndPath(t *testing.T) {
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	got, err := Normalize(map[string]interface{}{"path": "src/x.py"}, readFileSpec, ws)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Root(), "src", "x.py"), got["file_path"])
	assert.NotContains(t, got, "path")
}

func TestNormalizeCanonicalKeyWins(t *testing.T) {
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	got, err := Normalize(map[string]interface{}{
		"file_path": "real.txt",
		"path":      "decoy.txt",
	}, readFileSpec, ws)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws.Root(), "real.txt"), got["file_path"])
}

func TestNormalizeDeterministic(t *testing.T) {
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	args := map[string]interface{}{"path": "a.txt", "filename": "b.txt"}
	first, err := Normalize(args, readFileSpec, ws)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Normalize(args, readFileSpec, ws)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	args := map[string]interface{}{"path": "a.txt", "limit": "10"}
	_, err = Normalize(args, readFileSpec, ws)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"path": "a.txt", "limit": "10"}, args)
}

func TestNormalizeSandboxEscape(t *testing.T) {
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	_, err = Normalize(map[string]interface{}{"file_path": "../../etc/passwd"}, readFileSpec, ws)
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, workspace.ErrOutsideRoot))
}

func TestNormalizeIntCoercion(t *testing.T) {
	got, err := Normalize(map[string]interface{}{
		"limit":  "25",
		"offset": 3,
	}, readFileSpec, nil)
	require.NoError(t, err)
	assert.Equal(t, 25, got["limit"])
	assert.Equal(t, 3, got["offset"])
}

func TestNormalizeJSONNumberCoercion(t *testing.T) {
	// encoding/json decodes numeric arguments from native provider calls as
	// float64; they must still land as ints.
	got, err := Normalize(map[string]interface{}{
		"offset": float64(2),
		"limit":  json.Number("7"),
	}, readFileSpec, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, got["offset"])
	assert.Equal(t, 7, got["limit"])
}

func TestNormalizeFractionalFloatLeftAlone(t *testing.T) {
	got, err := Normalize(map[string]interface{}{"offset": 2.5}, readFileSpec, nil)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got["offset"])
}

func TestNormalizeBadIntLeftAlone(t *testing.T) {
	got, err := Normalize(map[string]interface{}{"limit": "lots"}, readFileSpec, nil)
	require.NoError(t, err)
	assert.Equal(t, "lots", got["limit"])
}

func TestNormalizeSkipsAbsentAndNonStringPaths(t *testing.T) {
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	got, err := Normalize(map[string]interface{}{"file_path": 42}, readFileSpec, ws)
	require.NoError(t, err)
	assert.Equal(t, 42, got["file_path"])

	got, err = Normalize(map[string]interface{}{}, readFileSpec, ws)
	require.NoError(t, err)
	assert.Empty(t, got)
}
