package errors

import (
	goerrors "errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnnotatesCallSite(t *testing.T) {
	err := New("something %s", "broke")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "errors_test.go:")
	assert.Contains(t, err.Error(), "something broke")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
	assert.NoError(t, Wrapf(nil, "context %d", 1))
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrapf(os.ErrNotExist, "reading %s", "config")
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "reading config")
}
