package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "sysfeed.pid")

	require.NoError(t, Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	// Rewriting our own PID is not a conflict.
	require.NoError(t, Write(path))

	require.NoError(t, Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, Remove(path))
}

func TestWriteRejectsLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sysfeed.pid")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0o600))

	err := Write(path)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))

	// Someone else's file is left alone.
	require.NoError(t, Remove(path))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sysfeed.pid")
	require.NoError(t, os.WriteFile(path, []byte("not a pid\n"), 0o600))

	require.NoError(t, Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}
