package tracer

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestCachedString_MemoizesPerStop(t *testing.T) {
	cp := newChildProcess(1234, 0)

	reads := 0
	read := func() (string, error) {
		reads++
		return "/etc/hostname", nil
	}

	s, err := cp.cachedString(0xdead, read)
	require.NoError(t, err)
	assert.Equal(t, "/etc/hostname", s)

	s, err = cp.cachedString(0xdead, read)
	require.NoError(t, err)
	assert.Equal(t, "/etc/hostname", s)
	assert.Equal(t, 1, reads)

	// A different address misses the cache.
	_, err = cp.cachedString(0xbeef, read)
	require.NoError(t, err)
	assert.Equal(t, 2, reads)
}

func TestCachedString_ErrorNotCached(t *testing.T) {
	cp := newChildProcess(1234, 0)

	reads := 0
	failing := func() (string, error) {
		reads++
		return "", fmt.Errorf("peek failed")
	}

	_, err := cp.cachedString(0x1, failing)
	require.Error(t, err)
	_, err = cp.cachedString(0x1, failing)
	require.Error(t, err)
	assert.Equal(t, 2, reads)
}

func TestFdPath_ResolvesRegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "fdpath")
	require.NoError(t, err)
	defer f.Close()

	got, ok := fdPath(os.Getpid(), int32(f.Fd()))
	require.True(t, ok)

	want, err := filepath.EvalSymlinks(f.Name())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFdPath_DiscardsPipes(t *testing.T) {
	fds := make([]int, 2)
	require.NoError(t, unix.Pipe(fds))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	_, ok := fdPath(os.Getpid(), int32(fds[0]))
	assert.False(t, ok)
}

func TestFdPath_NegativeFd(t *testing.T) {
	_, ok := fdPath(os.Getpid(), -1)
	assert.False(t, ok)
}

func TestNewChildProcess_StartsCreated(t *testing.T) {
	cp := newChildProcess(42, 7)
	assert.Equal(t, 42, cp.Pid)
	assert.Equal(t, 7, cp.Parent)
	assert.Equal(t, StateCreated, cp.State)
	assert.NotNil(t, cp.stringCache)
}
