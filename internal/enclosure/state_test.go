package enclosure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxxy-run/boxxy/internal/rule"
)

func TestWriteReadState_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.gob")

	want := state{
		Name:          "bold-snow-1234",
		ContainerRoot: "/tmp/boxxy-containers/bold-snow-1234",
		Rules: rule.Ruleset{Rules: []rule.Rule{
			{Name: "aws", Target: "~/.aws", Rewrite: "~/.config/aws", Mode: rule.ModeDirectory},
		}},
		Command:       "ls",
		Args:          []string{"-la"},
		Env:           []string{"HOME=/root", "PATH=/usr/bin"},
		Cwd:           "/tmp",
		ImmutableRoot: true,
		Trace:         false,
		Dotenv:        true,
	}

	require.NoError(t, writeState(path, want))

	got, err := readState(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIsReexec_RecognizesSentinel(t *testing.T) {
	stateFile, ok := IsReexec([]string{"/usr/bin/boxxy", reexecSentinel, "/tmp/state.gob"})
	require.True(t, ok)
	assert.Equal(t, "/tmp/state.gob", stateFile)
}

func TestIsReexec_NormalInvocationIsNotReexec(t *testing.T) {
	_, ok := IsReexec([]string{"/usr/bin/boxxy", "-t", "--", "ls"})
	assert.False(t, ok)
}
