package enclosure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxxy-run/boxxy/internal/fsdriver"
	"github.com/boxxy-run/boxxy/internal/rule"
)

func newTestEnclosure(t *testing.T) *Enclosure {
	t.Helper()
	return &Enclosure{fs: fsdriver.New(), container: Container{Name: "test-enclosure"}}
}

func TestEnsureFile_CreatesMissingFileAndParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "y.cfg")

	e := newTestEnclosure(t)
	created, err := e.ensureFile(path)
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestEnsureFile_ExistingFileNotRecreated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "y.cfg")
	require.NoError(t, os.WriteFile(path, []byte("ok\n"), 0o644))

	e := newTestEnclosure(t)
	created, err := e.ensureFile(path)
	require.NoError(t, err)
	assert.False(t, created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(data))
}

func TestEnsureDirectory_CreatesMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "b")

	e := newTestEnclosure(t)
	created, err := e.ensureDirectory(path)
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// TestPreCreateEndpoints_IdempotentOnSecondRun exercises the "Idempotent
// endpoint creation" property: running setup twice on the same ruleset
// creates the same files/dirs, and the CreatedFiles/CreatedDirectories
// lists from the second run are empty.
func TestPreCreateEndpoints_IdempotentOnSecondRun(t *testing.T) {
	dir := t.TempDir()
	rewriteFile := filepath.Join(dir, "y.cfg")
	rewriteDir := filepath.Join(dir, "b")

	rules := rule.Ruleset{Rules: []rule.Rule{
		{Name: "file-rule", Target: filepath.Join(dir, "x.cfg"), Rewrite: rewriteFile, Mode: rule.ModeFile},
		{Name: "dir-rule", Target: filepath.Join(dir, "a"), Rewrite: rewriteDir, Mode: rule.ModeDirectory},
	}}

	e := newTestEnclosure(t)
	require.NoError(t, e.preCreateEndpoints(rules))
	assert.ElementsMatch(t, []string{rewriteFile}, e.container.CreatedFiles)
	assert.ElementsMatch(t, []string{rewriteDir}, e.container.CreatedDirectories)

	e2 := newTestEnclosure(t)
	require.NoError(t, e2.preCreateEndpoints(rules))
	assert.Empty(t, e2.container.CreatedFiles)
	assert.Empty(t, e2.container.CreatedDirectories)
}
