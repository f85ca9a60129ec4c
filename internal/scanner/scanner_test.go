package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LoadsEmbeddedCatalogs(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	assert.NotEmpty(t, s.Apps)

	var names []string
	for _, a := range s.Apps {
		names = append(names, a.Name)
	}
	assert.Contains(t, names, "git")
	assert.Contains(t, names, "vscode")
}

func TestScan_FindsExactPathMatch(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "present.cfg")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	s := &Scanner{Apps: []App{
		{Name: "present-app", Paths: []string{target}},
		{Name: "missing-app", Paths: []string{filepath.Join(dir, "absent.cfg")}},
	}}

	found, err := s.Scan()
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "present-app", found[0].Name)
}

func TestScan_GlobPattern(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "extensions", "foo.bar-1.0.0"), 0o755))

	s := &Scanner{Apps: []App{
		{Name: "glob-app", Paths: []string{filepath.Join(dir, "extensions", "*")}},
	}}

	found, err := s.Scan()
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "glob-app", found[0].Name)
}

func TestScan_NoMatches(t *testing.T) {
	dir := t.TempDir()
	s := &Scanner{Apps: []App{
		{Name: "absent-app", Paths: []string{filepath.Join(dir, "nope")}},
	}}

	found, err := s.Scan()
	require.NoError(t, err)
	assert.Empty(t, found)
}
