package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxxy-run/boxxy/internal/rule"
)

func TestLoad_EmptyFileYieldsEmptyRuleset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boxxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n"), 0o644))

	set, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, set.Rules)
}

func TestLoad_ZeroLengthFileYieldsEmptyRuleset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boxxy.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	set, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, set.Rules)
}

func TestLoad_ParsesRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boxxy.yaml")
	yamlContent := `
rules:
- name: "example"
  target: "~/.aws"
  rewrite: "~/.config/aws"
  mode: directory
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	set, err := Load(path)
	require.NoError(t, err)
	require.Len(t, set.Rules, 1)
	assert.Equal(t, "example", set.Rules[0].Name)
	assert.Equal(t, rule.ModeDirectory, set.Rules[0].Mode)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boxxy.yaml")
	yamlContent := "rules:\n- name: x\n  target: a\n  rewrite: b\n  bogus: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestLoadAll_MergesInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.yaml")
	second := filepath.Join(dir, "second.yaml")
	require.NoError(t, os.WriteFile(first, []byte("rules:\n- name: a\n  target: t\n  rewrite: r\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("rules:\n- name: b\n  target: t2\n  rewrite: r2\n"), 0o644))

	merged, err := LoadAll([]string{first, second})
	require.NoError(t, err)
	require.Len(t, merged.Rules, 2)
	assert.Equal(t, "a", merged.Rules[0].Name)
	assert.Equal(t, "b", merged.Rules[1].Name)
}

func TestDefaultConfigFileName_NonDebugExecutable(t *testing.T) {
	name, err := DefaultConfigFileName()
	require.NoError(t, err)
	assert.Contains(t, []string{"boxxy.yaml", "boxxy-dev.yaml"}, name)
}
