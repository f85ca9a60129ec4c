package fsdriver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAll_StripsLeadingSlash(t *testing.T) {
	got := AppendAll("/tmp/root", []string{"/etc/passwd"})
	assert.Equal(t, "/tmp/root/etc/passwd", got)
}

func TestAppendAll_MultipleParts(t *testing.T) {
	got := AppendAll("/tmp/root", []string{"/etc", "passwd"})
	assert.Equal(t, "/tmp/root/etc/passwd", got)
}

func TestAppendAll_IsDescendantOfBase(t *testing.T) {
	root := "/tmp/boxxy-containers/bold-snow-1234"
	got := AppendAll(root, []string{"/home/user/.aws"})
	assert.True(t, filepath.HasPrefix(got, root) || got == root)
	rel, err := filepath.Rel(root, got)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(rel))
}

func TestTouch_DoesNotTruncateExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.cfg")
	require.NoError(t, os.WriteFile(path, []byte("ok\n"), 0o644))

	d := New()
	require.NoError(t, d.Touch(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(data))
}

func TestTouch_CreatesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.cfg")

	d := New()
	require.NoError(t, d.Touch(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestTouchDir_CreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "c")

	d := New()
	require.NoError(t, d.TouchDir(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMaybeResolveSymlink_NonSymlinkUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	d := New()
	got, err := d.MaybeResolveSymlink(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestMaybeResolveSymlink_FollowsChain(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	link1 := filepath.Join(dir, "link1")
	link2 := filepath.Join(dir, "link2")
	require.NoError(t, os.Symlink(target, link1))
	require.NoError(t, os.Symlink(link1, link2))

	d := New()
	got, err := d.MaybeResolveSymlink(link2)
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestMaybeResolveSymlink_CycleFailsWithinBound(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.Symlink(b, a))
	require.NoError(t, os.Symlink(a, b))

	d := New()
	_, err := d.MaybeResolveSymlink(a)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSymlinkLoop)
}

func TestFullyExpandPath_MissingPathReturnsTildeExpanded(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	d := New()
	got, err := d.FullyExpandPath("~/boxxy-does-not-exist-xyz")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "boxxy-does-not-exist-xyz"), got)
}

func TestFullyExpandPath_ExistingPathCanonicalizes(t *testing.T) {
	dir := t.TempDir()
	real, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	d := New()
	got, err := d.FullyExpandPath(dir)
	require.NoError(t, err)
	assert.Equal(t, real, got)
}

func TestContainerRoot_NestsUnderAllContainersRoot(t *testing.T) {
	d := New()
	got := d.ContainerRoot("bold-snow-1234")
	assert.Equal(t, filepath.Join(d.AllContainersRoot(), "bold-snow-1234"), got)
}

func TestSetupRoot_IdempotentAndCleanupRoot_IdempotentOnMissing(t *testing.T) {
	d := New()
	name := "boxxy-fsdriver-test-container"
	defer d.CleanupRoot(name)

	require.NoError(t, d.SetupRoot(name))
	require.NoError(t, d.SetupRoot(name))

	info, err := os.Stat(d.ContainerRoot(name))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, d.CleanupRoot(name))
	require.NoError(t, d.CleanupRoot(name))

	_, err = os.Stat(d.ContainerRoot(name))
	assert.True(t, os.IsNotExist(err))
}
