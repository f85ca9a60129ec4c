// Package fsdriver is a thin, stateless wrapper over the filesystem and
// mount syscalls boxxy needs to set up a container: bind mounts, path
// creation, and path canonicalization/symlink resolution. It owns no
// state of its own; every method is safe to call from any goroutine
// and idempotent where the underlying syscall allows it.
package fsdriver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/boxxy-run/boxxy/internal/boxlog"
)

var log = boxlog.For("fsdriver")

// ErrSymlinkLoop is returned by MaybeResolveSymlink when a chain of
// symlinks is not fully resolved within maxSymlinkDepth hops.
var ErrSymlinkLoop = errors.New("fsdriver: too many levels of symbolic links")

// maxSymlinkDepth bounds MaybeResolveSymlink's iteration. A real
// filesystem cycle (a -> b -> a) would otherwise loop forever.
const maxSymlinkDepth = 10

// FsDriver is the stateless handle used throughout the enclosure. Its
// zero value is ready to use.
type FsDriver struct{}

// New returns a ready-to-use FsDriver.
func New() FsDriver {
	return FsDriver{}
}

// AllContainersRoot is the directory under which every container gets
// its own subdirectory.
func (FsDriver) AllContainersRoot() string {
	return "/tmp/boxxy-containers"
}

// ContainerRoot returns the root directory for a named container.
func (d FsDriver) ContainerRoot(name string) string {
	return AppendAll(d.AllContainersRoot(), []string{name})
}

// SetupRoot creates the container root directory tree. Idempotent.
func (d FsDriver) SetupRoot(name string) error {
	root := d.ContainerRoot(name)
	log.Debugf("setup root %s", root)
	return os.MkdirAll(root, 0o755)
}

// CleanupRoot removes the container root directory tree. Idempotent
// when the directory does not exist.
func (d FsDriver) CleanupRoot(name string) error {
	root := d.ContainerRoot(name)
	log.Debugf("cleanup root %s", root)
	if err := os.RemoveAll(root); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// BindMountRW recursively bind-mounts src onto target.
func (d FsDriver) BindMountRW(src, target string) error {
	return d.bindMount(src, target, 0)
}

// BindMountRO recursively bind-mounts src onto target, then remounts
// it read-only. A single mount(2) call cannot create a read-only bind
// mount directly, so this is a two-step dance: bind, then remount with
// MS_REMOUNT|MS_BIND|MS_RDONLY.
func (d FsDriver) BindMountRO(src, target string) error {
	if err := d.bindMount(src, target, 0); err != nil {
		return err
	}
	return d.RemountRO(target)
}

// RemountRO remounts an already-mounted target read-only in place.
func (d FsDriver) RemountRO(target string) error {
	log.Debugf("remount %s as ro", target)
	flags := uintptr(unix.MS_REMOUNT | unix.MS_BIND | unix.MS_RDONLY)
	if err := unix.Mount("", target, "", flags, ""); err != nil {
		return fmt.Errorf("remount %s ro: %w", target, err)
	}
	return nil
}

func (d FsDriver) bindMount(src, target string, extraFlags uintptr) error {
	log.Debugf("bind mount %s onto %s", src, target)
	flags := uintptr(unix.MS_BIND|unix.MS_REC) | extraFlags
	if err := unix.Mount(src, target, "", flags, ""); err != nil {
		return fmt.Errorf("bind mount %s -> %s: %w", src, target, err)
	}
	return nil
}

// Touch creates an empty regular file. It does not truncate an
// existing file at path.
func (FsDriver) Touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// TouchDir creates path and all missing parents.
func (FsDriver) TouchDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// FullyExpandPath expands a leading "~" and attempts to canonicalize
// the result. If the path does not yet exist, canonicalization fails
// and the tilde-expanded (but not canonicalized) path is returned
// unchanged instead of erroring — this is the one place this package
// silently recovers, because a rule's rewrite/target endpoint is often
// created by the caller moments later.
func (d FsDriver) FullyExpandPath(raw string) (string, error) {
	expanded := expandTilde(raw)

	canonical, err := filepath.EvalSymlinks(expanded)
	if err != nil {
		return expanded, nil
	}

	resolved, err := d.MaybeResolveSymlink(canonical)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// MaybeResolveSymlink iteratively follows symlinks at path, re-running
// Lstat+Readlink until it lands on a non-symlink, a hard-coded depth
// limit of maxSymlinkDepth hops. Non-symlinks are returned unchanged.
func (FsDriver) MaybeResolveSymlink(path string) (string, error) {
	current := path
	for i := 0; i <= maxSymlinkDepth; i++ {
		info, err := os.Lstat(current)
		if err != nil {
			// Path doesn't exist (yet) or isn't reachable: nothing more
			// to resolve, hand back what we have.
			return current, nil
		}
		if info.Mode()&os.ModeSymlink == 0 {
			return current, nil
		}

		target, err := os.Readlink(current)
		if err != nil {
			return "", fmt.Errorf("readlink %s: %w", current, err)
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(current), target)
		}
		current = filepath.Clean(target)
	}

	return "", fmt.Errorf("%s: %w", path, ErrSymlinkLoop)
}

// AppendAll joins base with each part, stripping a leading "/" from
// each part first. This is load-bearing: it is how an absolute path
// like "/etc/passwd" gets reparented under a container root instead of
// overwriting it — append_all("/tmp/root", ["/etc/passwd"]) must yield
// "/tmp/root/etc/passwd", not "/etc/passwd".
func AppendAll(base string, parts []string) string {
	out := base
	for _, part := range parts {
		part = strings.TrimPrefix(part, string(filepath.Separator))
		out = filepath.Join(out, part)
	}
	return out
}

func expandTilde(raw string) string {
	if raw == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home
		}
		return raw
	}
	if strings.HasPrefix(raw, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, raw[2:])
		}
	}
	return raw
}
