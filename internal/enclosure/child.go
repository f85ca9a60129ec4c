package enclosure

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/joho/godotenv"
	"golang.org/x/sys/unix"

	"github.com/boxxy-run/boxxy/internal/fsdriver"
	"github.com/boxxy-run/boxxy/internal/rule"
)

// RunChild is the entrypoint for the re-exec'd clone child: it is
// invoked from main() as soon as argv identifies this process via
// IsReexec, before any normal CLI parsing happens. It returns the
// status the process should exit with: the target command's exit
// status, or 1 on a fatal setup error.
//
// By the time this runs, the synchronization stop has already come
// and gone: the parent started this process under PTRACE_TRACEME, so
// it stopped on the exec SIGTRAP and was only released once the
// uid/gid maps were installed. Everything below can therefore touch
// the filesystem as the mapped user straight away.
func RunChild(stateFile string) int {
	s, err := readState(stateFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fs := fsdriver.New()
	if err := runInContainer(fs, s); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return spawnTarget(s)
}

func runInContainer(fs fsdriver.FsDriver, s state) error {
	if err := fs.SetupRoot(s.Name); err != nil {
		return &NamespaceError{Op: "setup root", Err: err}
	}
	if err := fs.BindMountRW("/", s.ContainerRoot); err != nil {
		return &NamespaceError{Op: "bind mount root", Err: err}
	}

	if err := applyRules(fs, s); err != nil {
		return err
	}

	if s.Trace {
		if err := unix.Chroot(s.ContainerRoot); err != nil {
			return &NamespaceError{Op: "chroot", Err: err}
		}
	} else if err := pivotIntoRoot(s.ContainerRoot); err != nil {
		return err
	}

	if err := os.Chdir(s.Cwd); err != nil {
		return &NamespaceError{Op: "chdir", Err: err}
	}

	if s.ImmutableRoot {
		if err := fs.RemountRO("/"); err != nil {
			return &NamespaceError{Op: "remount root ro", Err: err}
		}
	}

	return nil
}

// applyRules bind-mounts each matched rule's rewrite over its target
// inside the new root, creating the container-side endpoint first if
// it doesn't already exist. The rewrite-side endpoint was already
// created by the parent in preCreateEndpoints.
func applyRules(fs fsdriver.FsDriver, s state) error {
	for _, r := range s.Rules.Rules {
		target, err := fs.FullyExpandPath(r.Target)
		if err != nil {
			return fmt.Errorf("rule %q: expand target %q: %w", r.Name, r.Target, err)
		}
		rewrite, err := fs.FullyExpandPath(r.Rewrite)
		if err != nil {
			return fmt.Errorf("rule %q: expand rewrite %q: %w", r.Name, r.Rewrite, err)
		}

		inContainerTarget := fsdriver.AppendAll(s.ContainerRoot, []string{target})
		if err := ensureEndpoint(fs, inContainerTarget, r.Mode); err != nil {
			return fmt.Errorf("rule %q: create target endpoint: %w", r.Name, err)
		}

		if err := fs.BindMountRW(rewrite, inContainerTarget); err != nil {
			return fmt.Errorf("rule %q: bind mount: %w", r.Name, err)
		}
	}
	return nil
}

func ensureEndpoint(fs fsdriver.FsDriver, path string, mode rule.Mode) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if mode == rule.ModeFile {
		if err := fs.TouchDir(filepath.Dir(path)); err != nil {
			return err
		}
		return fs.Touch(path)
	}
	return fs.TouchDir(path)
}

// pivotIntoRoot implements the non-trace "pivot_root(\".\", \".\")"
// self-overlay dance from the design notes: chdir into the new root,
// pivot so it shadows itself, then lazily unmount the now-inaccessible
// old root. This keeps the mount namespace clean of the dangling old
// root entry that a chroot would leave behind. Trace mode uses plain
// chroot instead,
// since pivot_root's mount-namespace churn interacts badly with a
// tracer already attached across the handshake stop.
func pivotIntoRoot(containerRoot string) error {
	if err := os.Chdir(containerRoot); err != nil {
		return &NamespaceError{Op: "chdir into container root", Err: err}
	}
	if err := unix.PivotRoot(".", "."); err != nil {
		return &NamespaceError{Op: "pivot_root", Err: err}
	}
	if err := os.Chdir("/"); err != nil {
		return &NamespaceError{Op: "chdir to new root", Err: err}
	}
	if err := unix.Unmount(".", unix.MNT_DETACH); err != nil {
		return &NamespaceError{Op: "detach old root", Err: err}
	}
	return nil
}

func spawnTarget(s state) int {
	env := append([]string{}, s.Env...)

	if s.Dotenv {
		if vars, err := godotenv.Read(filepath.Join(s.Cwd, ".env")); err == nil {
			for k, v := range vars {
				env = append(env, k+"="+v)
			}
		}
	}
	for _, r := range s.Rules.Rules {
		for k, v := range r.Env {
			env = append(env, k+"="+v)
		}
	}

	cmd := exec.Command(s.Command, s.Args...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "boxxy: exec %s: %v\n", s.Command, err)
		return 1
	}
	return 0
}
