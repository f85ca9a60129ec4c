// Package enclosure is boxxy's top-level orchestrator: it creates the
// mount+user namespaces, performs the uid/gid-mapping handshake,
// applies the matched rules as bind mounts inside the new root,
// executes the target command, and finalizes cleanup. Optionally it
// hands the traced child off to the tracer package and emits a
// syscall report.
package enclosure

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/fatih/color"
	"golang.org/x/sys/unix"

	"github.com/boxxy-run/boxxy/internal/boxlog"
	"github.com/boxxy-run/boxxy/internal/fsdriver"
	"github.com/boxxy-run/boxxy/internal/idmap"
	"github.com/boxxy-run/boxxy/internal/rule"
	"github.com/boxxy-run/boxxy/internal/tracer"
)

var log = boxlog.For("enclosure")

// reexecSentinel is argv[1] the binary recognizes as "don't run the
// CLI, you are the cloned container process": the Go equivalent of
// the clone(2) callback, since a fresh exec has no shared closure.
const reexecSentinel = "boxxy:init"

// Options are the user-facing toggles from the CLI.
type Options struct {
	ImmutableRoot bool
	Trace         bool
	Dotenv        bool
}

// Container is the handle for one sandbox instance: its random name
// (the directory name under /tmp/boxxy-containers), the cloned
// child's pid and eventual exit status, and the rewrite endpoints the
// parent created before starting the child, so cleanup can remove them
// again. Target endpoints that the child creates inside the container
// are not recorded here.
type Container struct {
	Name               string
	ChildPID           int
	ChildExitStatus    int
	CreatedFiles       []string
	CreatedDirectories []string
}

// Enclosure is one sandbox run: a ruleset, a target command, and the
// options controlling root immutability and syscall tracing.
type Enclosure struct {
	fs        fsdriver.FsDriver
	container Container
	rules     rule.Ruleset
	command   string
	args      []string
	opts      Options
}

// New builds an Enclosure with a fresh random container name
// ("bold-snow-1234"-style, so concurrent sandboxes never collide on
// the same /tmp directory).
func New(rules rule.Ruleset, command string, args []string, opts Options) *Enclosure {
	name := fmt.Sprintf("%s-%04d", petname.Generate(2, "-"), rand.Intn(10000))
	return &Enclosure{
		fs:        fsdriver.New(),
		container: Container{Name: name},
		rules:     rules,
		command:   command,
		args:      args,
		opts:      opts,
	}
}

// Run executes the full enclosure lifecycle and returns the exit code
// the target command (or a fatal setup error) should propagate as.
func (e *Enclosure) Run() (int, error) {
	// The kernel ties a ptrace attachment to the tracing thread, and
	// the child becomes our tracee via SysProcAttr.Ptrace. Every later
	// ptrace request (detach, setoptions, the tracer's whole loop) has
	// to come from that same thread, so pin the goroutine for the
	// duration.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cwd, err := os.Getwd()
	if err != nil {
		return 1, fmt.Errorf("getwd: %w", err)
	}

	applicable, err := rule.GetAllApplicableRules(e.fs, e.rules, e.command, cwd)
	if err != nil {
		return 1, fmt.Errorf("filter rules: %w", err)
	}

	if err := e.preCreateEndpoints(applicable); err != nil {
		return 1, err
	}

	stateFile, err := e.writeHandshakeState(applicable, cwd)
	if err != nil {
		return 1, err
	}
	defer os.Remove(stateFile)

	cmd, err := e.buildReexecCmd(stateFile)
	if err != nil {
		return 1, err
	}

	if err := cmd.Start(); err != nil {
		return 1, &NamespaceError{Op: "clone", Err: err}
	}
	pid := cmd.Process.Pid
	e.container.ChildPID = pid

	if err := e.waitForInitialStop(pid); err != nil {
		return 1, err
	}

	if err := e.mapIdentity(pid); err != nil {
		return 1, err
	}

	stopSignalHandling := e.installSigintHandler(pid)
	defer stopSignalHandling()

	if e.opts.Trace {
		return e.runTraced(pid)
	}
	return e.runUntraced(pid)
}

func (e *Enclosure) preCreateEndpoints(applicable rule.Ruleset) error {
	for _, r := range applicable.Rules {
		rewrite, err := e.fs.FullyExpandPath(r.Rewrite)
		if err != nil {
			return fmt.Errorf("expand rewrite %q: %w", r.Rewrite, err)
		}

		var created bool
		switch r.Mode {
		case rule.ModeFile:
			created, err = e.ensureFile(rewrite)
		default:
			created, err = e.ensureDirectory(rewrite)
		}
		if err != nil {
			return fmt.Errorf("rule %q: create rewrite endpoint: %w", r.Name, err)
		}
		if created {
			if r.Mode == rule.ModeFile {
				e.container.CreatedFiles = append(e.container.CreatedFiles, rewrite)
			} else {
				e.container.CreatedDirectories = append(e.container.CreatedDirectories, rewrite)
			}
		}
	}
	return nil
}

func (e *Enclosure) ensureFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := e.fs.TouchDir(filepath.Dir(path)); err != nil {
		return false, err
	}
	return true, e.fs.Touch(path)
}

func (e *Enclosure) ensureDirectory(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	return true, e.fs.TouchDir(path)
}

func (e *Enclosure) writeHandshakeState(applicable rule.Ruleset, cwd string) (string, error) {
	f, err := os.CreateTemp("", "boxxy-state-*.gob")
	if err != nil {
		return "", fmt.Errorf("create handshake state file: %w", err)
	}
	path := f.Name()
	f.Close()

	s := state{
		Name:          e.container.Name,
		ContainerRoot: e.fs.ContainerRoot(e.container.Name),
		Rules:         applicable,
		Command:       e.command,
		Args:          e.args,
		Env:           os.Environ(),
		Cwd:           cwd,
		ImmutableRoot: e.opts.ImmutableRoot,
		Trace:         e.opts.Trace,
		Dotenv:        e.opts.Dotenv,
	}
	if err := writeState(path, s); err != nil {
		return "", err
	}
	return path, nil
}

func (e *Enclosure) buildReexecCmd(stateFile string) (*exec.Cmd, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve own executable: %w", err)
	}

	cmd := exec.Command(self, reexecSentinel, stateFile)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWNS | syscall.CLONE_NEWUSER,
		// Ptrace makes the forked child call PTRACE_TRACEME before its
		// exec, so it stops on the exec SIGTRAP with none of the child
		// code run yet. That stop is the handshake: the parent installs
		// the uid/gid maps while the child is parked, then detaches (or
		// starts tracing) to release it into the mount setup.
		Ptrace: true,
	}
	return cmd, nil
}

// waitForInitialStop blocks for the child's first stop, the exec
// SIGTRAP raised under PTRACE_TRACEME before it does anything
// mount-related. This is the one synchronization point that lets the
// parent install the id maps before the child's filesystem view
// depends on them.
func (e *Enclosure) waitForInitialStop(pid int) error {
	var ws unix.WaitStatus
	_, err := unix.Wait4(pid, &ws, 0, nil)
	if err != nil {
		return &NamespaceError{Op: "wait for initial stop", Err: err}
	}
	if !ws.Stopped() {
		return &NamespaceError{Op: "wait for initial stop", Err: fmt.Errorf("unexpected wait status %v", ws)}
	}
	return nil
}

func (e *Enclosure) mapIdentity(pid int) error {
	if err := idmap.MapUIDs(pid, idmap.IdentityUIDMap()); err != nil {
		return fmt.Errorf("map uids: %w", err)
	}
	if err := idmap.MapGIDs(pid, idmap.IdentityGIDMap()); err != nil {
		return fmt.Errorf("map gids: %w", err)
	}
	return nil
}

// installSigintHandler forwards ^C to the child as SIGTERM, tears
// down the container root, and exits with status 1. The returned func
// cancels the handler once the enclosure finishes normally.
func (e *Enclosure) installSigintHandler(pid int) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			log.Debugf("SIGINT received, tearing down pid %d", pid)
			_ = unix.Kill(pid, unix.SIGTERM)
			_ = e.fs.CleanupRoot(e.container.Name)
			os.Exit(1)
		case <-done:
		}
	}()

	return func() {
		close(done)
		signal.Stop(sigCh)
	}
}

func (e *Enclosure) runUntraced(pid int) (int, error) {
	if err := unix.PtraceDetach(pid); err != nil {
		return 1, &NamespaceError{Op: "detach", Err: err}
	}

	status := e.waitForChildExit(pid)
	e.cleanup()
	e.printSuccess()
	return status, nil
}

func (e *Enclosure) runTraced(pid int) (int, error) {
	tr, err := tracer.New(pid)
	if err != nil {
		return 1, fmt.Errorf("start tracer: %w", err)
	}
	if err := tr.Run(); err != nil {
		return 1, fmt.Errorf("run tracer: %w", err)
	}

	// The tracer usually reaps the root itself, in which case our own
	// waitpid would only ever see ECHILD and lose the status.
	status, reaped := tr.ExitStatus()
	if !reaped {
		status = e.waitForChildExit(pid)
	}
	e.container.ChildExitStatus = status

	reportPath := "./boxxy-report.txt"
	if err := tracer.WriteReport(reportPath, e.fs.ContainerRoot(e.container.Name), tr.Events()); err != nil {
		log.Debugf("write report failed: %v", err)
	}

	e.cleanup()
	e.printSuccess()
	return status, nil
}

// waitForChildExit is the post-detach wait loop. Once the parent has
// detached it is no longer the direct tracer, so ECHILD is a real
// possibility while stdio is still draining; sleep briefly and settle
// for the last status seen instead of erroring.
func (e *Enclosure) waitForChildExit(pid int) int {
	for {
		var ws unix.WaitStatus
		_, err := unix.Wait4(pid, &ws, 0, nil)
		switch {
		case err == nil && ws.Exited():
			e.container.ChildExitStatus = ws.ExitStatus()
			return e.container.ChildExitStatus
		case errors.Is(err, unix.ECHILD):
			time.Sleep(100 * time.Millisecond)
			return e.container.ChildExitStatus
		default:
			if err == nil && ws.Signaled() {
				e.container.ChildExitStatus = 128 + int(ws.Signal())
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func (e *Enclosure) cleanup() {
	if err := e.fs.CleanupRoot(e.container.Name); err != nil {
		log.Debugf("cleanup root failed: %v", err)
	}
	for _, f := range e.container.CreatedFiles {
		_ = os.Remove(f)
	}
	for _, d := range e.container.CreatedDirectories {
		_ = os.RemoveAll(d)
	}
}

func (e *Enclosure) printSuccess() {
	msg := fmt.Sprintf("boxed %q ♥", e.command)
	color.New(color.FgMagenta).Fprintln(os.Stdout, msg)
}

// IsReexec reports whether argv identifies this process invocation as
// the cloned container child rather than the normal CLI entrypoint.
func IsReexec(argv []string) (stateFile string, ok bool) {
	if len(argv) >= 3 && argv[1] == reexecSentinel {
		return argv[2], true
	}
	return "", false
}
