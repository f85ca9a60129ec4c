// Package tracer implements the ptrace-based multi-process syscall
// tracer used by boxxy's optional trace mode. It is a single-threaded
// state machine: one pid at a time is ever acted on, new descendants
// are auto-attached via the clone/fork/vfork events, and every
// syscall-enter is turned into a Syscall event carrying the path
// argument the kernel saw.
package tracer

import (
	"sort"

	"golang.org/x/sys/unix"

	"github.com/boxxy-run/boxxy/internal/boxlog"
)

var log = boxlog.For("tracer")

// traceOptions are set once on the root tracee. EXITKILL ties the
// tracee's life to the tracer's; TRACESYSGOOD makes syscall-stops
// distinguishable from other SIGTRAP stops; the TRACE* family
// auto-attaches new descendants instead of requiring a manual
// PTRACE_ATTACH race.
const traceOptions = unix.PTRACE_O_EXITKILL |
	unix.PTRACE_O_TRACESYSGOOD |
	unix.PTRACE_O_TRACEFORK |
	unix.PTRACE_O_TRACEVFORK |
	unix.PTRACE_O_TRACECLONE |
	unix.PTRACE_O_TRACEEXEC |
	unix.PTRACE_O_TRACEEXIT

// syscallStopSignal is what a syscall-enter/exit stop reports as its
// stop signal once PTRACE_O_TRACESYSGOOD is set: SIGTRAP with bit 7
// set, distinguishing it from a plain SIGTRAP and from ptrace-event
// stops (which report bare SIGTRAP with the event in the upper byte).
const syscallStopSignal = unix.SIGTRAP | 0x80

// State is a child's position in the per-pid syscall-stop state
// machine.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateEnteringSyscall
	StateExitingSyscall
	StatePtraceEvent
)

// ChildProcess is the tracer's bookkeeping for one traced pid. Parent
// is 0 for the root tracee.
type ChildProcess struct {
	Pid        int
	Parent     int
	State      State
	LastSignal unix.Signal

	// stringCache memoizes path reads already made while this process
	// is at the current stop, so handling the same pointer twice
	// within one syscall-enter does not repeat PTRACE_PEEKDATA calls.
	stringCache map[uint64]string
}

func newChildProcess(pid, parent int) *ChildProcess {
	return &ChildProcess{Pid: pid, Parent: parent, State: StateCreated, stringCache: map[uint64]string{}}
}

// Tracer owns the full set of traced processes rooted at one pid.
type Tracer struct {
	children map[int]*ChildProcess
	rootPid  int
	events   []Syscall

	rootStatus     int
	rootStatusSeen bool
}

// New assumes rootPid is already stopped and ptrace-traced (the
// enclosure starts it under PTRACE_TRACEME, parked on its exec
// SIGTRAP) and installs the trace options that drive auto-attach of
// descendants.
func New(rootPid int) (*Tracer, error) {
	if err := unix.PtraceSetOptions(rootPid, traceOptions); err != nil {
		return nil, &OptionsError{Pid: rootPid, Err: err}
	}
	return &Tracer{
		children: map[int]*ChildProcess{rootPid: newChildProcess(rootPid, 0)},
		rootPid:  rootPid,
	}, nil
}

// Events returns every Syscall observed so far. Safe to call once Run
// returns; Run is the only writer.
func (t *Tracer) Events() []Syscall { return t.events }

// ExitStatus returns the root tracee's exit status if the tracer
// reaped it during Run. The tracer is the one that consumes the
// root's wait status in most exits, so the enclosure cannot recover
// it from waitpid afterwards (ECHILD); this is how it gets collected
// instead. ok is false when the root was detached before exiting,
// in which case the caller's own wait loop will see the status.
func (t *Tracer) ExitStatus() (status int, ok bool) {
	return t.rootStatus, t.rootStatusSeen
}

// Run drives the state machine until the root process has exited.
func (t *Tracer) Run() error {
	if err := unix.PtraceSyscall(t.rootPid, 0); err != nil {
		return &ResumeError{Pid: t.rootPid, Err: err}
	}

	for len(t.children) > 0 {
		pids := make([]int, 0, len(t.children))
		for pid := range t.children {
			pids = append(pids, pid)
		}
		sort.Ints(pids)

		for _, pid := range pids {
			if _, stillKnown := t.children[pid]; !stillKnown {
				continue
			}
			done, err := t.waitOnChild(pid)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}

	return nil
}

// waitOnChild performs one non-blocking wait4 on pid and dispatches on
// the result. done=true means the root process has fully exited and
// Run should stop.
func (t *Tracer) waitOnChild(pid int) (done bool, err error) {
	var ws unix.WaitStatus
	wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
	if err != nil {
		if err == unix.ECHILD {
			return false, nil
		}
		return false, &WaitError{Pid: pid, Err: err}
	}
	if wpid == 0 {
		return false, nil
	}

	switch {
	case ws.Exited():
		log.Debugf("process %d exited with status %d", pid, ws.ExitStatus())
		if pid == t.rootPid {
			t.rootStatus = ws.ExitStatus()
			t.rootStatusSeen = true
		}
		return t.removeChild(pid)
	case ws.Signaled():
		log.Debugf("process %d signalled with %s", pid, ws.Signal())
		if pid == t.rootPid {
			t.rootStatus = 128 + int(ws.Signal())
			t.rootStatusSeen = true
		}
		return t.removeChild(pid)
	case ws.Stopped():
		return t.handleStop(pid, ws)
	default:
		return false, nil
	}
}

func (t *Tracer) handleStop(pid int, ws unix.WaitStatus) (bool, error) {
	child := t.children[pid]
	if child == nil {
		return false, nil
	}
	stopSig := ws.StopSignal()

	if stopSig == unix.SIGTRAP {
		if cause := ws.TrapCause(); cause > 0 {
			return t.handlePtraceEvent(pid, child, cause)
		}
	}

	if stopSig == syscallStopSignal {
		child.LastSignal = 0
		return false, t.advanceSyscallState(child)
	}

	switch stopSig {
	case unix.SIGTRAP, unix.SIGSTOP:
		child.LastSignal = 0
		if child.State == StateCreated {
			log.Debugf("process %d: created -> running", pid)
			child.State = StateRunning
		}
		return false, unix.PtraceSyscall(pid, 0)
	case unix.SIGTERM, unix.SIGKILL:
		return t.removeChild(pid)
	default:
		log.Debugf("process %d forwarding signal %s", pid, stopSig)
		child.LastSignal = stopSig
		return false, unix.PtraceSyscall(pid, int(stopSig))
	}
}

func (t *Tracer) handlePtraceEvent(pid int, child *ChildProcess, cause int) (bool, error) {
	switch cause {
	case unix.PTRACE_EVENT_CLONE, unix.PTRACE_EVENT_FORK, unix.PTRACE_EVENT_VFORK:
		// The event fires between the clone syscall's enter and exit
		// stops; flag that so the next syscall-stop is consumed as the
		// pending exit instead of being mistaken for a fresh enter.
		child.State = StatePtraceEvent
		return t.handleNewChildEvent(pid)
	case unix.PTRACE_EVENT_EXEC:
		log.Debugf("process %d exec'd", pid)
		child.State = StatePtraceEvent
		return false, unix.PtraceSyscall(pid, 0)
	case unix.PTRACE_EVENT_EXIT:
		log.Debugf("process %d exiting", pid)
		if child.Parent == 0 {
			_ = unix.PtraceDetach(pid)
			return t.handleRootExit()
		}
		return t.removeChild(pid)
	default:
		return false, unix.PtraceSyscall(pid, 0)
	}
}

// advanceSyscallState steps a child through its syscall stops, which
// alternate entry and exit: a stop in Running or ExitingSyscall is a
// syscall entry (-> EnteringSyscall, path extracted), and a stop in
// EnteringSyscall is that syscall's exit (-> ExitingSyscall).
func (t *Tracer) advanceSyscallState(child *ChildProcess) error {
	switch child.State {
	case StateRunning, StateExitingSyscall:
		log.Debugf("process %d entered syscall", child.Pid)
		child.State = StateEnteringSyscall
		child.stringCache = map[uint64]string{}
		if sc, ok := t.handleSyscallEnter(child); ok {
			t.events = append(t.events, sc)
		}
		return unix.PtraceSyscall(child.Pid, 0)

	case StateEnteringSyscall:
		log.Debugf("process %d exited syscall", child.Pid)
		child.State = StateExitingSyscall
		return unix.PtraceSyscall(child.Pid, 0)

	case StatePtraceEvent:
		// Consume the syscall-exit left pending underneath the ptrace
		// event, then the cycle is back in phase.
		child.State = StateRunning
		return unix.PtraceSyscall(child.Pid, 0)

	default:
		return unix.PtraceSyscall(child.Pid, 0)
	}
}

func (t *Tracer) handleNewChildEvent(pid int) (bool, error) {
	msg, err := unix.PtraceGetEventMsg(pid)
	if err != nil {
		return false, &EventError{Pid: pid, Err: err}
	}
	childPid := int(msg)
	t.children[childPid] = newChildProcess(childPid, pid)
	log.Debugf("process %d spawned %d", pid, childPid)
	return false, unix.PtraceSyscall(pid, 0)
}

func (t *Tracer) removeChild(pid int) (bool, error) {
	log.Debugf("removing child %d", pid)
	child := t.children[pid]
	delete(t.children, pid)
	_ = unix.PtraceDetach(pid)

	if child != nil && child.Parent == 0 {
		return t.handleRootExit()
	}
	return false, nil
}

// handleRootExit detaches every remaining traced descendant once the
// root process has gone, then signals Run to stop.
func (t *Tracer) handleRootExit() (bool, error) {
	log.Debugf("root exited, detaching %d remaining children", len(t.children))
	for pid := range t.children {
		_ = unix.PtraceDetach(pid)
		delete(t.children, pid)
	}
	return true, nil
}

// cachedString returns a previously read string at addr within this
// child's current stop, or calls read and caches the result.
func (cp *ChildProcess) cachedString(addr uint64, read func() (string, error)) (string, error) {
	if s, ok := cp.stringCache[addr]; ok {
		return s, nil
	}
	s, err := read()
	if err != nil {
		return "", err
	}
	cp.stringCache[addr] = s
	return s, nil
}

func getRegs(pid int) (*unix.PtraceRegs, error) {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(pid, &regs); err != nil {
		return nil, err
	}
	return &regs, nil
}
