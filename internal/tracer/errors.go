package tracer

import "fmt"

// OptionsError wraps a failed PTRACE_SETOPTIONS call on the root
// tracee; fatal to starting a trace session.
type OptionsError struct {
	Pid int
	Err error
}

func (e *OptionsError) Error() string {
	return fmt.Sprintf("tracer: set options on pid %d: %v", e.Pid, e.Err)
}
func (e *OptionsError) Unwrap() error { return e.Err }

// ResumeError wraps a failed PTRACE_SYSCALL resume call.
type ResumeError struct {
	Pid int
	Err error
}

func (e *ResumeError) Error() string {
	return fmt.Sprintf("tracer: resume pid %d: %v", e.Pid, e.Err)
}
func (e *ResumeError) Unwrap() error { return e.Err }

// WaitError wraps a failed wait4 call other than ECHILD, which the
// caller treats as "nothing to report yet".
type WaitError struct {
	Pid int
	Err error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("tracer: wait4 pid %d: %v", e.Pid, e.Err)
}
func (e *WaitError) Unwrap() error { return e.Err }

// EventError wraps a failed PTRACE_GETEVENTMSG call after a
// clone/fork/vfork event.
type EventError struct {
	Pid int
	Err error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("tracer: get event msg for pid %d: %v", e.Pid, e.Err)
}
func (e *EventError) Unwrap() error { return e.Err }
