package tracer

import (
	"github.com/boxxy-run/boxxy/internal/synreg"
)

// Syscall is one observed syscall-enter: its mnemonic name (when
// known), raw number, and the path argument it carried, if any was
// resolved.
type Syscall struct {
	Name   string
	Number int64
	Path   string
}

// handleSyscallEnter reads the entering child's registers, looks up
// its string-pointer argument in the architecture's syscall table, and
// resolves the path either directly from tracee memory or, if that
// pointer turns out to be a file descriptor, via /proc/<pid>/fd/<n>.
func (t *Tracer) handleSyscallEnter(child *ChildProcess) (Syscall, bool) {
	regs, err := getRegs(child.Pid)
	if err != nil {
		log.Debugf("process %d: get regs failed: %v", child.Pid, err)
		return Syscall{}, false
	}

	no := synreg.SyscallNumber(regs)
	name, _ := synreg.Name(no)

	reg, ok := synreg.Lookup(no)
	if !ok {
		return Syscall{}, false
	}

	ptr, err := synreg.RegisterValue(regs, reg)
	if err != nil {
		log.Debugf("process %d: register value failed: %v", child.Pid, err)
		return Syscall{}, false
	}

	path, ok := t.resolvePath(child, ptr)
	if !ok {
		return Syscall{}, false
	}

	return Syscall{Name: name, Number: no, Path: path}, true
}

func (t *Tracer) resolvePath(child *ChildProcess, ptr uint64) (string, bool) {
	if ptr == 0 {
		return "", false
	}

	s, err := child.cachedString(ptr, func() (string, error) {
		return readCString(child.Pid, uintptr(ptr))
	})
	if err == nil && s != "" {
		return s, true
	}

	return fdPath(child.Pid, int32(ptr))
}
