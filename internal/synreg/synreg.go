// Package synreg maps, per architecture, a syscall number to the CPU
// register holding a pointer to its path-like string argument. The
// tracer uses this table to know which ptrace register to read when a
// tracee enters a syscall.
//
// Two architectures are supported, matching the kernels boxxy targets:
// x86-64 (registers RDI/RSI/RDX/RCX/R8/R9) and riscv64 (registers
// A0-A5). Each lives in its own build-tagged file; this file only
// defines the shared enum and the table-lookup helper.
package synreg

import "fmt"

// StringRegister names a CPU register that may hold a syscall's
// string-pointer argument. Only the subset used by either supported
// architecture is defined; a given arch's table only ever populates
// the subset meaningful to it.
type StringRegister int

const (
	// x86-64 calling-convention argument registers.
	RDI StringRegister = iota
	RSI
	RDX
	RCX
	R8
	R9

	// riscv64 calling-convention argument registers.
	A0
	A1
	A2
	A3
	A4
	A5
)

func (r StringRegister) String() string {
	switch r {
	case RDI:
		return "rdi"
	case RSI:
		return "rsi"
	case RDX:
		return "rdx"
	case RCX:
		return "rcx"
	case R8:
		return "r8"
	case R9:
		return "r9"
	case A0:
		return "a0"
	case A1:
		return "a1"
	case A2:
		return "a2"
	case A3:
		return "a3"
	case A4:
		return "a4"
	case A5:
		return "a5"
	default:
		return fmt.Sprintf("reg(%d)", int(r))
	}
}

// Lookup returns the string-pointer register for a syscall number on
// the current (build-time selected) architecture, and whether the
// table has an entry for it at all. Syscalls whose path-like argument
// is a file descriptor rather than a pointer (e.g. close, fsync) have
// an entry naming the register that holds the descriptor.
func Lookup(syscallNo int64) (StringRegister, bool) {
	reg, ok := syscallRegisters[syscallNo]
	return reg, ok
}

// Name returns the syscall's mnemonic name (e.g. "openat"), if this
// architecture's table has one. Only syscalls with a string-pointer
// register are named; the tracer has no need to name the rest.
func Name(syscallNo int64) (string, bool) {
	name, ok := syscallNames[syscallNo]
	return name, ok
}

// UnsupportedRegisterError is returned by RegisterValue when asked for
// a register that the build architecture's table never populates
// (e.g. requesting A0 while built for amd64).
type UnsupportedRegisterError struct {
	Register StringRegister
	Arch     string
}

func (e *UnsupportedRegisterError) Error() string {
	return fmt.Sprintf("synreg: register %s is not valid on %s", e.Register, e.Arch)
}
