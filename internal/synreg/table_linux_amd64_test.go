//go:build linux && amd64

package synreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestLookup_KnownSyscalls(t *testing.T) {
	cases := []struct {
		name string
		no   int64
		want StringRegister
	}{
		{"openat path arg is second", unix.SYS_OPENAT, RSI},
		{"open path arg is first", unix.SYS_OPEN, RDI},
		{"mkdirat path arg is second", unix.SYS_MKDIRAT, RSI},
		{"chroot path arg is first", unix.SYS_CHROOT, RDI},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := Lookup(c.no)
			require.True(t, ok)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestLookup_UnknownSyscall(t *testing.T) {
	_, ok := Lookup(-1)
	assert.False(t, ok)
}

func TestRegisterValue(t *testing.T) {
	regs := &unix.PtraceRegs{Rdi: 10, Rsi: 20, Rdx: 30, Rcx: 40, R8: 50, R9: 60}

	v, err := RegisterValue(regs, RDI)
	require.NoError(t, err)
	assert.EqualValues(t, 10, v)

	v, err = RegisterValue(regs, R9)
	require.NoError(t, err)
	assert.EqualValues(t, 60, v)

	_, err = RegisterValue(regs, A0)
	assert.Error(t, err)
}

func TestSyscallNumber(t *testing.T) {
	regs := &unix.PtraceRegs{Orig_rax: uint64(unix.SYS_OPENAT)}
	assert.EqualValues(t, unix.SYS_OPENAT, SyscallNumber(regs))
}
