package tracer

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// pathMax bounds readCString's scan, matching Linux's PATH_MAX.
const pathMax = 4096

// wordSize is the width PTRACE_PEEKDATA reads at a time. Both
// supported architectures (amd64, riscv64) are 64-bit.
const wordSize = 8

// readCString reads a NUL-terminated string out of pid's address
// space at addr, one machine word at a time via PTRACE_PEEKDATA,
// stopping at the first NUL byte or pathMax, whichever comes first.
func readCString(pid int, addr uintptr) (string, error) {
	var sb strings.Builder

	for sb.Len() < pathMax {
		n, err := unix.PtracePeekData(pid, addr, peekBuf[:])
		if err != nil {
			return "", fmt.Errorf("peekdata pid=%d addr=%#x: %w", pid, addr, err)
		}
		if n == 0 {
			return "", fmt.Errorf("peekdata pid=%d addr=%#x: short read", pid, addr)
		}

		for _, b := range peekBuf[:n] {
			if b == 0 {
				return sb.String(), nil
			}
			sb.WriteByte(b)
		}
		addr += wordSize
	}

	return sb.String(), nil
}

// peekBuf is reused across readCString's word-at-a-time reads. The
// tracer is strictly single-threaded, so a package-level scratch
// buffer is safe.
var peekBuf [wordSize]byte

// fdPath resolves fd as a file descriptor of pid via /proc,
// discarding anonymous pipes (they carry no meaningful path).
func fdPath(pid int, fd int32) (string, bool) {
	if fd < 0 {
		return "", false
	}
	link := fmt.Sprintf("/proc/%d/fd/%d", pid, fd)
	target, err := os.Readlink(link)
	if err != nil {
		return "", false
	}
	if strings.HasPrefix(target, "pipe:[") {
		return "", false
	}
	return target, true
}
