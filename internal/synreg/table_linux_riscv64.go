//go:build linux && riscv64

package synreg

import "golang.org/x/sys/unix"

// syscallRegisters is the riscv64 syscall -> string-pointer-register
// table. riscv64 only exposes the *at() family (no bare open/stat/
// mkdir/etc.), so this table is shorter than the amd64 one.
var syscallRegisters = map[int64]StringRegister{
	unix.SYS_READ:  A0,
	unix.SYS_WRITE: A0,

	unix.SYS_OPENAT: A1,

	unix.SYS_CLOSE: A0,

	unix.SYS_UNLINKAT: A1,

	unix.SYS_FSTAT:      A0,
	unix.SYS_STATX:      A1,
	unix.SYS_NEWFSTATAT: A1,

	unix.SYS_LSEEK: A0,

	unix.SYS_PREAD64:  A0,
	unix.SYS_PWRITE64: A0,
	unix.SYS_PREADV:   A0,
	unix.SYS_PWRITEV:  A0,

	unix.SYS_FACCESSAT:  A1,
	unix.SYS_FACCESSAT2: A1,

	unix.SYS_DUP:  A0,
	unix.SYS_DUP3: A0,

	unix.SYS_SENDFILE: A0,

	unix.SYS_FCNTL: A0,

	unix.SYS_FSYNC:     A0,
	unix.SYS_FDATASYNC: A0,

	unix.SYS_TRUNCATE:  A0,
	unix.SYS_FTRUNCATE: A0,

	unix.SYS_GETDENTS64: A0,

	unix.SYS_CHDIR:  A0,
	unix.SYS_FCHDIR: A0,

	unix.SYS_RENAMEAT2: A1,

	unix.SYS_MKDIRAT: A1,

	unix.SYS_LINKAT:    A1,
	unix.SYS_SYMLINKAT: A2,

	unix.SYS_FCHMOD: A0,
	unix.SYS_FCHOWN: A0,

	unix.SYS_FCHOWNAT: A1,
	unix.SYS_FCHMODAT: A1,

	unix.SYS_MKNODAT: A1,

	unix.SYS_PIVOT_ROOT: A0,

	unix.SYS_CHROOT: A0,

	unix.SYS_MOUNT:   A0,
	unix.SYS_UMOUNT2: A0,

	unix.SYS_SWAPON:  A0,
	unix.SYS_SWAPOFF: A0,

	unix.SYS_READAHEAD: A0,

	unix.SYS_SETXATTR:     A0,
	unix.SYS_LSETXATTR:    A0,
	unix.SYS_FSETXATTR:    A0,
	unix.SYS_GETXATTR:     A0,
	unix.SYS_LGETXATTR:    A0,
	unix.SYS_FGETXATTR:    A0,
	unix.SYS_LISTXATTR:    A0,
	unix.SYS_LLISTXATTR:   A0,
	unix.SYS_FLISTXATTR:   A0,
	unix.SYS_REMOVEXATTR:  A0,
	unix.SYS_LREMOVEXATTR: A0,
	unix.SYS_FREMOVEXATTR: A0,

	unix.SYS_FADVISE64: A0,

	unix.SYS_UTIMENSAT: A1,

	unix.SYS_SPLICE: A0,
	unix.SYS_TEE:    A0,

	unix.SYS_SYNC_FILE_RANGE: A0,

	unix.SYS_VMSPLICE: A0,

	unix.SYS_FALLOCATE: A0,

	unix.SYS_INOTIFY_INIT1: A0,
	unix.SYS_FANOTIFY_INIT: A0,
	unix.SYS_FANOTIFY_MARK: A0,

	unix.SYS_NAME_TO_HANDLE_AT: A1,
	unix.SYS_OPEN_BY_HANDLE_AT: A0,

	unix.SYS_SYNCFS: A0,
}

// RegisterValue reads the value of reg out of regs for this
// architecture's user_regs_struct layout (a0-a5, the first six
// integer argument registers in the RISC-V calling convention).
func RegisterValue(regs *unix.PtraceRegs, reg StringRegister) (uint64, error) {
	switch reg {
	case A0:
		return regs.A0, nil
	case A1:
		return regs.A1, nil
	case A2:
		return regs.A2, nil
	case A3:
		return regs.A3, nil
	case A4:
		return regs.A4, nil
	case A5:
		return regs.A5, nil
	default:
		return 0, &UnsupportedRegisterError{Register: reg, Arch: "riscv64"}
	}
}

// SyscallNumber returns the syscall number the tracee last entered or
// exited. riscv64 keeps it in a7, the syscall-number register, which
// x/sys/unix surfaces as PtraceRegs.A7.
func SyscallNumber(regs *unix.PtraceRegs) int64 {
	return int64(regs.A7)
}

var syscallNames = map[int64]string{
	unix.SYS_READ: "read", unix.SYS_WRITE: "write",
	unix.SYS_OPENAT: "openat", unix.SYS_CLOSE: "close", unix.SYS_UNLINKAT: "unlinkat",
	unix.SYS_FSTAT: "fstat", unix.SYS_STATX: "statx", unix.SYS_NEWFSTATAT: "newfstatat",
	unix.SYS_LSEEK: "lseek",
	unix.SYS_PREAD64: "pread64", unix.SYS_PWRITE64: "pwrite64",
	unix.SYS_PREADV: "preadv", unix.SYS_PWRITEV: "pwritev",
	unix.SYS_FACCESSAT: "faccessat", unix.SYS_FACCESSAT2: "faccessat2",
	unix.SYS_DUP: "dup", unix.SYS_DUP3: "dup3",
	unix.SYS_SENDFILE: "sendfile", unix.SYS_FCNTL: "fcntl",
	unix.SYS_FSYNC: "fsync", unix.SYS_FDATASYNC: "fdatasync",
	unix.SYS_TRUNCATE: "truncate", unix.SYS_FTRUNCATE: "ftruncate",
	unix.SYS_GETDENTS64: "getdents64",
	unix.SYS_CHDIR: "chdir", unix.SYS_FCHDIR: "fchdir",
	unix.SYS_RENAMEAT2: "renameat2", unix.SYS_MKDIRAT: "mkdirat",
	unix.SYS_LINKAT: "linkat", unix.SYS_SYMLINKAT: "symlinkat",
	unix.SYS_FCHMOD: "fchmod", unix.SYS_FCHOWN: "fchown",
	unix.SYS_FCHOWNAT: "fchownat", unix.SYS_FCHMODAT: "fchmodat",
	unix.SYS_MKNODAT: "mknodat",
	unix.SYS_PIVOT_ROOT: "pivot_root", unix.SYS_CHROOT: "chroot",
	unix.SYS_MOUNT: "mount", unix.SYS_UMOUNT2: "umount2",
	unix.SYS_SWAPON: "swapon", unix.SYS_SWAPOFF: "swapoff",
	unix.SYS_READAHEAD: "readahead",
	unix.SYS_SETXATTR: "setxattr", unix.SYS_LSETXATTR: "lsetxattr", unix.SYS_FSETXATTR: "fsetxattr",
	unix.SYS_GETXATTR: "getxattr", unix.SYS_LGETXATTR: "lgetxattr", unix.SYS_FGETXATTR: "fgetxattr",
	unix.SYS_LISTXATTR: "listxattr", unix.SYS_LLISTXATTR: "llistxattr", unix.SYS_FLISTXATTR: "flistxattr",
	unix.SYS_REMOVEXATTR: "removexattr", unix.SYS_LREMOVEXATTR: "lremovexattr", unix.SYS_FREMOVEXATTR: "fremovexattr",
	unix.SYS_FADVISE64: "fadvise64", unix.SYS_UTIMENSAT: "utimensat",
	unix.SYS_SPLICE: "splice", unix.SYS_TEE: "tee",
	unix.SYS_SYNC_FILE_RANGE: "sync_file_range", unix.SYS_VMSPLICE: "vmsplice",
	unix.SYS_FALLOCATE: "fallocate",
	unix.SYS_INOTIFY_INIT1: "inotify_init1", unix.SYS_FANOTIFY_INIT: "fanotify_init", unix.SYS_FANOTIFY_MARK: "fanotify_mark",
	unix.SYS_NAME_TO_HANDLE_AT: "name_to_handle_at", unix.SYS_OPEN_BY_HANDLE_AT: "open_by_handle_at",
	unix.SYS_SYNCFS: "syncfs",
}
