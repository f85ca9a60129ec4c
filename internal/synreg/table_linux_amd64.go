//go:build linux && amd64

package synreg

import "golang.org/x/sys/unix"

// syscallRegisters is the x86-64 syscall -> string-pointer-register
// table. Syscalls that take more than one path are keyed on whichever
// argument boxxy cares about (generally the one naming the final
// redirect target, e.g. openat's path rather than its dirfd).
var syscallRegisters = map[int64]StringRegister{
	unix.SYS_READ:  RDI,
	unix.SYS_WRITE: RDI,

	unix.SYS_OPENAT: RSI,
	unix.SYS_OPEN:   RDI,
	unix.SYS_CREAT:  RDI,

	unix.SYS_CLOSE: RDI,

	unix.SYS_UNLINKAT: RSI,

	unix.SYS_STAT:       RDI,
	unix.SYS_FSTAT:      RDI,
	unix.SYS_LSTAT:      RDI,
	unix.SYS_STATX:      RSI,
	unix.SYS_NEWFSTATAT: RSI,

	unix.SYS_LSEEK: RDI,

	unix.SYS_PREAD64:  RDI,
	unix.SYS_PWRITE64: RDI,
	unix.SYS_PREADV:   RDI,
	unix.SYS_PWRITEV:  RDI,

	unix.SYS_ACCESS:      RDI,
	unix.SYS_FACCESSAT:   RSI,
	unix.SYS_FACCESSAT2:  RSI,

	unix.SYS_DUP:  RDI,
	unix.SYS_DUP2: RDI,
	unix.SYS_DUP3: RDI,

	unix.SYS_SENDFILE: RDI,

	unix.SYS_FCNTL: RDI,

	unix.SYS_FSYNC:     RDI,
	unix.SYS_FDATASYNC: RDI,

	unix.SYS_TRUNCATE:  RDI,
	unix.SYS_FTRUNCATE: RDI,

	unix.SYS_GETDENTS:   RDI,
	unix.SYS_GETDENTS64: RDI,

	unix.SYS_CHDIR:  RDI,
	unix.SYS_FCHDIR: RDI,

	unix.SYS_RENAME:   RDI,
	unix.SYS_RENAMEAT: RSI,

	unix.SYS_MKDIR:   RDI,
	unix.SYS_RMDIR:   RDI,
	unix.SYS_MKDIRAT: RSI,

	unix.SYS_LINK:      RSI,
	unix.SYS_UNLINK:    RDI,
	unix.SYS_SYMLINK:   RDI,
	unix.SYS_READLINK:  RDI,
	unix.SYS_LINKAT:    RSI,
	unix.SYS_SYMLINKAT: RDX,

	unix.SYS_CHMOD:  RDI,
	unix.SYS_FCHMOD: RDI,
	unix.SYS_CHOWN:  RDI,
	unix.SYS_FCHOWN: RDI,
	unix.SYS_LCHOWN: RDI,

	unix.SYS_FCHOWNAT: RSI,
	unix.SYS_FCHMODAT: RSI,

	unix.SYS_MKNOD:   RDI,
	unix.SYS_MKNODAT: RSI,

	unix.SYS_PIVOT_ROOT: RDI,

	unix.SYS_CHROOT: RDI,

	unix.SYS_MOUNT:   RDI,
	unix.SYS_UMOUNT2: RDI,

	unix.SYS_SWAPON:  RDI,
	unix.SYS_SWAPOFF: RDI,

	unix.SYS_READAHEAD: RDI,

	unix.SYS_SETXATTR:     RDI,
	unix.SYS_LSETXATTR:    RDI,
	unix.SYS_FSETXATTR:    RDI,
	unix.SYS_GETXATTR:     RDI,
	unix.SYS_LGETXATTR:    RDI,
	unix.SYS_FGETXATTR:    RDI,
	unix.SYS_LISTXATTR:    RDI,
	unix.SYS_LLISTXATTR:   RDI,
	unix.SYS_FLISTXATTR:   RDI,
	unix.SYS_REMOVEXATTR:  RDI,
	unix.SYS_LREMOVEXATTR: RDI,
	unix.SYS_FREMOVEXATTR: RDI,

	unix.SYS_FADVISE64: RDI,

	unix.SYS_FUTIMESAT: RSI,
	unix.SYS_UTIMENSAT: RSI,

	unix.SYS_SPLICE: RDI,
	unix.SYS_TEE:    RDI,

	unix.SYS_SYNC_FILE_RANGE: RDI,

	unix.SYS_VMSPLICE: RDI,

	unix.SYS_FALLOCATE: RDI,

	unix.SYS_INOTIFY_INIT1: RDI,
	unix.SYS_FANOTIFY_INIT: RDI,
	unix.SYS_FANOTIFY_MARK: RDI,

	unix.SYS_NAME_TO_HANDLE_AT: RSI,
	unix.SYS_OPEN_BY_HANDLE_AT: RDI,

	unix.SYS_SYNCFS: RDI,
}

// syscallNumberFromRegs extracts the syscall number x86-64 stores in
// orig_rax (not rax, which gets clobbered with the return value on
// syscall-exit).
func syscallNumberFromRegs(regs *unix.PtraceRegs) int64 {
	return int64(regs.Orig_rax)
}

// RegisterValue reads the value of reg out of regs for this
// architecture's user_regs_struct layout.
func RegisterValue(regs *unix.PtraceRegs, reg StringRegister) (uint64, error) {
	switch reg {
	case RDI:
		return regs.Rdi, nil
	case RSI:
		return regs.Rsi, nil
	case RDX:
		return regs.Rdx, nil
	case RCX:
		return regs.Rcx, nil
	case R8:
		return regs.R8, nil
	case R9:
		return regs.R9, nil
	default:
		return 0, &UnsupportedRegisterError{Register: reg, Arch: "amd64"}
	}
}

// SyscallNumber returns the syscall number the tracee last entered or
// exited, per this architecture's register convention.
func SyscallNumber(regs *unix.PtraceRegs) int64 {
	return syscallNumberFromRegs(regs)
}

var syscallNames = map[int64]string{
	unix.SYS_READ: "read", unix.SYS_WRITE: "write",
	unix.SYS_OPENAT: "openat", unix.SYS_OPEN: "open", unix.SYS_CREAT: "creat",
	unix.SYS_CLOSE: "close", unix.SYS_UNLINKAT: "unlinkat",
	unix.SYS_STAT: "stat", unix.SYS_FSTAT: "fstat", unix.SYS_LSTAT: "lstat",
	unix.SYS_STATX: "statx", unix.SYS_NEWFSTATAT: "newfstatat",
	unix.SYS_LSEEK: "lseek",
	unix.SYS_PREAD64: "pread64", unix.SYS_PWRITE64: "pwrite64",
	unix.SYS_PREADV: "preadv", unix.SYS_PWRITEV: "pwritev",
	unix.SYS_ACCESS: "access", unix.SYS_FACCESSAT: "faccessat", unix.SYS_FACCESSAT2: "faccessat2",
	unix.SYS_DUP: "dup", unix.SYS_DUP2: "dup2", unix.SYS_DUP3: "dup3",
	unix.SYS_SENDFILE: "sendfile", unix.SYS_FCNTL: "fcntl",
	unix.SYS_FSYNC: "fsync", unix.SYS_FDATASYNC: "fdatasync",
	unix.SYS_TRUNCATE: "truncate", unix.SYS_FTRUNCATE: "ftruncate",
	unix.SYS_GETDENTS: "getdents", unix.SYS_GETDENTS64: "getdents64",
	unix.SYS_CHDIR: "chdir", unix.SYS_FCHDIR: "fchdir",
	unix.SYS_RENAME: "rename", unix.SYS_RENAMEAT: "renameat",
	unix.SYS_MKDIR: "mkdir", unix.SYS_RMDIR: "rmdir", unix.SYS_MKDIRAT: "mkdirat",
	unix.SYS_LINK: "link", unix.SYS_UNLINK: "unlink", unix.SYS_SYMLINK: "symlink",
	unix.SYS_READLINK: "readlink", unix.SYS_LINKAT: "linkat", unix.SYS_SYMLINKAT: "symlinkat",
	unix.SYS_CHMOD: "chmod", unix.SYS_FCHMOD: "fchmod", unix.SYS_CHOWN: "chown",
	unix.SYS_FCHOWN: "fchown", unix.SYS_LCHOWN: "lchown",
	unix.SYS_FCHOWNAT: "fchownat", unix.SYS_FCHMODAT: "fchmodat",
	unix.SYS_MKNOD: "mknod", unix.SYS_MKNODAT: "mknodat",
	unix.SYS_PIVOT_ROOT: "pivot_root", unix.SYS_CHROOT: "chroot",
	unix.SYS_MOUNT: "mount", unix.SYS_UMOUNT2: "umount2",
	unix.SYS_SWAPON: "swapon", unix.SYS_SWAPOFF: "swapoff",
	unix.SYS_READAHEAD: "readahead",
	unix.SYS_SETXATTR: "setxattr", unix.SYS_LSETXATTR: "lsetxattr", unix.SYS_FSETXATTR: "fsetxattr",
	unix.SYS_GETXATTR: "getxattr", unix.SYS_LGETXATTR: "lgetxattr", unix.SYS_FGETXATTR: "fgetxattr",
	unix.SYS_LISTXATTR: "listxattr", unix.SYS_LLISTXATTR: "llistxattr", unix.SYS_FLISTXATTR: "flistxattr",
	unix.SYS_REMOVEXATTR: "removexattr", unix.SYS_LREMOVEXATTR: "lremovexattr", unix.SYS_FREMOVEXATTR: "fremovexattr",
	unix.SYS_FADVISE64: "fadvise64",
	unix.SYS_FUTIMESAT: "futimesat", unix.SYS_UTIMENSAT: "utimensat",
	unix.SYS_SPLICE: "splice", unix.SYS_TEE: "tee",
	unix.SYS_SYNC_FILE_RANGE: "sync_file_range", unix.SYS_VMSPLICE: "vmsplice",
	unix.SYS_FALLOCATE: "fallocate",
	unix.SYS_INOTIFY_INIT1: "inotify_init1", unix.SYS_FANOTIFY_INIT: "fanotify_init", unix.SYS_FANOTIFY_MARK: "fanotify_mark",
	unix.SYS_NAME_TO_HANDLE_AT: "name_to_handle_at", unix.SYS_OPEN_BY_HANDLE_AT: "open_by_handle_at",
	unix.SYS_SYNCFS: "syncfs",
}
