package idmap

import (
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"
)

// IdentityUIDMap seeds a uid map with the invoking user's real uid
// mapped to itself.
func IdentityUIDMap() map[uint32]uint32 {
	uid := uint32(unix.Getuid())
	return map[uint32]uint32{uid: uid}
}

// IdentityGIDMap seeds a gid map with the invoking user's real gid
// mapped to itself, gid 0 mapped to itself, and every supplementary
// group (from the system group database) mapped to itself.
func IdentityGIDMap() map[uint32]uint32 {
	gid := uint32(unix.Getgid())
	gids := map[uint32]uint32{
		gid: gid,
		0:   0,
	}

	for _, sg := range supplementaryGroups() {
		gids[sg] = sg
	}

	return gids
}

// supplementaryGroups looks up the invoking user's group list the way
// getgrouplist(3) would: by username, falling back to the currently
// active group ids if the lookup fails (e.g. no matching /etc/passwd
// entry, common in minimal containers).
func supplementaryGroups() []uint32 {
	if u, err := user.Current(); err == nil {
		if groupIDs, err := u.GroupIds(); err == nil {
			out := make([]uint32, 0, len(groupIDs))
			for _, g := range groupIDs {
				if n, err := strconv.ParseUint(g, 10, 32); err == nil {
					out = append(out, uint32(n))
				}
			}
			return out
		}
	}

	active, err := unix.Getgroups()
	if err != nil {
		return nil
	}
	out := make([]uint32, 0, len(active))
	for _, g := range active {
		out = append(out, uint32(g))
	}
	return out
}
