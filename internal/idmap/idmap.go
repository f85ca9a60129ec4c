// Package idmap installs uid/gid maps into a freshly cloned user
// namespace via the setuid helpers newuidmap(1)/newgidmap(1). An
// unprivileged process cannot know in advance which of its
// supplementary ids are actually permitted by /etc/sub{u,g}id, so
// rather than parse those files (or link against libsubid), this
// package discovers the allowed set empirically: try the full
// mapping, and on failure prune whichever id the helper rejected and
// retry.
package idmap

import (
	"os/exec"
	"regexp"
	"strconv"

	"github.com/boxxy-run/boxxy/internal/boxlog"
)

var log = boxlog.For("idmap")

var uidRangeRe = regexp.MustCompile(`newuidmap: uid range \[(\d+)-`)
var gidRangeRe = regexp.MustCompile(`newgidmap: gid range \[(\d+)-`)

// MapUIDs installs uids (old -> new) into pid's user namespace,
// retrying with unmappable ids pruned until newuidmap succeeds or the
// map is exhausted. The map is mutated in place so callers can see
// what ultimately got applied.
func MapUIDs(pid int, uids map[uint32]uint32) error {
	return runMap("newuidmap", pid, uids, uidRangeRe)
}

// MapGIDs installs gids (old -> new) into pid's user namespace, with
// the same retry-and-prune behavior as MapUIDs.
func MapGIDs(pid int, gids map[uint32]uint32) error {
	return runMap("newgidmap", pid, gids, gidRangeRe)
}

func runMap(helper string, pid int, ids map[uint32]uint32, badIDPattern *regexp.Regexp) error {
	for {
		if len(ids) == 0 {
			return nil
		}

		args := []string{strconv.Itoa(pid)}
		for old, n := range ids {
			args = append(args, strconv.FormatUint(uint64(old), 10), strconv.FormatUint(uint64(n), 10), "1")
		}

		cmd := exec.Command(helper, args...)
		out, err := cmd.CombinedOutput()
		if err == nil {
			log.Debugf("mapped ids via %s: %v", helper, ids)
			return nil
		}

		match := badIDPattern.FindSubmatch(out)
		if match == nil {
			return &HelperError{Helper: helper, Output: string(out), Err: err}
		}

		badID, parseErr := strconv.ParseUint(string(match[1]), 10, 32)
		if parseErr != nil {
			return &HelperError{Helper: helper, Output: string(out), Err: err}
		}

		log.Debugf("%s rejected id %d, pruning and retrying", helper, badID)
		delete(ids, uint32(badID))
	}
}

// HelperError wraps a non-retryable newuidmap/newgidmap failure.
type HelperError struct {
	Helper string
	Output string
	Err    error
}

func (e *HelperError) Error() string {
	return e.Helper + " failed: " + e.Err.Error() + ": " + e.Output
}

func (e *HelperError) Unwrap() error { return e.Err }
