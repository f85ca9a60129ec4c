package enclosure

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/boxxy-run/boxxy/internal/rule"
)

// state is the handshake payload the parent writes to a temp file and
// the re-exec'd child reads back at startup. A temp file stands in
// for the in-process closure a native clone(2) callback would
// capture, since the child here is a freshly exec'd binary with no
// shared memory.
type state struct {
	Name          string
	ContainerRoot string
	Rules         rule.Ruleset
	Command       string
	Args          []string
	Env           []string
	Cwd           string
	ImmutableRoot bool
	Trace         bool
	Dotenv        bool
}

func writeState(path string, s state) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write child state: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("encode child state: %w", err)
	}
	return nil
}

func readState(path string) (state, error) {
	f, err := os.Open(path)
	if err != nil {
		return state{}, fmt.Errorf("read child state: %w", err)
	}
	defer f.Close()

	var s state
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return state{}, fmt.Errorf("decode child state: %w", err)
	}
	return s, nil
}
