// Command boxxy runs an arbitrary command inside an unprivileged
// Linux filesystem sandbox, transparently rewriting selected paths per
// user-declared rules.
package main

import (
	"os"

	"github.com/boxxy-run/boxxy/internal/enclosure"
)

func main() {
	// The re-exec'd container child is recognized before any CLI
	// parsing happens: it carries a sentinel argv, not real flags.
	if stateFile, ok := enclosure.IsReexec(os.Args); ok {
		os.Exit(enclosure.RunChild(stateFile))
	}

	os.Exit(Execute())
}
