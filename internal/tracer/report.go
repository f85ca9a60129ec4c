package tracer

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// WriteReport writes events to path as one deduplicated absolute path
// per line, stripped of containerRoot's prefix, followed by a trailing
// "# total: <n>" line. Paths are sorted for a stable, diffable report.
func WriteReport(path, containerRoot string, events []Syscall) error {
	seen := map[string]struct{}{}
	var paths []string

	for _, e := range events {
		if e.Path == "" {
			continue
		}
		trimmed := strings.TrimPrefix(e.Path, containerRoot)
		if !strings.HasPrefix(trimmed, "/") {
			trimmed = "/" + trimmed
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		paths = append(paths, trimmed)
	}

	sort.Strings(paths)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	defer f.Close()

	for _, p := range paths {
		if _, err := fmt.Fprintln(f, p); err != nil {
			return fmt.Errorf("write report %s: %w", path, err)
		}
	}
	if _, err := fmt.Fprintf(f, "# total: %d\n", len(paths)); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}

	return nil
}
