// Package scanner implements boxxy's "scan" subcommand: it checks a
// catalog of known applications' config paths against the local
// filesystem and reports which ones are present, as a starting point
// for writing rules against them.
package scanner

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/boxxy-run/boxxy/internal/boxlog"
)

var log = boxlog.For("scanner")

//go:embed data/hardcoded-applications.json
var hardcodedAppsJSON []byte

//go:embed data/partial-support-applications.json
var partialAppsJSON []byte

// App is one catalog entry: a name, a set of glob patterns that
// indicate the application is installed, and suggested rule fixes.
type App struct {
	Name  string   `json:"name"`
	Paths []string `json:"paths"`
	Fixes []string `json:"fixes"`
}

// Scanner holds the loaded application catalog.
type Scanner struct {
	Apps []App
}

// New loads the embedded hardcoded and partial-support catalogs.
func New() (*Scanner, error) {
	var hardcoded, partial []App
	if err := json.Unmarshal(hardcodedAppsJSON, &hardcoded); err != nil {
		return nil, fmt.Errorf("scanner: decode hardcoded catalog: %w", err)
	}
	if err := json.Unmarshal(partialAppsJSON, &partial); err != nil {
		return nil, fmt.Errorf("scanner: decode partial-support catalog: %w", err)
	}

	apps := make([]App, 0, len(hardcoded)+len(partial))
	apps = append(apps, hardcoded...)
	apps = append(apps, partial...)
	return &Scanner{Apps: apps}, nil
}

// Scan reports every App with at least one path entry that matches
// something on disk. Path entries are tilde-expanded and may contain
// doublestar glob segments (e.g. "~/.vscode/extensions/*").
func (s *Scanner) Scan() ([]App, error) {
	var found []App

	for _, app := range s.Apps {
		for _, raw := range app.Paths {
			pattern := expandTilde(raw)
			matched, err := matchesDisk(pattern)
			if err != nil {
				log.Debugf("%s: pattern %s: %v", app.Name, pattern, err)
				continue
			}
			if matched {
				found = append(found, app)
				break
			}
		}
	}

	return found, nil
}

func matchesDisk(pattern string) (bool, error) {
	if !strings.ContainsAny(pattern, "*?[") {
		_, err := os.Stat(pattern)
		if err == nil {
			return true, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

func expandTilde(raw string) string {
	if raw == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home
		}
		return raw
	}
	if strings.HasPrefix(raw, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, raw[2:])
		}
	}
	return raw
}
