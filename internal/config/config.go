// Package config locates and loads boxxy's YAML rule configuration:
// the default per-user config file, then any boxxy.yaml found walking
// up from the working directory, nearest-first. Rules passed on the
// command line are not handled here; the CLI merges them in last.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boxxy-run/boxxy/internal/boxlog"
	"github.com/boxxy-run/boxxy/internal/rule"
)

var log = boxlog.For("config")

// ParseError wraps a YAML parse or schema mismatch in a config file.
// Surfaced before any namespace work begins.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config: parse %s: %v", e.Path, e.Err)
}
func (e *ParseError) Unwrap() error { return e.Err }

// DevModeSentinel is the path fragment that, when present in the
// running executable's path, switches boxxy to its dev config file so
// debug builds don't trample the real one.
const DevModeSentinel = "target/debug"

// DefaultConfigFileName returns "boxxy-dev.yaml" when the current
// executable looks like a debug build (per DevModeSentinel), else
// "boxxy.yaml".
func DefaultConfigFileName() (string, error) {
	self, err := os.Readlink("/proc/self/exe")
	if err != nil {
		self, err = os.Executable()
		if err != nil {
			return "", fmt.Errorf("resolve running executable: %w", err)
		}
	}
	if strings.Contains(self, DevModeSentinel) {
		return "boxxy-dev.yaml", nil
	}
	return "boxxy.yaml", nil
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/boxxy (or the platform
// default config dir's boxxy subdirectory).
func DefaultConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "boxxy"), nil
}

// EnsureConfigFile creates an empty "rules:\n" config at the default
// location if it doesn't already exist, and returns its path. The
// first-run bootstrap also lets Load avoid special-casing a missing
// file as distinct from an empty one.
func EnsureConfigFile() (string, error) {
	fileName, err := DefaultConfigFileName()
	if err != nil {
		return "", err
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	path := filepath.Join(dir, fileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat config file: %w", err)
	}

	log.Infof("no config file found, creating empty config at %s", path)
	if err := os.WriteFile(path, []byte("rules:\n"), 0o644); err != nil {
		return "", fmt.Errorf("write empty config: %w", err)
	}
	return path, nil
}

// RulePaths returns the default config path (if present) followed by
// every "boxxy.yaml" found walking from cwd up to "/", nearest-first.
func RulePaths(cwd string) ([]string, error) {
	var paths []string

	defaultPath, err := EnsureConfigFile()
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(defaultPath); err == nil && info.Size() > 0 {
		paths = append(paths, defaultPath)
	}

	fileName, err := DefaultConfigFileName()
	if err != nil {
		return nil, err
	}

	current := cwd
	for {
		candidate := filepath.Join(current, fileName)
		if _, err := os.Stat(candidate); err == nil {
			log.Debugf("found boxxy config at %s", candidate)
			paths = append(paths, candidate)
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return paths, nil
}

// Load parses a single YAML rule file. An empty file yields an empty
// Ruleset rather than an error.
func Load(path string) (rule.Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rule.Ruleset{}, &ParseError{Path: path, Err: err}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return rule.Ruleset{}, nil
	}

	var decoded struct {
		Rules []rule.Rule `yaml:"rules"`
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&decoded); err != nil {
		return rule.Ruleset{}, &ParseError{Path: path, Err: err}
	}

	return rule.Ruleset{Rules: decoded.Rules}, nil
}

// LoadAll loads every path in order and merges them with rule.Merge,
// nearest-first (the order RulePaths already returns its paths in).
func LoadAll(paths []string) (rule.Ruleset, error) {
	var sets []rule.Ruleset
	for _, path := range paths {
		set, err := Load(path)
		if err != nil {
			return rule.Ruleset{}, err
		}
		log.Debugf("loaded %d rules from %s", len(set.Rules), path)
		sets = append(sets, set)
	}
	return rule.Merge(sets...), nil
}

// ExampleRuleMessage is printed when the active ruleset is empty.
const ExampleRuleMessage = `you have no rules in your config file.

example rule:

    rules:
    - name: "make aws cli write to ~/.config/aws"
      target: "~/.aws"
      rewrite: "~/.config/aws"
`
