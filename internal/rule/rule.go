// Package rule implements boxxy's data model and matching predicates:
// a Rule redirects one path to another, optionally scoped to a working
// directory context and/or a set of target binaries. Ruleset is an
// ordered collection of Rules; order is significant and is never
// deduplicated.
package rule

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/boxxy-run/boxxy/internal/boxlog"
	"github.com/boxxy-run/boxxy/internal/fsdriver"
)

var log = boxlog.For("rule")

// Mode selects whether a rule's endpoints are files or directories.
type Mode string

const (
	// ModeFile means target/rewrite are regular files.
	ModeFile Mode = "file"
	// ModeDirectory means target/rewrite are directories. This is the
	// default when a rule omits "mode".
	ModeDirectory Mode = "directory"
)

// UnmarshalYAML accepts "file"/"directory" case-insensitively and
// defaults to ModeDirectory for an empty value.
func (m *Mode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "directory":
		*m = ModeDirectory
	case "file":
		*m = ModeFile
	default:
		return &InvalidModeError{Value: raw}
	}
	return nil
}

// MarshalYAML round-trips a Mode back to its lowercase string form.
func (m Mode) MarshalYAML() (interface{}, error) {
	if m == "" {
		return string(ModeDirectory), nil
	}
	return string(m), nil
}

// InvalidModeError is returned when a rule's "mode" field is neither
// "file" nor "directory".
type InvalidModeError struct{ Value string }

func (e *InvalidModeError) Error() string {
	return "rule: invalid mode " + e.Value + " (expected \"file\" or \"directory\")"
}

// Rule is a single named redirection.
type Rule struct {
	// Name is a human label shown in logs.
	Name string `yaml:"name"`
	// Target is the path the child sees and which gets shadowed. May
	// contain "~".
	Target string `yaml:"target"`
	// Rewrite is the real path that replaces Target. May contain "~".
	Rewrite string `yaml:"rewrite"`
	// Mode controls whether missing endpoints are created as files or
	// directories. Defaults to ModeDirectory.
	Mode Mode `yaml:"mode,omitempty"`
	// Context restricts the rule to when the cwd is within one of
	// these directories. Empty means "always in context".
	Context []string `yaml:"context,omitempty"`
	// Only restricts the rule to a set of target binaries. Empty means
	// "applies to every binary".
	Only []string `yaml:"only,omitempty"`
	// Env is injected into the child environment when this rule
	// matches.
	Env map[string]string `yaml:"env,omitempty"`
}

// UnmarshalYAML decodes a rule and fills in ModeDirectory when "mode"
// is omitted or has no value. yaml.v3 does not call Mode's own
// unmarshaler for a null value, so the default is applied here.
func (r *Rule) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain Rule
	if err := unmarshal((*plain)(r)); err != nil {
		return err
	}
	if r.Mode == "" {
		r.Mode = ModeDirectory
	}
	return nil
}

// Ruleset is an ordered, non-deduplicated sequence of rules.
type Ruleset struct {
	Rules []Rule `yaml:"rules"`
}

// Merge concatenates rulesets in order, preserving the order of both
// the rulesets and the rules within each. merge([{r}, {}]) == {r}.
func Merge(sets ...Ruleset) Ruleset {
	merged := Ruleset{}
	for _, set := range sets {
		merged.Rules = append(merged.Rules, set.Rules...)
	}
	return merged
}

// CurrentlyInContext reports whether cwd is within any of rule's
// context directories, after tilde-expansion, canonicalization, and
// symlink resolution of each context entry. An empty Context always
// matches.
func CurrentlyInContext(fs fsdriver.FsDriver, r Rule, cwd string) (bool, error) {
	if len(r.Context) == 0 {
		return true, nil
	}

	for _, context := range r.Context {
		log.Debugf("%s: resolving context %s", r.Name, context)

		expanded, err := fs.FullyExpandPath(context)
		if err != nil {
			return false, err
		}
		resolved, err := fs.MaybeResolveSymlink(expanded)
		if err != nil {
			return false, err
		}

		log.Debugf("%s: %s <> %s", r.Name, cwd, resolved)
		if isWithin(cwd, resolved) {
			return true, nil
		}
	}

	return false, nil
}

// AppliesToBinary reports whether program matches any entry of
// r.Only, tried in order with first-hit-wins across five equivalence
// notions: exact basename, exact full string, shared canonical path,
// shared symlink-resolved path, and shared $PATH resolution. An empty
// Only always matches.
func AppliesToBinary(fs fsdriver.FsDriver, r Rule, program string) (bool, error) {
	if len(r.Only) == 0 {
		return true, nil
	}

	for _, entry := range r.Only {
		log.Debugf("%s: resolving binary %s", r.Name, entry)
		if matchesBinary(fs, program, entry) {
			return true, nil
		}
	}

	return false, nil
}

func matchesBinary(fs fsdriver.FsDriver, program, entry string) bool {
	// 1. basename match.
	if filepath.Base(entry) == program {
		return true
	}
	// 2. exact full-string match.
	if entry == program {
		return true
	}

	programCanonical, programErr := fs.FullyExpandPath(program)
	entryCanonical, entryErr := fs.FullyExpandPath(entry)

	// 3. both canonicalize to the same path.
	if programErr == nil && entryErr == nil && programCanonical == entryCanonical {
		return true
	}

	// 4. both resolve to the same file after symlink resolution.
	if programErr == nil && entryErr == nil {
		programResolved, pErr := fs.MaybeResolveSymlink(programCanonical)
		entryResolved, eErr := fs.MaybeResolveSymlink(entryCanonical)
		if pErr == nil && eErr == nil && programResolved == entryResolved {
			return true
		}
	}

	// 5. which(program) == which(entry), at least one side resolved.
	programWhich, programFound := which(program)
	entryWhich, entryFound := which(entry)
	if (programFound || entryFound) && programWhich == entryWhich {
		return true
	}

	return false
}

// which resolves a binary name to its first $PATH match, or returns
// the input unchanged with ok=false if it isn't found.
func which(name string) (string, bool) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			return name, true
		}
		return name, false
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return name, false
	}
	return path, true
}

func isWithin(cwd, context string) bool {
	cwd = filepath.Clean(cwd)
	context = filepath.Clean(context)
	if cwd == context {
		return true
	}
	return strings.HasPrefix(cwd, context+string(filepath.Separator))
}

// GetAllApplicableRules returns the ordered sublist of rules that
// apply to binary, given the current working directory.
//
// Note the intentional quirk: a rule whose Only list positively
// matches the binary is accepted even when its context does not
// apply. A declared binary filter effectively ORs with the context
// filter rather than ANDing with it.
func GetAllApplicableRules(fs fsdriver.FsDriver, rules Ruleset, program, cwd string) (Ruleset, error) {
	var out Ruleset
	for _, r := range rules.Rules {
		inContext, err := CurrentlyInContext(fs, r, cwd)
		if err != nil {
			return Ruleset{}, err
		}
		binaryMatch, err := AppliesToBinary(fs, r, program)
		if err != nil {
			return Ruleset{}, err
		}
		if binaryMatch && (inContext || len(r.Only) > 0) {
			out.Rules = append(out.Rules, r)
		}
	}
	return out, nil
}
