package main

import (
	"fmt"
	"strings"

	"github.com/boxxy-run/boxxy/internal/rule"
)

// ruleFlags implements pflag.Value, collecting repeated
// --rules <src:dst[:mode]> flags into rule.Rule entries.
type ruleFlags struct {
	rules []rule.Rule
}

func (f *ruleFlags) String() string {
	var parts []string
	for _, r := range f.rules {
		parts = append(parts, r.Target+":"+r.Rewrite)
	}
	return strings.Join(parts, ",")
}

func (f *ruleFlags) Type() string { return "src:dst[:mode]" }

func (f *ruleFlags) Set(raw string) error {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return fmt.Errorf("--rules: expected src:dst[:mode], got %q", raw)
	}

	mode := rule.ModeDirectory
	if len(parts) == 3 {
		switch strings.ToLower(parts[2]) {
		case "file":
			mode = rule.ModeFile
		case "directory", "":
			mode = rule.ModeDirectory
		default:
			return fmt.Errorf("--rules: invalid mode %q in %q", parts[2], raw)
		}
	}

	f.rules = append(f.rules, rule.Rule{
		Name:    fmt.Sprintf("cli:%s", raw),
		Target:  parts[0],
		Rewrite: parts[1],
		Mode:    mode,
	})
	return nil
}

func (f *ruleFlags) Ruleset() rule.Ruleset {
	return rule.Ruleset{Rules: f.rules}
}
