package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/boxxy-run/boxxy/internal/boxlog"
	"github.com/boxxy-run/boxxy/internal/config"
)

// configCmd pretty-prints the merged, active ruleset, or example-rule
// guidance when no rules are configured yet.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "print the active, merged rule configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			boxlog.Init(flagLogLevel)

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getwd: %w", err)
			}

			paths, err := config.RulePaths(cwd)
			if err != nil {
				return err
			}
			ruleset, err := config.LoadAll(paths)
			if err != nil {
				return err
			}

			if len(ruleset.Rules) == 0 {
				fmt.Fprint(os.Stderr, config.ExampleRuleMessage)
				return nil
			}

			out, err := yaml.Marshal(struct {
				Rules interface{} `yaml:"rules"`
			}{Rules: ruleset.Rules})
			if err != nil {
				return fmt.Errorf("marshal active config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
}
