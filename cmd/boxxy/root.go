package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/boxxy-run/boxxy/internal/boxlog"
	"github.com/boxxy-run/boxxy/internal/config"
	"github.com/boxxy-run/boxxy/internal/enclosure"
	"github.com/boxxy-run/boxxy/internal/rule"
)

var log = boxlog.For("cli")

var (
	flagImmutable   bool
	flagLogLevel    string
	flagForceColour bool
	flagTrace       bool
	flagDotenv      bool
	flagRules       ruleFlags
)

// Execute builds and runs the root command, returning the process exit
// code: the sandboxed command's own exit code, 1 on SIGINT (handled
// inside internal/enclosure), or non-zero on a fatal setup error.
func Execute() int {
	root := &cobra.Command{
		Use:           "boxxy [flags] -- <command> [args...]",
		Short:         "boxxy sandboxes a command's view of the filesystem",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
	}

	root.Flags().BoolVarP(&flagImmutable, "immutable", "i", false, "mount the sandbox root read-only")
	root.Flags().StringVarP(&flagLogLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
	root.Flags().BoolVar(&flagForceColour, "force-colour", false, "force colour output even when not a tty")
	root.Flags().BoolVarP(&flagTrace, "trace", "t", false, "trace filesystem syscalls and write ./boxxy-report.txt")
	root.Flags().BoolVarP(&flagDotenv, "dotenv", "d", false, "load .env from the working directory into the sandboxed command")
	root.Flags().Var(&flagRules, "rules", "additional rule as src:dst[:mode] (repeatable)")

	root.AddCommand(configCmd(), scanCmd())

	exitCode := 0
	root.RunE = func(cmd *cobra.Command, args []string) error {
		code, err := runBoxxy(cmd, args)
		exitCode = code
		return err
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == 0 {
			exitCode = 2
		}
	}
	return exitCode
}

func runBoxxy(cmd *cobra.Command, args []string) (int, error) {
	boxlog.Init(flagLogLevel)
	if flagForceColour {
		color.NoColor = false
	}

	cwd, err := os.Getwd()
	if err != nil {
		return 2, fmt.Errorf("getwd: %w", err)
	}

	paths, err := config.RulePaths(cwd)
	if err != nil {
		return 2, err
	}
	fileRules, err := config.LoadAll(paths)
	if err != nil {
		return 2, err
	}
	ruleset := rule.Merge(fileRules, flagRules.Ruleset())
	log.Debugf("loaded %d total rules", len(ruleset.Rules))

	command, cmdArgs := args[0], args[1:]
	if _, err := exec.LookPath(command); err != nil {
		if _, statErr := os.Stat(command); statErr != nil {
			log.Errorf("command not found in $PATH: %s", command)
			return 1, &enclosure.CommandNotFoundError{Command: command}
		}
	}

	e := enclosure.New(ruleset, command, cmdArgs, enclosure.Options{
		ImmutableRoot: flagImmutable,
		Trace:         flagTrace,
		Dotenv:        flagDotenv,
	})

	status, err := e.Run()
	if err != nil {
		return 2, err
	}
	return status, nil
}
