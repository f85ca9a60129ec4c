package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/boxxy-run/boxxy/internal/boxlog"
	"github.com/boxxy-run/boxxy/internal/scanner"
)

// scanCmd generates suggested rules from applications found installed
// in the user's home directory.
func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "scan the home directory for applications with known rule fixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			boxlog.Init(flagLogLevel)

			s, err := scanner.New()
			if err != nil {
				return err
			}

			found, err := s.Scan()
			if err != nil {
				return err
			}

			if len(found) == 0 {
				fmt.Println("no known applications found.")
				return nil
			}

			bold := color.New(color.Bold)
			for _, app := range found {
				bold.Println(app.Name)
				for _, fix := range app.Fixes {
					fmt.Println(fix)
				}
			}
			return nil
		},
	}
}
