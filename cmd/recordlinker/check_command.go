package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"recordlinker/internal/config"
	"recordlinker/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check [dir]...",
		Short: "Verify the catalog, log directory, and optional output directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, dir := range args {
				expanded, err := config.ExpandPath(strings.TrimSpace(dir))
				if err != nil {
					return fmt.Errorf("resolve %s: %w", dir, err)
				}
				results = append(results, preflight.CheckDirectoryAccess("Output directory", expanded))
			}

			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderChecks(results, isTerminal(out)))
			}

			if !preflight.Passed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit check results as JSON")
	return cmd
}
