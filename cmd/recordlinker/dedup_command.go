package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"recordlinker/internal/dedup"
	"recordlinker/internal/dirlock"
	"recordlinker/internal/logging"
	"recordlinker/internal/pathsource"
)

func newDedupCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "dedup <input-pattern>... <output-file>",
		Short: "Collapse record files into one record per digest",
		Long: "Read every digest,path file matching the input patterns, in argument\n" +
			"order, and write the first path seen for each digest to <output-file>.\n" +
			"Any malformed line aborts the run without touching the output.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			inputs, output := args[:len(args)-1], args[len(args)-1]
			for _, pattern := range inputs {
				if _, err := pathsource.Open(nil, pattern); err != nil {
					return err
				}
			}

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			lock, err := dirlock.Acquire(filepath.Dir(output))
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logging.WarnWithContext(logger, "failed to release output lock", "lock_release_failed",
						logging.Error(err),
						logging.String(logging.FieldPath, lock.Path()),
					)
				}
			}()

			deduper := dedup.New(dedup.Options{
				FS:         afero.NewOsFs(),
				Logger:     logger,
				ReadOutput: !cfg.Dedup.SkipOutputInInputs,
				Exclude:    []string{lock.Path()},
			})
			report, err := deduper.Run(cmd.Context(), inputs, output)
			if err != nil {
				return fmt.Errorf("dedup: %w", err)
			}

			if jsonOutput {
				return writeJSON(cmd, report)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderDedupReport(report))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run report as JSON")
	return cmd
}
