package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"recordlinker/internal/contenthash"
	"recordlinker/internal/dirlock"
	"recordlinker/internal/hashing"
	"recordlinker/internal/logging"
	"recordlinker/internal/pathsource"
	"recordlinker/internal/runtoken"
)

func newHashCommand(ctx *commandContext) *cobra.Command {
	var bufferSize int
	var suffix string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "hash <pattern> <output-dir>",
		Short: "Hash files matching a glob pattern into per-shard record files",
		Long: "Hash every regular file matching <pattern> with BLAKE3 and append one\n" +
			"digest,path line per file to <output-dir>/<shard>_<suffix>.csv, where the\n" +
			"shard is the first hex character of the digest. Quote the pattern so the\n" +
			"shell does not expand it; ** matches any number of directories.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pattern, destDir := args[0], args[1]

			// Reject bad patterns before the destination is touched.
			if _, err := pathsource.Open(nil, pattern); err != nil {
				return err
			}

			size := cfg.Hashing.BufferSize
			if cmd.Flags().Changed("buffer-size") {
				if bufferSize <= 0 {
					return errors.New("--buffer-size must be positive")
				}
				size = bufferSize
			}

			var provider runtoken.Provider = runtoken.Random(cfg.Hashing.SuffixLength)
			if cmd.Flags().Changed("suffix") {
				trimmed := strings.TrimSpace(suffix)
				if trimmed == "" {
					return errors.New("--suffix must not be empty")
				}
				provider = runtoken.Fixed(trimmed)
			}

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			lock, err := dirlock.Acquire(destDir)
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logging.WarnWithContext(logger, "failed to release destination lock", "lock_release_failed",
						logging.Error(err),
						logging.String(logging.FieldPath, lock.Path()),
					)
				}
			}()

			fsys := afero.NewOsFs()
			pipeline := hashing.New(hashing.Options{
				FS:      fsys,
				Hasher:  contenthash.New(fsys, size),
				Suffix:  provider,
				Logger:  logger,
				Exclude: []string{lock.Path()},
			})
			report, err := pipeline.Run(cmd.Context(), pattern, destDir)
			if err != nil {
				return fmt.Errorf("hash %s: %w", pattern, err)
			}

			if jsonOutput {
				return writeJSON(cmd, report)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderHashReport(report, isTerminal(cmd.OutOrStdout())))
			return nil
		},
	}

	cmd.Flags().IntVar(&bufferSize, "buffer-size", contenthash.DefaultBufferSize, "Read buffer size in bytes (defaults to hashing.buffer_size)")
	cmd.Flags().StringVar(&suffix, "suffix", "", "Use a fixed run suffix instead of a random one")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the run report as JSON")
	return cmd
}
