package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"recordlinker/internal/catalog"
	"recordlinker/internal/config"
	"recordlinker/internal/logging"
	"recordlinker/internal/pathsource"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var dbPath string

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Index record files in a SQLite catalog and query duplicates",
	}
	catalogCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Catalog database path (defaults to catalog.path)")

	open := func(cmd *cobra.Command) (*catalog.Catalog, error) {
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return nil, err
		}
		path := cfg.Catalog.Path
		if trimmed := strings.TrimSpace(dbPath); trimmed != "" {
			if path, err = config.ExpandPath(trimmed); err != nil {
				return nil, fmt.Errorf("resolve catalog path: %w", err)
			}
		}
		return catalog.Open(cmd.Context(), path)
	}

	catalogCmd.AddCommand(newCatalogImportCommand(ctx, open))
	catalogCmd.AddCommand(newCatalogLookupCommand(open))
	catalogCmd.AddCommand(newCatalogStatsCommand(open))
	catalogCmd.AddCommand(newCatalogDuplicatesCommand(open))
	return catalogCmd
}

type catalogOpener func(cmd *cobra.Command) (*catalog.Catalog, error)

func newCatalogImportCommand(ctx *commandContext, open catalogOpener) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "import <pattern>...",
		Short: "Import shard or dedup files into the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys := afero.NewOsFs()
			sources := make([]*pathsource.Source, 0, len(args))
			for _, pattern := range args {
				src, err := pathsource.Open(fsys, pattern)
				if err != nil {
					return err
				}
				sources = append(sources, src)
			}

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			logger = logging.NewComponentLogger(logger, "catalog")

			cat, err := open(cmd)
			if err != nil {
				return err
			}
			defer cat.Close()

			results := []catalog.ImportResult{}
			for _, src := range sources {
				for path, entryErr := range src.All() {
					if entryErr != nil {
						return fmt.Errorf("expand %s: %w", src.Pattern(), entryErr)
					}
					res, err := importFile(cmd, fsys, cat, path)
					if err != nil {
						return err
					}
					logger.Info("records imported",
						logging.Args(
							logging.String(logging.FieldPath, path),
							logging.Int("read", res.Read),
							logging.Int("inserted", res.Inserted),
						)...,
					)
					results = append(results, res)
				}
			}

			if jsonOutput {
				return writeJSON(cmd, results)
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No files matched")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderImportResults(results, isTerminal(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit import results as JSON")
	return cmd
}

func importFile(cmd *cobra.Command, fsys afero.Fs, cat *catalog.Catalog, path string) (catalog.ImportResult, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return catalog.ImportResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return cat.Import(cmd.Context(), path, file)
}

func newCatalogLookupCommand(open catalogOpener) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "lookup <digest>",
		Short: "List every cataloged path with the given digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			digest := strings.ToLower(strings.TrimSpace(args[0]))
			if digest == "" {
				return errors.New("digest is required")
			}
			cat, err := open(cmd)
			if err != nil {
				return err
			}
			defer cat.Close()

			entries, err := cat.Lookup(cmd.Context(), digest)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No records for %s\n", digest)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderEntries(entries, isTerminal(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit matching records as JSON")
	return cmd
}

func newCatalogStatsCommand(open catalogOpener) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show catalog totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := open(cmd)
			if err != nil {
				return err
			}
			defer cat.Close()

			stats, err := cat.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, stats)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderCatalogStats(cat.Path(), stats))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit totals as JSON")
	return cmd
}

func newCatalogDuplicatesCommand(open catalogOpener) *cobra.Command {
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "List digests shared by more than one path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := open(cmd)
			if err != nil {
				return err
			}
			defer cat.Close()

			groups, err := cat.Duplicates(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, groups)
			}
			if len(groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No duplicate content found")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderGroups(groups, isTerminal(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of groups to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit duplicate groups as JSON")
	return cmd
}
