package dedup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"recordlinker/internal/logging"
	"recordlinker/internal/pathsource"
	"recordlinker/internal/record"
)

// Options configures a Deduplicator.
type Options struct {
	// FS is the filesystem read and written by the run. Default: OS filesystem.
	FS afero.Fs
	// Logger receives progress and the run summary. Default: no-op.
	Logger *slog.Logger
	// Now is the clock used for elapsed time. Default: time.Now.
	Now func() time.Time
	// ReadOutput lets an input pattern that matches the output file merge
	// the previous output into the run. Default: the output is skipped.
	ReadOutput bool
	// Exclude lists paths never read even when an input pattern matches them.
	Exclude []string
}

// Deduplicator merges record files into a single canonical output file.
type Deduplicator struct {
	fs         afero.Fs
	logger     *slog.Logger
	now        func() time.Time
	readOutput bool
	exclude    []string
}

// New constructs a Deduplicator from opts.
func New(opts Options) *Deduplicator {
	fsys := opts.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Deduplicator{
		fs:         fsys,
		logger:     logging.NewComponentLogger(opts.Logger, "dedup"),
		now:        now,
		readOutput: opts.ReadOutput,
		exclude:    opts.Exclude,
	}
}

// Run reads every file matched by inputs and writes the first-seen record of
// each digest to output, replacing any previous content. A bad pattern, an
// unreadable input, or a malformed line aborts the run before output is
// written. A file matching output is skipped unless Options.ReadOutput is
// set; inputs are fully read before output is truncated.
func (d *Deduplicator) Run(ctx context.Context, inputs []string, output string) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(output) == "" {
		return nil, errors.New("output path is required")
	}
	sources := make([]*pathsource.Source, 0, len(inputs))
	for _, pattern := range inputs {
		src, err := pathsource.Open(d.fs, pattern)
		if err != nil {
			return nil, err
		}
		src.Exclude(d.exclude...)
		sources = append(sources, src)
	}

	report := &Report{RunID: uuid.NewString(), Output: output, Inputs: []string{}}
	logger := d.logger.With(logging.String(logging.FieldRunID, report.RunID))
	logger.Info("dedup started",
		logging.Args(
			logging.Int("patterns", len(inputs)),
			logging.String("output", output),
		)...,
	)

	start := d.now()
	table := NewTable()
	for _, src := range sources {
		for path, entryErr := range src.All() {
			if entryErr != nil {
				return nil, fmt.Errorf("expand %s: %w", src.Pattern(), entryErr)
			}
			if !d.readOutput && samePath(path, output) {
				logging.WarnWithContext(logger, "skipping output file matched by input pattern", "output_in_inputs",
					logging.String(logging.FieldPath, path),
					logging.String("pattern", src.Pattern()),
					logging.String(logging.FieldImpact, "previous output is not merged into this run"),
				)
				continue
			}
			count, err := d.readInput(ctx, path, table)
			if err != nil {
				return nil, err
			}
			report.Inputs = append(report.Inputs, path)
			logger.Debug("input read",
				logging.Args(
					logging.String(logging.FieldPath, path),
					logging.Int("records", count),
				)...,
			)
		}
	}

	if err := d.writeOutput(output, table.Records()); err != nil {
		return nil, err
	}
	report.Unique = table.Len()
	report.Total = table.Total()
	report.Elapsed = d.now().Sub(start)

	logger.Info("dedup finished",
		logging.Args(
			logging.Int("inputs", len(report.Inputs)),
			logging.Int("unique", report.Unique),
			logging.Int("total", report.Total),
			logging.Duration("elapsed", report.Elapsed),
			logging.Float64("records_per_second", report.Throughput()),
		)...,
	)
	return report, nil
}

func (d *Deduplicator) readInput(ctx context.Context, path string, table *Table) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	file, err := d.fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open input %s: %w", path, err)
	}
	defer file.Close()

	count := 0
	err = record.Scan(file, path, func(_ int, rec record.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		table.Add(rec)
		count++
		return nil
	})
	return count, err
}

func (d *Deduplicator) writeOutput(output string, records []record.Record) error {
	if dir := filepath.Dir(output); dir != "." {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}
	file, err := d.fs.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create output %s: %w", output, err)
	}

	w := bufio.NewWriterSize(file, 32*1024)
	line := make([]byte, 0, 256)
	for _, rec := range records {
		line = record.Append(line[:0], rec)
		if _, err := w.Write(line); err != nil {
			_ = file.Close()
			return fmt.Errorf("write output %s: %w", output, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("flush output %s: %w", output, err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("sync output %s: %w", output, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close output %s: %w", output, err)
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
