package hashing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"recordlinker/internal/contenthash"
	"recordlinker/internal/logging"
	"recordlinker/internal/pathsource"
	"recordlinker/internal/record"
	"recordlinker/internal/runtoken"
	"recordlinker/internal/shardstore"
)

// Options configures a Pipeline. Zero values select the defaults noted on
// each field.
type Options struct {
	// FS is the filesystem read and written by the run. Default: OS filesystem.
	FS afero.Fs
	// Hasher computes per-file digests. Default: contenthash.New(FS, 0).
	Hasher *contenthash.Hasher
	// Suffix supplies the run suffix. Default: runtoken.Random(runtoken.DefaultLength).
	Suffix runtoken.Provider
	// Logger receives per-file failures and the run summary. Default: no-op.
	Logger *slog.Logger
	// Now is the clock used for elapsed time. Default: time.Now.
	Now func() time.Time
	// Exclude lists paths never hashed even when the pattern matches them,
	// such as a lock file inside the destination.
	Exclude []string
}

// Pipeline hashes the files matched by a pattern into per-shard record files.
type Pipeline struct {
	fs      afero.Fs
	hasher  *contenthash.Hasher
	suffix  runtoken.Provider
	logger  *slog.Logger
	now     func() time.Time
	exclude []string
}

type pending struct {
	key string
	rec record.Record
}

// New constructs a Pipeline from opts.
func New(opts Options) *Pipeline {
	fsys := opts.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	hasher := opts.Hasher
	if hasher == nil {
		hasher = contenthash.New(fsys, 0)
	}
	suffix := opts.Suffix
	if suffix == nil {
		suffix = runtoken.Random(runtoken.DefaultLength)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		fs:      fsys,
		hasher:  hasher,
		suffix:  suffix,
		logger:  logging.NewComponentLogger(opts.Logger, "hashing"),
		now:     now,
		exclude: opts.Exclude,
	}
}

// Run expands pattern, hashes every matched regular file, and writes one
// digest,path line per file into the shard for the digest's leading
// character under destDir.
//
// Per-file failures are logged and excluded from the report. A malformed
// pattern, an unusable destination, or any shard write failure aborts the
// run; shard lines written before the failure stay on disk.
func (p *Pipeline) Run(ctx context.Context, pattern, destDir string) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	src, err := pathsource.Open(p.fs, pattern)
	if err != nil {
		return nil, err
	}
	src.Exclude(p.exclude...)
	suffix, err := p.suffix.Token()
	if err != nil {
		return nil, fmt.Errorf("generate run suffix: %w", err)
	}

	report := &Report{
		RunID:       uuid.NewString(),
		Suffix:      suffix,
		Pattern:     pattern,
		Destination: destDir,
		ShardCounts: make(map[string]int),
	}
	logger := p.logger.With(logging.String(logging.FieldRunID, report.RunID))
	logger.Info("hashing started",
		logging.Args(
			logging.String("pattern", pattern),
			logging.String("destination", destDir),
			logging.String("suffix", suffix),
			logging.Int("buffer_size", p.hasher.BufferSize()),
		)...,
	)

	if err := p.fs.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", destDir, err)
	}
	store, err := shardstore.New(p.fs, destDir, suffix)
	if err != nil {
		return nil, err
	}

	start := p.now()
	var records []pending
	for path, entryErr := range src.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entryErr != nil {
			report.Skipped++
			logging.ErrorWithContext(logger, "error reading file", "path_unreadable",
				logging.Error(entryErr),
				logging.String(logging.FieldErrorHint, "file was skipped; check that it still exists and is readable"),
			)
			continue
		}
		rec, size, err := p.hashOne(path)
		if err != nil {
			report.Skipped++
			logging.ErrorWithContext(logger, "error hashing file", "hash_failed",
				logging.String(logging.FieldPath, path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "file was skipped; fix permissions or rename the file and rerun"),
			)
			continue
		}
		key := contenthash.Digest(rec.Digest).ShardKey()
		records = append(records, pending{key: key, rec: rec})
		report.ShardCounts[key]++
		report.Files++
		report.Bytes += size
		logger.Debug("file hashed",
			logging.Args(
				logging.String(logging.FieldPath, path),
				logging.String("digest", rec.Digest),
				logging.Int64("bytes", size),
			)...,
		)
	}

	outputs, err := writeShards(store, records)
	report.Outputs = outputs
	if err != nil {
		return nil, err
	}
	report.Elapsed = p.now().Sub(start)

	logger.Info("hashing finished",
		logging.Args(
			logging.Int("files", report.Files),
			logging.Int("skipped", report.Skipped),
			logging.Int64("bytes", report.Bytes),
			logging.Duration("elapsed", report.Elapsed),
			logging.Float64("bytes_per_second", report.Throughput()),
			logging.Any("shard_counts", report.ShardCounts),
		)...,
	)
	return report, nil
}

func (p *Pipeline) hashOne(path string) (record.Record, int64, error) {
	if err := record.ValidatePath(path); err != nil {
		return record.Record{}, 0, err
	}
	res, err := p.hasher.Sum(path)
	if err != nil {
		return record.Record{}, 0, err
	}
	return record.Record{Digest: res.Digest.String(), Path: path}, res.Size, nil
}

func writeShards(store *shardstore.Store, records []pending) ([]string, error) {
	line := make([]byte, 0, 256)
	for _, item := range records {
		line = record.Append(line[:0], item.rec)
		if err := store.Write(item.key, line); err != nil {
			closeErr := store.Close()
			return store.Files(), errors.Join(err, closeErr)
		}
	}
	if err := store.Close(); err != nil {
		return store.Files(), fmt.Errorf("finalize shards: %w", err)
	}
	return store.Files(), nil
}
