package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"recordlinker/internal/record"
)

// ImportResult counts the outcome of one Import call.
type ImportResult struct {
	Source   string `json:"source"`
	Read     int    `json:"read"`
	Inserted int    `json:"inserted"`
	Ignored  int    `json:"ignored"`
}

// Entry is one stored record.
type Entry struct {
	Digest     string    `json:"digest"`
	Path       string    `json:"path"`
	Source     string    `json:"source"`
	ImportedAt time.Time `json:"imported_at"`
}

// Stats summarizes catalog contents.
type Stats struct {
	Records          int `json:"records"`
	Digests          int `json:"digests"`
	DuplicateDigests int `json:"duplicate_digests"`
	Sources          int `json:"sources"`
}

// Group is a digest shared by more than one path.
type Group struct {
	Digest string   `json:"digest"`
	Paths  []string `json:"paths"`
}

// Import parses record lines from r and stores them under source in a single
// transaction. Pairs already present are counted as ignored. A malformed line
// aborts the import before anything is written.
func (c *Catalog) Import(ctx context.Context, source string, r io.Reader) (ImportResult, error) {
	ctx = ensureContext(ctx)
	result := ImportResult{Source: source}
	if strings.TrimSpace(source) == "" {
		return result, errors.New("import source is required")
	}

	var records []record.Record
	if err := record.Scan(r, source, func(_ int, rec record.Record) error {
		records = append(records, rec)
		return nil
	}); err != nil {
		return result, err
	}
	result.Read = len(records)
	if len(records) == 0 {
		return result, nil
	}

	importedAt := c.now().UTC().Format(time.RFC3339Nano)
	err := retryOnBusy(ctx, func() error {
		inserted, err := c.insertAll(ctx, source, importedAt, records)
		if err != nil {
			return err
		}
		result.Inserted = inserted
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("import %s: %w", source, err)
	}
	result.Ignored = result.Read - result.Inserted
	return result, nil
}

func (c *Catalog) insertAll(ctx context.Context, source, importedAt string, records []record.Record) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO records (digest, path, source, imported_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		res, err := stmt.ExecContext(ctx, rec.Digest, rec.Path, source, importedAt)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", rec.Path, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return inserted, nil
}

// Lookup returns every stored record for digest in import order.
func (c *Catalog) Lookup(ctx context.Context, digest string) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := c.db.QueryContext(ctx,
		"SELECT digest, path, source, imported_at FROM records WHERE digest = ? ORDER BY id", digest)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", digest, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			importedAt string
		)
		if err := rows.Scan(&entry.Digest, &entry.Path, &entry.Source, &importedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		entry.ImportedAt, _ = time.Parse(time.RFC3339Nano, importedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return entries, nil
}

// Stats reports record, digest, and source totals.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT digest), COUNT(DISTINCT source) FROM records",
	).Scan(&stats.Records, &stats.Digests, &stats.Sources)
	if err != nil {
		return Stats{}, fmt.Errorf("count records: %w", err)
	}
	err = c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM (SELECT digest FROM records GROUP BY digest HAVING COUNT(*) > 1)",
	).Scan(&stats.DuplicateDigests)
	if err != nil {
		return Stats{}, fmt.Errorf("count duplicate digests: %w", err)
	}
	return stats, nil
}

// Duplicates returns digests stored under more than one path, the most
// duplicated first. A limit <= 0 returns every group.
func (c *Catalog) Duplicates(ctx context.Context, limit int) ([]Group, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = -1
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT digest FROM records
		GROUP BY digest
		HAVING COUNT(*) > 1
		ORDER BY COUNT(*) DESC, MIN(id)
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query duplicates: %w", err)
	}
	var digests []string
	for rows.Next() {
		var digest string
		if err := rows.Scan(&digest); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan duplicate digest: %w", err)
		}
		digests = append(digests, digest)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	groups := make([]Group, 0, len(digests))
	for _, digest := range digests {
		entries, err := c.Lookup(ctx, digest)
		if err != nil {
			return nil, err
		}
		group := Group{Digest: digest, Paths: make([]string, 0, len(entries))}
		for _, entry := range entries {
			group.Paths = append(group.Paths, entry.Path)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func closeRows(rows *sql.Rows) error {
	iterErr := rows.Err()
	closeErr := rows.Close()
	if iterErr != nil {
		return fmt.Errorf("iterate rows: %w", iterErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close rows: %w", closeErr)
	}
	return nil
}
