package dedup

import (
	"slices"

	"recordlinker/internal/record"
)

// Table groups observed paths by digest, remembering first-seen order.
type Table struct {
	order []string
	paths map[string][]string
	total int
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{paths: make(map[string][]string)}
}

// Add records one observation of rec.
func (t *Table) Add(rec record.Record) {
	if t.paths == nil {
		t.paths = make(map[string][]string)
	}
	existing, ok := t.paths[rec.Digest]
	if !ok {
		t.order = append(t.order, rec.Digest)
	}
	t.paths[rec.Digest] = append(existing, rec.Path)
	t.total++
}

// Len returns the number of distinct digests.
func (t *Table) Len() int { return len(t.order) }

// Total returns the number of records added, duplicates included.
func (t *Table) Total() int { return t.total }

// Records returns one record per digest carrying the first path seen for it,
// in first-seen digest order.
func (t *Table) Records() []record.Record {
	out := make([]record.Record, 0, len(t.order))
	for _, digest := range t.order {
		out = append(out, record.Record{Digest: digest, Path: t.paths[digest][0]})
	}
	return out
}

// Paths returns every path observed for digest in the order seen, or nil.
func (t *Table) Paths(digest string) []string {
	return slices.Clone(t.paths[digest])
}
