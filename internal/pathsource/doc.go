// Package pathsource expands glob patterns into a lazy, single-use sequence of
// regular-file paths.
//
// Patterns use doublestar syntax: filepath.Match wildcards per segment, brace
// alternatives, and a "**" segment matching zero or more directory levels.
// Expansion walks the static directory prefix and only descends into
// directories that can still hold a match. A malformed pattern is rejected by
// Open before any entry is produced, while per-entry failures (a match
// vanishing before it can be inspected, an unreadable directory) are yielded
// in-band so callers decide whether to continue.
package pathsource
