package pathsource

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// ErrBadPattern is returned by Open when the pattern is syntactically invalid.
var ErrBadPattern = filepath.ErrBadPattern

// recursiveSegment matches zero or more directory levels.
const recursiveSegment = "**"

// EntryError reports a path that could not be inspected: a match that
// disappeared before it was classified, or a directory that could not be read
// while expanding the pattern.
type EntryError struct {
	Path string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("inspect %s: %v", e.Path, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// Source is a single-use sequence of regular-file paths matching a pattern.
type Source struct {
	fs        afero.Fs
	pattern   string
	base      string
	rest      string
	segments  []string
	excluded  map[string]struct{}
	exhausted bool
}

// Open validates pattern and returns a Source over fsys. A nil fsys uses the
// operating system filesystem.
func Open(fsys afero.Fs, pattern string) (*Source, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("pattern is empty: %w", ErrBadPattern)
	}
	slashed := filepath.ToSlash(pattern)
	if !doublestar.ValidatePattern(slashed) {
		return nil, fmt.Errorf("pattern %q: %w", pattern, ErrBadPattern)
	}
	base, rest := doublestar.SplitPattern(slashed)
	return &Source{
		fs:       fsys,
		pattern:  pattern,
		base:     filepath.Clean(filepath.FromSlash(base)),
		rest:     rest,
		segments: strings.Split(rest, "/"),
	}, nil
}

// Pattern returns the pattern the source expands.
func (s *Source) Pattern() string {
	return s.pattern
}

// Exclude drops the given paths from the sequence. Paths are compared in
// absolute, cleaned form. Exclude must be called before All.
func (s *Source) Exclude(paths ...string) {
	if len(paths) == 0 {
		return
	}
	if s.excluded == nil {
		s.excluded = make(map[string]struct{}, len(paths))
	}
	for _, path := range paths {
		s.excluded[absPath(path)] = struct{}{}
	}
}

// Exhausted reports whether All has already been consumed.
func (s *Source) Exhausted() bool {
	return s.exhausted
}

// All yields each matching regular file in lexical walk order. Paths that
// cannot be inspected, including directories that fail to open while the
// pattern is expanded, are yielded as an *EntryError with an empty path.
// Directories and special files are skipped. The sequence can be ranged over
// once; later calls yield nothing.
func (s *Source) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.exhausted {
			return
		}
		s.exhausted = true
		if s.rest == "" {
			return
		}
		s.walk(yield)
	}
}

func (s *Source) walk(yield func(string, error) bool) {
	_ = afero.Walk(s.fs, s.base, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			if path == s.base && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if !yield("", &EntryError{Path: path, Err: err}) {
				return filepath.SkipAll
			}
			return nil
		}
		rel, relErr := filepath.Rel(s.base, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			if !s.mayContain(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := doublestar.Match(s.rest, rel); !ok || s.isExcluded(path) {
			return nil
		}
		regular, statErr := s.isRegular(path, info)
		if statErr != nil {
			if !yield("", &EntryError{Path: path, Err: statErr}) {
				return filepath.SkipAll
			}
			return nil
		}
		if regular && !yield(path, nil) {
			return filepath.SkipAll
		}
		return nil
	})
}

// mayContain reports whether the directory at rel, relative to the static
// base, can hold a match. Directories that cannot are never opened.
func (s *Source) mayContain(rel string) bool {
	names := strings.Split(rel, "/")
	for i, name := range names {
		if i >= len(s.segments) {
			return false
		}
		segment := s.segments[i]
		if segment == recursiveSegment {
			return true
		}
		ok, err := doublestar.Match(segment, name)
		if err != nil {
			// Brace alternatives can span separators; let the full match decide.
			return true
		}
		if !ok {
			return false
		}
	}
	return len(names) < len(s.segments)
}

// isRegular follows symlinks so a link to a regular file counts as a file
// while a link to a directory does not.
func (s *Source) isRegular(path string, info fs.FileInfo) (bool, error) {
	if info == nil || info.Mode()&os.ModeSymlink != 0 {
		var err error
		info, err = s.fs.Stat(path)
		if err != nil {
			return false, err
		}
	}
	return info.Mode().IsRegular(), nil
}

func (s *Source) isExcluded(path string) bool {
	if len(s.excluded) == 0 {
		return false
	}
	_, ok := s.excluded[absPath(path)]
	return ok
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
