// Package shardstore owns the append-only shard files of one hashing run.
//
// Each shard key maps to a single file named <key>_<suffix>.csv inside the
// destination directory. Files are opened lazily on the first write for their
// key and stay open until Close. Store is not safe for concurrent use.
package shardstore

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// Extension is the file extension of shard files.
const Extension = ".csv"

const writeBufferSize = 32 * 1024

var (
	// ErrClosed is returned by writes after Close.
	ErrClosed = errors.New("shard store is closed")
	// ErrInvalidKey is returned for keys that are not a single hex character.
	ErrInvalidKey = errors.New("shard key must be a single hex character")
)

// FileName returns the shard file name for key and suffix.
func FileName(key, suffix string) string {
	return key + "_" + suffix + Extension
}

type shard struct {
	file afero.File
	buf  *bufio.Writer
	path string
}

// Store maps shard keys to open append handles under one directory.
type Store struct {
	fs     afero.Fs
	dir    string
	suffix string
	shards map[string]*shard
	closed bool
}

// New returns a Store writing into dir with the given run suffix. The
// directory must already exist. A nil fsys uses the operating system
// filesystem.
func New(fsys afero.Fs, dir, suffix string) (*Store, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("shard directory is required")
	}
	if suffix == "" || strings.ContainsAny(suffix, `/\`) || strings.Contains(suffix, "..") {
		return nil, fmt.Errorf("invalid shard suffix %q", suffix)
	}
	return &Store{
		fs:     fsys,
		dir:    dir,
		suffix: suffix,
		shards: make(map[string]*shard),
	}, nil
}

// Dir returns the destination directory.
func (s *Store) Dir() string { return s.dir }

// Suffix returns the run suffix embedded in shard file names.
func (s *Store) Suffix() string { return s.suffix }

// Write appends p to the shard for key, opening the shard file on first use.
// p must already be a complete, newline-terminated record line.
func (s *Store) Write(key string, p []byte) error {
	if s.closed {
		return ErrClosed
	}
	sh, err := s.shard(key)
	if err != nil {
		return err
	}
	if _, err := sh.buf.Write(p); err != nil {
		return fmt.Errorf("write shard %s: %w", sh.path, err)
	}
	return nil
}

func (s *Store) shard(key string) (*shard, error) {
	if sh, ok := s.shards[key]; ok {
		return sh, nil
	}
	if !validKey(key) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	path := filepath.Join(s.dir, FileName(key, s.suffix))
	file, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open shard %s: %w", path, err)
	}
	sh := &shard{file: file, buf: bufio.NewWriterSize(file, writeBufferSize), path: path}
	s.shards[key] = sh
	return sh, nil
}

// Finalize flushes and syncs every open shard.
func (s *Store) Finalize() error {
	if s.closed {
		return ErrClosed
	}
	var errs []error
	for _, key := range s.keys() {
		sh := s.shards[key]
		if err := sh.buf.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush shard %s: %w", sh.path, err))
			continue
		}
		if err := sh.file.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync shard %s: %w", sh.path, err))
		}
	}
	return errors.Join(errs...)
}

// Close finalizes the store and releases every handle. The store cannot be
// used afterwards; closing twice is a no-op.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	err := s.Finalize()
	errs := []error{err}
	for _, key := range s.keys() {
		sh := s.shards[key]
		if cerr := sh.file.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("close shard %s: %w", sh.path, cerr))
		}
	}
	s.closed = true
	return errors.Join(errs...)
}

// Files returns the shard file paths opened so far, sorted.
func (s *Store) Files() []string {
	out := make([]string, 0, len(s.shards))
	for _, key := range s.keys() {
		out = append(out, s.shards[key].path)
	}
	return out
}

func (s *Store) keys() []string {
	keys := make([]string, 0, len(s.shards))
	for key := range s.shards {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func validKey(key string) bool {
	if len(key) != 1 {
		return false
	}
	c := key[0]
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f')
}
