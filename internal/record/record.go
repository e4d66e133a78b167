// Package record defines the digest,path line format shared by shard files,
// dedup inputs, and dedup output.
//
// Lines carry exactly one comma between the digest and the path. Paths are
// not quoted or escaped, so paths containing a comma or a line break are
// rejected before they are written instead of corrupting later parsing.
package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Separator splits the digest from the path on a record line.
const Separator = ","

// maxLineBytes bounds a single record line; long paths are allowed but a
// runaway line without terminators is not.
const maxLineBytes = 1 << 20

var (
	// ErrMalformed marks a line that does not split into exactly two fields.
	ErrMalformed = errors.New("malformed record line")
	// ErrUnsupportedPath marks a path that cannot be stored in the line format.
	ErrUnsupportedPath = errors.New("path contains a comma or line break")
)

// Record pairs a content digest with the path it was computed from.
type Record struct {
	Digest string
	Path   string
}

// MalformedError reports the location of a line that failed to parse.
type MalformedError struct {
	File string
	Line int
	Text string
}

func (e *MalformedError) Error() string {
	loc := e.File
	if loc == "" {
		loc = "<input>"
	}
	return fmt.Sprintf("%s:%d: %v: %q", loc, e.Line, ErrMalformed, e.Text)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

// ValidatePath reports whether path can be written as a record field.
func ValidatePath(path string) error {
	if strings.ContainsAny(path, ",\r\n") {
		return fmt.Errorf("%w: %q", ErrUnsupportedPath, path)
	}
	return nil
}

// Format renders r as a newline-terminated record line.
func Format(r Record) string {
	return r.Digest + Separator + r.Path + "\n"
}

// Append appends the record line for r to dst.
func Append(dst []byte, r Record) []byte {
	dst = append(dst, r.Digest...)
	dst = append(dst, Separator...)
	dst = append(dst, r.Path...)
	return append(dst, '\n')
}

// Parse splits a single line (without its terminator) into a record.
func Parse(line string) (Record, error) {
	line = strings.TrimSuffix(line, "\r")
	fields := strings.Split(line, Separator)
	if len(fields) != 2 {
		return Record{}, ErrMalformed
	}
	return Record{Digest: fields[0], Path: fields[1]}, nil
}

// Scan reads record lines from r and calls fn for each one in order. name
// labels the source in MalformedError values. Scanning stops at the first
// malformed line or the first error returned by fn.
func Scan(r io.Reader, name string, fn func(lineNo int, rec Record) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		rec, err := Parse(text)
		if err != nil {
			return &MalformedError{File: name, Line: lineNo, Text: text}
		}
		if err := fn(lineNo, rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}
