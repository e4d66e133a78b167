// Package contenthash computes BLAKE3 content digests of files by streaming
// them through a fixed-size buffer.
package contenthash

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"lukechampine.com/blake3"
)

// DefaultBufferSize is the read buffer used when none is configured.
const DefaultBufferSize = 64 * 1024

// digestBytes is the BLAKE3 output length; hex encoding doubles it.
const digestBytes = 32

// Digest is the lowercase hex encoding of a file's BLAKE3-256 hash.
type Digest string

// ShardKey returns the leading hex character of the digest.
func (d Digest) ShardKey() string {
	if d == "" {
		return ""
	}
	return string(d[:1])
}

func (d Digest) String() string { return string(d) }

// Result is the digest of one file together with the number of bytes hashed.
type Result struct {
	Digest Digest
	Size   int64
}

// Hasher computes digests for files on a filesystem.
type Hasher struct {
	fs         afero.Fs
	bufferSize int
}

// New returns a Hasher reading from fsys with the given buffer size. A nil
// fsys uses the operating system filesystem; a non-positive size uses
// DefaultBufferSize.
func New(fsys afero.Fs, bufferSize int) *Hasher {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hasher{fs: fsys, bufferSize: bufferSize}
}

// BufferSize returns the read buffer size in bytes.
func (h *Hasher) BufferSize() int {
	return h.bufferSize
}

// Sum opens path and returns its digest.
func (h *Hasher) Sum(path string) (Result, error) {
	file, err := h.fs.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	res, err := SumReader(file, make([]byte, h.bufferSize))
	if err != nil {
		return Result{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return res, nil
}

// SumReader hashes everything read from r, using buf for each read.
func SumReader(r io.Reader, buf []byte) (Result, error) {
	if len(buf) == 0 {
		return Result{}, errors.New("read buffer must not be empty")
	}
	hasher := blake3.New(digestBytes, nil)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, err
		}
	}
	return Result{Digest: Digest(hex.EncodeToString(hasher.Sum(nil))), Size: total}, nil
}

// SumBytes returns the digest of data.
func SumBytes(data []byte) Digest {
	sum := blake3.Sum256(data)
	return Digest(hex.EncodeToString(sum[:]))
}
