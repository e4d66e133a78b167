// Package runtoken supplies the per-run suffix that keeps shard files from
// different invocations apart when they share a destination directory.
package runtoken

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// DefaultLength is the suffix length used by the CLI.
const DefaultLength = 6

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Provider yields a run token. Implementations are called once per run.
type Provider interface {
	Token() (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (string, error)

func (f ProviderFunc) Token() (string, error) { return f() }

// Random returns a provider of length-character tokens drawn uniformly from
// [0-9a-z].
func Random(length int) Provider {
	return ProviderFunc(func() (string, error) {
		return randomToken(length)
	})
}

// Fixed returns a provider that always yields token.
func Fixed(token string) Provider {
	return ProviderFunc(func() (string, error) {
		if token == "" {
			return "", errors.New("run token must not be empty")
		}
		return token, nil
	})
}

func randomToken(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("run token length must be positive, got %d", length)
	}
	out := make([]byte, length)
	buf := make([]byte, length)
	filled := 0
	// 252 is the largest multiple of 36 below 256; higher bytes are rejected
	// to keep the distribution uniform.
	for filled < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= 252 {
				continue
			}
			out[filled] = alphabet[int(b)%len(alphabet)]
			filled++
			if filled == length {
				break
			}
		}
	}
	return string(out), nil
}
