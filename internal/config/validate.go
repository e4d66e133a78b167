package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateHashing(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateHashing() error {
	if c.Hashing.BufferSize < minBufferSize || c.Hashing.BufferSize > maxBufferSize {
		return fmt.Errorf("hashing.buffer_size must be between %d and %d bytes", minBufferSize, maxBufferSize)
	}
	if c.Hashing.SuffixLength < minSuffixLength || c.Hashing.SuffixLength > maxSuffixLength {
		return fmt.Errorf("hashing.suffix_length must be between %d and %d", minSuffixLength, maxSuffixLength)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
}
