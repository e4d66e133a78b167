// Package config loads, normalizes, and validates recordlinker configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the RECORDLINKER_LOG_LEVEL
// environment override. The Config type centralizes the knobs the hashing
// pipeline, deduplicator, catalog, and CLI need so they are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
