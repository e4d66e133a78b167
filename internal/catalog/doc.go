// Package catalog persists digest,path records in a SQLite database so
// duplicate content can be queried across many hashing runs.
//
// Records are keyed by the (digest, path) pair; importing the same shard
// twice is a no-op. Every record remembers the file it was imported from.
package catalog
