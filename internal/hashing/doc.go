// Package hashing drives the hash-and-shard run: it expands a pattern,
// computes a content digest for every matched regular file, and persists one
// digest,path record per file into the shard selected by the digest's leading
// hex character.
//
// Records are buffered until the source is exhausted and only then written,
// which keeps hashing failures (logged, skipped) apart from output failures
// (fatal). Memory therefore grows with the number of records, never with file
// content, because files are streamed through a fixed-size buffer.
//
// The run suffix embedded in shard names comes from an injected
// runtoken.Provider, so tests pin it with runtoken.Fixed.
package hashing
