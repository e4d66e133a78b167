// Package dedup collapses digest,path record files into one canonical record
// per digest.
//
// The first path observed for a digest wins. Inputs are read in argument
// order and matches of each input pattern in lexical order, so the surviving
// path is deterministic for a fixed set of inputs. The output lists digests
// in the order they were first seen, which makes deduplicating an already
// deduplicated file reproduce it byte for byte.
package dedup
