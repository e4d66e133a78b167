// Package main hosts the recordlinker CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, logging, and directory locks
// into the hashing, dedup, and catalog packages, then renders their reports
// as tables or JSON. Logs go to stderr so stdout stays parseable.
package main
