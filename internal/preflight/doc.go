// Package preflight provides readiness checks for the filesystem paths and
// catalog database recordlinker depends on.
//
// The CLI "recordlinker check" command runs RunAll plus one directory check
// per argument so operators can confirm a destination is usable before
// starting a long hashing run.
package preflight
