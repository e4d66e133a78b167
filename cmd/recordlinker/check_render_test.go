package main

import (
	"io"
	"strings"
	"testing"

	"recordlinker/internal/preflight"
)

func TestRenderChecksPlain(t *testing.T) {
	got := renderChecks([]preflight.Result{
		{Name: "Catalog database", Passed: true, Detail: "/tmp/c.db (0 records)"},
		{Name: "Output directory", Detail: "/nope (error: does not exist)"},
	}, false)
	want := "Checks: 1 of 2 passed\n" +
		"  Catalog database:    [OK] /tmp/c.db (0 records)\n" +
		"  Output directory:    [FAIL] /nope (error: does not exist)\n"
	if got != want {
		t.Fatalf("renderChecks mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderCheckLineColorsOnlyLabel(t *testing.T) {
	got := renderCheckLine(preflight.Result{Name: "Catalog", Passed: true, Detail: "ready"}, true)
	if !strings.Contains(got, "["+ansiGreen+"OK"+ansiReset+"]") {
		t.Fatalf("expected green OK label, got %q", got)
	}
	if !strings.HasSuffix(got, "] ready") {
		t.Fatalf("expected uncolored detail, got %q", got)
	}

	failed := renderCheckLine(preflight.Result{Name: "Catalog"}, true)
	if !strings.Contains(failed, ansiRed+"FAIL") {
		t.Fatalf("expected red FAIL label, got %q", failed)
	}
	if strings.HasSuffix(failed, " ") {
		t.Fatalf("expected no trailing space without detail, got %q", failed)
	}
}

func TestIsTerminalNonFile(t *testing.T) {
	if isTerminal(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
