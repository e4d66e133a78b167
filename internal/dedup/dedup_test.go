package dedup_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/spf13/afero"

	"recordlinker/internal/dedup"
	"recordlinker/internal/pathsource"
	"recordlinker/internal/record"
	"recordlinker/internal/testsupport"
)

func TestRunCollapsesDuplicateDigests(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testsupport.WriteTree(t, fsys, map[string]string{
		"/in/a.csv": "d1,/x/1.txt\nd2,/x/2.txt\nd1,/x/3.txt\n",
		"/in/b.csv": "d2,/x/4.txt\n",
	})

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	deduper := dedup.New(dedup.Options{FS: fsys, Now: func() time.Time {
		clock = clock.Add(2 * time.Second)
		return clock
	}})
	report, err := deduper.Run(context.Background(), []string{"/in/*.csv"}, "/out/unique.csv")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Unique != 2 || report.Total != 4 {
		t.Fatalf("expected unique=2 total=4, got unique=%d total=%d", report.Unique, report.Total)
	}
	if report.Duplicates() != 2 {
		t.Fatalf("expected 2 duplicates, got %d", report.Duplicates())
	}
	if report.Throughput() != 2 {
		t.Fatalf("expected 2 records/sec, got %v", report.Throughput())
	}
	if !slices.Equal(report.Inputs, []string{"/in/a.csv", "/in/b.csv"}) {
		t.Fatalf("unexpected inputs: %v", report.Inputs)
	}
	if got := testsupport.ReadFile(t, fsys, "/out/unique.csv"); got != "d1,/x/1.txt\nd2,/x/2.txt\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRunFirstSeenFollowsArgumentOrder(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testsupport.WriteTree(t, fsys, map[string]string{
		"/in/later.csv": "h1,/pathB\n",
		"/in/first.csv": "h1,/pathA\n",
	})

	deduper := dedup.New(dedup.Options{FS: fsys})
	if _, err := deduper.Run(context.Background(), []string{"/in/first.csv", "/in/later.csv"}, "/out.csv"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := testsupport.ReadFile(t, fsys, "/out.csv"); got != "h1,/pathA\n" {
		t.Fatalf("expected first path to win, got %q", got)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testsupport.WriteTree(t, fsys, map[string]string{
		"/in/a.csv": "d3,/z\nd1,/x/1.txt\nd3,/y\nd2,/x/2.txt\r\n",
	})

	deduper := dedup.New(dedup.Options{FS: fsys})
	if _, err := deduper.Run(context.Background(), []string{"/in/a.csv"}, "/once.csv"); err != nil {
		t.Fatalf("first Run returned error: %v", err)
	}
	report, err := deduper.Run(context.Background(), []string{"/once.csv"}, "/twice.csv")
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}

	once := testsupport.ReadFile(t, fsys, "/once.csv")
	if once != "d3,/z\nd1,/x/1.txt\nd2,/x/2.txt\n" {
		t.Fatalf("unexpected first output %q", once)
	}
	if twice := testsupport.ReadFile(t, fsys, "/twice.csv"); twice != once {
		t.Fatalf("re-deduplication changed output: %q vs %q", twice, once)
	}
	if report.Unique != report.Total {
		t.Fatalf("expected no duplicates on second pass, got unique=%d total=%d", report.Unique, report.Total)
	}
}

func TestRunWithNoInputsWritesEmptyOutput(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testsupport.WriteTree(t, fsys, map[string]string{"/out.csv": "stale,/content\n"})

	deduper := dedup.New(dedup.Options{FS: fsys})
	report, err := deduper.Run(context.Background(), []string{"/missing/*.csv"}, "/out.csv")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Unique != 0 || report.Total != 0 || len(report.Inputs) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	if got := testsupport.ReadFile(t, fsys, "/out.csv"); got != "" {
		t.Fatalf("expected truncated output, got %q", got)
	}
}

func TestRunRejectsMalformedLines(t *testing.T) {
	cases := map[string]string{
		"one field":    "d1,/x\nnocomma\n",
		"three fields": "d1,/x,extra\n",
		"blank line":   "d1,/x\n\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			testsupport.WriteTree(t, fsys, map[string]string{"/in/bad.csv": content})

			deduper := dedup.New(dedup.Options{FS: fsys})
			_, err := deduper.Run(context.Background(), []string{"/in/bad.csv"}, "/out.csv")
			if !errors.Is(err, record.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			var malformed *record.MalformedError
			if !errors.As(err, &malformed) || malformed.File != "/in/bad.csv" {
				t.Fatalf("expected MalformedError naming the input, got %v", err)
			}
			if exists, _ := afero.Exists(fsys, "/out.csv"); exists {
				t.Fatal("malformed input must not produce output")
			}
		})
	}
}

func TestRunSkipsOutputMatchedByInputs(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testsupport.WriteTree(t, fsys, map[string]string{
		"/data/a.csv":   "d1,/x\n",
		"/data/all.csv": "d9,/old\n",
	})

	deduper := dedup.New(dedup.Options{FS: fsys})
	report, err := deduper.Run(context.Background(), []string{"/data/*.csv"}, "/data/all.csv")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !slices.Equal(report.Inputs, []string{"/data/a.csv"}) {
		t.Fatalf("expected output to be skipped, inputs=%v", report.Inputs)
	}
	if got := testsupport.ReadFile(t, fsys, "/data/all.csv"); got != "d1,/x\n" {
		t.Fatalf("unexpected output %q", got)
	}

	merging := dedup.New(dedup.Options{FS: fsys, ReadOutput: true})
	testsupport.WriteTree(t, fsys, map[string]string{"/data/b.csv": "d2,/y\n"})
	report, err = merging.Run(context.Background(), []string{"/data/*.csv"}, "/data/all.csv")
	if err != nil {
		t.Fatalf("merging Run returned error: %v", err)
	}
	if report.Unique != 2 || report.Total != 3 {
		t.Fatalf("expected previous output merged, got unique=%d total=%d", report.Unique, report.Total)
	}
}

func TestRunLeavesExcludedPathsOut(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testsupport.WriteTree(t, fsys, map[string]string{
		"/work/a.csv": "d1,/x/1.txt\n",
		"/work/.lock": "stale",
	})

	deduper := dedup.New(dedup.Options{FS: fsys, Exclude: []string{"/work/.lock"}})
	report, err := deduper.Run(context.Background(), []string{"/work/*"}, "/work/unique.csv")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !slices.Equal(report.Inputs, []string{"/work/a.csv"}) {
		t.Fatalf("unexpected inputs: %v", report.Inputs)
	}
}

func TestRunFatalErrors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	deduper := dedup.New(dedup.Options{FS: fsys})

	if _, err := deduper.Run(context.Background(), []string{"/in/["}, "/out.csv"); !errors.Is(err, pathsource.ErrBadPattern) {
		t.Fatalf("expected ErrBadPattern, got %v", err)
	}
	if _, err := deduper.Run(context.Background(), nil, " "); err == nil {
		t.Fatal("expected error for blank output path")
	}

	testsupport.WriteTree(t, fsys, map[string]string{"/in/a.csv": "d1,/x\n"})
	readOnly := dedup.New(dedup.Options{FS: afero.NewReadOnlyFs(fsys)})
	if _, err := readOnly.Run(context.Background(), []string{"/in/a.csv"}, "/out.csv"); err == nil {
		t.Fatal("expected output error on read-only filesystem")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := deduper.Run(ctx, []string{"/in/a.csv"}, "/out.csv"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
