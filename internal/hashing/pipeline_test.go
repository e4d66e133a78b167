package hashing_test

import (
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"recordlinker/internal/contenthash"
	"recordlinker/internal/hashing"
	"recordlinker/internal/pathsource"
	"recordlinker/internal/runtoken"
	"recordlinker/internal/shardstore"
	"recordlinker/internal/testsupport"
)

// steppingClock advances one second per call so elapsed time is deterministic.
func steppingClock() func() time.Time {
	current := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func shardContents(t *testing.T, fsys afero.Fs, dir string) map[string]string {
	t.Helper()
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		out[entry.Name()] = testsupport.ReadFile(t, fsys, filepath.Join(dir, entry.Name()))
	}
	return out
}

var fixtures = map[string]string{
	"/in/a.txt":       "hello",
	"/in/b.txt":       "hello",
	"/in/c.txt":       "",
	"/in/d.txt":       "something else entirely",
	"/in/sub/e.txt":   "nested",
	"/in/ignored.bin": "not matched",
}

func TestRunWritesRecordsIntoShards(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testsupport.WriteTree(t, fsys, fixtures)

	pipeline := hashing.New(hashing.Options{
		FS:     fsys,
		Hasher: contenthash.New(fsys, 3),
		Suffix: runtoken.Fixed("run001"),
		Now:    steppingClock(),
	})
	report, err := pipeline.Run(context.Background(), "/in/*.txt", "/out")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Files != 4 {
		t.Fatalf("expected 4 files, got %d", report.Files)
	}
	wantBytes := int64(len("hello")*2 + len("something else entirely"))
	if report.Bytes != wantBytes {
		t.Fatalf("unexpected bytes: got %d want %d", report.Bytes, wantBytes)
	}
	if report.Elapsed != time.Second {
		t.Fatalf("unexpected elapsed: %v", report.Elapsed)
	}
	if report.Throughput() != float64(wantBytes) {
		t.Fatalf("unexpected throughput: %v", report.Throughput())
	}
	if report.Suffix != "run001" || report.RunID == "" {
		t.Fatalf("unexpected identifiers: suffix=%q run=%q", report.Suffix, report.RunID)
	}

	hello := contenthash.SumBytes([]byte("hello"))
	empty := contenthash.SumBytes(nil)
	other := contenthash.SumBytes([]byte("something else entirely"))

	want := map[string]string{}
	add := func(d contenthash.Digest, path string) {
		name := shardstore.FileName(d.ShardKey(), "run001")
		want[name] += string(d) + "," + path + "\n"
	}
	add(hello, "/in/a.txt")
	add(hello, "/in/b.txt")
	add(empty, "/in/c.txt")
	add(other, "/in/d.txt")

	got := shardContents(t, fsys, "/out")
	if len(got) != len(want) {
		t.Fatalf("unexpected shard files: got %v want %v", got, want)
	}
	for name, content := range want {
		if got[name] != content {
			t.Fatalf("shard %s: got %q want %q", name, got[name], content)
		}
	}

	total := 0
	for _, sc := range report.SortedShards() {
		total += sc.Count
		lines := strings.Count(got[shardstore.FileName(sc.Key, "run001")], "\n")
		if lines != sc.Count {
			t.Fatalf("shard %s: count %d but %d lines", sc.Key, sc.Count, lines)
		}
	}
	if total != report.Files {
		t.Fatalf("shard counts sum to %d, want %d", total, report.Files)
	}
	if len(report.Outputs) != len(want) {
		t.Fatalf("unexpected outputs: %v", report.Outputs)
	}
}

func TestRunsWithDifferentSuffixesAreDisjointButEqual(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testsupport.WriteTree(t, fsys, fixtures)

	for _, suffix := range []string{"first1", "second"} {
		pipeline := hashing.New(hashing.Options{FS: fsys, Suffix: runtoken.Fixed(suffix)})
		if _, err := pipeline.Run(context.Background(), "/in/**/*.txt", "/out"); err != nil {
			t.Fatalf("Run(%s) returned error: %v", suffix, err)
		}
	}

	got := shardContents(t, fsys, "/out")
	first := map[string]string{}
	second := map[string]string{}
	for name, content := range got {
		switch {
		case strings.HasSuffix(name, "_first1.csv"):
			first[strings.TrimSuffix(name, "_first1.csv")] = content
		case strings.HasSuffix(name, "_second.csv"):
			second[strings.TrimSuffix(name, "_second.csv")] = content
		default:
			t.Fatalf("unexpected file %s", name)
		}
	}
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("expected matching shard sets, got %d and %d", len(first), len(second))
	}
	for key, content := range first {
		if second[key] != content {
			t.Fatalf("shard %s differs between runs: %q vs %q", key, content, second[key])
		}
	}
	if !strings.Contains(strings.Join(slices.Collect(maps.Values(first)), ""), "/in/sub/e.txt") {
		t.Fatal("expected recursive pattern to include nested file")
	}
}

func TestRunZeroMatches(t *testing.T) {
	fsys := afero.NewMemMapFs()
	pipeline := hashing.New(hashing.Options{FS: fsys, Suffix: runtoken.Fixed("run001")})

	report, err := pipeline.Run(context.Background(), "/nothing/*.txt", "/out")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Files != 0 || report.Bytes != 0 || len(report.ShardCounts) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	if len(shardContents(t, fsys, "/out")) != 0 {
		t.Fatal("expected no shard files")
	}
}

type failingOpenFs struct {
	afero.Fs
	fail string
}

func (f failingOpenFs) Open(name string) (afero.File, error) {
	if name == f.fail {
		return nil, os.ErrPermission
	}
	return f.Fs.Open(name)
}

func TestRunSkipsFilesThatFailToHash(t *testing.T) {
	base := afero.NewMemMapFs()
	testsupport.WriteTree(t, base, map[string]string{
		"/in/ok.txt":     "ok",
		"/in/locked.txt": "secret",
		"/in/a,b.txt":    "comma",
	})
	fsys := failingOpenFs{Fs: base, fail: "/in/locked.txt"}

	pipeline := hashing.New(hashing.Options{FS: fsys, Suffix: runtoken.Fixed("run001")})
	report, err := pipeline.Run(context.Background(), "/in/*.txt", "/out")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Files != 1 || report.Skipped != 2 {
		t.Fatalf("expected 1 hashed and 2 skipped, got %d and %d", report.Files, report.Skipped)
	}
	if report.Bytes != 2 {
		t.Fatalf("skipped files must not count toward bytes, got %d", report.Bytes)
	}
	for _, content := range shardContents(t, base, "/out") {
		if strings.Contains(content, "locked") || strings.Contains(content, "a,b") {
			t.Fatalf("skipped file leaked into output: %q", content)
		}
	}
}

func TestRunLeavesExcludedPathsOut(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testsupport.WriteTree(t, fsys, map[string]string{
		"/data/a.txt": "payload",
		"/data/.lock": "",
	})

	pipeline := hashing.New(hashing.Options{
		FS:      fsys,
		Suffix:  runtoken.Fixed("run001"),
		Exclude: []string{"/data/.lock"},
	})
	report, err := pipeline.Run(context.Background(), "/data/*", "/data")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Files != 1 || report.Skipped != 0 {
		t.Fatalf("expected only a.txt to be hashed, got files=%d skipped=%d", report.Files, report.Skipped)
	}
	for name, content := range shardContents(t, fsys, "/data") {
		if strings.Contains(content, ".lock") {
			t.Fatalf("excluded path leaked into %s: %q", name, content)
		}
	}
}

func TestRunFatalErrors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testsupport.WriteTree(t, fsys, map[string]string{"/in/a.txt": "a"})

	pipeline := hashing.New(hashing.Options{FS: fsys, Suffix: runtoken.Fixed("run001")})
	if _, err := pipeline.Run(context.Background(), "/in/[", "/out"); !errors.Is(err, pathsource.ErrBadPattern) {
		t.Fatalf("expected ErrBadPattern, got %v", err)
	}
	if exists, _ := afero.DirExists(fsys, "/out"); exists {
		t.Fatal("bad pattern must abort before creating the destination")
	}

	readOnly := hashing.New(hashing.Options{FS: afero.NewReadOnlyFs(fsys), Suffix: runtoken.Fixed("run001")})
	if _, err := readOnly.Run(context.Background(), "/in/*.txt", "/out"); err == nil {
		t.Fatal("expected destination error on read-only filesystem")
	}

	failingSuffix := hashing.New(hashing.Options{FS: fsys, Suffix: runtoken.ProviderFunc(func() (string, error) {
		return "", errors.New("no entropy")
	})})
	if _, err := failingSuffix.Run(context.Background(), "/in/*.txt", "/out"); err == nil {
		t.Fatal("expected suffix provider error")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	fsys := afero.NewMemMapFs()
	testsupport.WriteTree(t, fsys, map[string]string{"/in/a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := hashing.New(hashing.Options{FS: fsys, Suffix: runtoken.Fixed("run001")})
	if _, err := pipeline.Run(ctx, "/in/*.txt", "/out"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
