package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"recordlinker/internal/catalog"
	"recordlinker/internal/dedup"
	"recordlinker/internal/hashing"
	"recordlinker/internal/shardstore"
)

const summaryLabelWidth = 12

var countPrinter = message.NewPrinter(language.English)

func formatCount(n int) string {
	return countPrinter.Sprintf("%d", n)
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

func formatRate(bytesPerSecond float64) string {
	if bytesPerSecond <= 0 {
		return "n/a"
	}
	return humanize.Bytes(uint64(bytesPerSecond)) + "/s"
}

func formatElapsed(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(time.Millisecond).String()
}

func writeSummary(b *strings.Builder, pairs [][2]string) {
	for _, pair := range pairs {
		fmt.Fprintf(b, "%-*s %s\n", summaryLabelWidth, pair[0]+":", pair[1])
	}
}

func renderHashReport(report *hashing.Report, styled bool) string {
	var b strings.Builder
	writeSummary(&b, [][2]string{
		{"Run", report.RunID},
		{"Pattern", report.Pattern},
		{"Destination", report.Destination},
		{"Suffix", report.Suffix},
		{"Files", formatCount(report.Files)},
		{"Skipped", formatCount(report.Skipped)},
		{"Bytes", formatBytes(report.Bytes)},
		{"Elapsed", formatElapsed(report.Elapsed)},
		{"Throughput", formatRate(report.Throughput())},
	})

	shards := report.SortedShards()
	if len(shards) == 0 {
		b.WriteString("\nNo files matched; no shard files written.\n")
		return b.String()
	}
	rows := make([][]string, 0, len(shards))
	for _, sc := range shards {
		rows = append(rows, []string{
			sc.Key,
			formatCount(sc.Count),
			shardstore.FileName(sc.Key, report.Suffix),
		})
	}
	b.WriteString("\n")
	b.WriteString(renderTable(
		[]string{"Shard", "Records", "File"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
		styled,
	))
	b.WriteString("\n")
	return b.String()
}

func renderDedupReport(report *dedup.Report) string {
	var b strings.Builder
	writeSummary(&b, [][2]string{
		{"Run", report.RunID},
		{"Inputs", formatCount(len(report.Inputs))},
		{"Output", report.Output},
		{"Unique", formatCount(report.Unique)},
		{"Total", formatCount(report.Total)},
		{"Duplicates", formatCount(report.Duplicates())},
		{"Elapsed", formatElapsed(report.Elapsed)},
		{"Throughput", formatRecordRate(report.Throughput())},
	})
	return b.String()
}

func formatRecordRate(recordsPerSecond float64) string {
	if recordsPerSecond <= 0 {
		return "n/a"
	}
	return countPrinter.Sprintf("%.0f records/s", recordsPerSecond)
}

func renderImportResults(results []catalog.ImportResult, styled bool) string {
	rows := make([][]string, 0, len(results)+1)
	var read, inserted, ignored int
	for _, res := range results {
		rows = append(rows, []string{
			filepath.Base(res.Source),
			formatCount(res.Read),
			formatCount(res.Inserted),
			formatCount(res.Ignored),
		})
		read += res.Read
		inserted += res.Inserted
		ignored += res.Ignored
	}
	rows = append(rows, []string{"total", formatCount(read), formatCount(inserted), formatCount(ignored)})
	return renderTable(
		[]string{"Source", "Read", "Inserted", "Ignored"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
		styled,
	) + "\n"
}

func renderCatalogStats(path string, stats catalog.Stats) string {
	var b strings.Builder
	writeSummary(&b, [][2]string{
		{"Catalog", path},
		{"Records", formatCount(stats.Records)},
		{"Digests", formatCount(stats.Digests)},
		{"Duplicated", formatCount(stats.DuplicateDigests)},
		{"Sources", formatCount(stats.Sources)},
	})
	return b.String()
}

func renderEntries(entries []catalog.Entry, styled bool) string {
	rows := make([][]string, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			entry.Path,
			filepath.Base(entry.Source),
			humanize.Time(entry.ImportedAt),
		})
	}
	return renderTable(
		[]string{"#", "Path", "Source", "Imported"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
		styled,
	) + "\n"
}

func renderGroups(groups []catalog.Group, styled bool) string {
	rows := make([][]string, 0, len(groups))
	for _, group := range groups {
		rows = append(rows, []string{
			shortDigest(group.Digest),
			formatCount(len(group.Paths)),
			strings.Join(group.Paths, "\n"),
		})
	}
	return renderTable(
		[]string{"Digest", "Paths", "Locations"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
		styled,
	) + "\n"
}

func shortDigest(digest string) string {
	const width = 16
	if len(digest) <= width {
		return digest
	}
	return digest[:width]
}
