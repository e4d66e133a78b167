package hashing

import (
	"cmp"
	"slices"
	"time"
)

// Report summarizes one hashing run.
type Report struct {
	RunID       string         `json:"run_id"`
	Suffix      string         `json:"suffix"`
	Pattern     string         `json:"pattern"`
	Destination string         `json:"destination"`
	Files       int            `json:"files"`
	Bytes       int64          `json:"bytes"`
	Skipped     int            `json:"skipped"`
	Elapsed     time.Duration  `json:"elapsed_ns"`
	ShardCounts map[string]int `json:"shard_counts"`
	Outputs     []string       `json:"outputs"`
}

// ShardCount is the number of records routed to one shard.
type ShardCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Throughput returns processed bytes per second, or 0 when no time elapsed.
func (r *Report) Throughput() float64 {
	if r == nil || r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Bytes) / r.Elapsed.Seconds()
}

// SortedShards returns the per-shard counts ordered by shard key.
func (r *Report) SortedShards() []ShardCount {
	if r == nil {
		return nil
	}
	out := make([]ShardCount, 0, len(r.ShardCounts))
	for key, count := range r.ShardCounts {
		out = append(out, ShardCount{Key: key, Count: count})
	}
	slices.SortFunc(out, func(a, b ShardCount) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}
