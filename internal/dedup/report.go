package dedup

import "time"

// Report summarizes one deduplication run.
type Report struct {
	RunID   string        `json:"run_id"`
	Inputs  []string      `json:"inputs"`
	Output  string        `json:"output"`
	Unique  int           `json:"unique"`
	Total   int           `json:"total"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Duplicates returns the number of records dropped as duplicates.
func (r *Report) Duplicates() int {
	if r == nil {
		return 0
	}
	return r.Total - r.Unique
}

// Throughput returns records read per second, or 0 when no time elapsed.
func (r *Report) Throughput() float64 {
	if r == nil || r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Total) / r.Elapsed.Seconds()
}
