package transfer

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrorDisplayCap is the number of error messages shown in reports.
// Counters are never capped; anything beyond the cap collapses into a
// single "+N more" line.
const ErrorDisplayCap = 10

// RunStats accumulates the outcome counters of one run. Multiple
// operations in a batch finish in overlapping windows, so counters are
// atomic and the error list is mutex-guarded.
type RunStats struct {
	total     atomic.Int64
	succeeded atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64

	mu     sync.Mutex
	errors []string
}

func NewRunStats() *RunStats { return &RunStats{} }

func (s *RunStats) AddSuccess() {
	s.total.Add(1)
	s.succeeded.Add(1)
}

func (s *RunStats) AddSkip() {
	s.total.Add(1)
	s.skipped.Add(1)
}

func (s *RunStats) AddFailure(msg string) {
	s.total.Add(1)
	s.failed.Add(1)
	s.mu.Lock()
	s.errors = append(s.errors, msg)
	s.mu.Unlock()
}

func (s *RunStats) Total() int64     { return s.total.Load() }
func (s *RunStats) Succeeded() int64 { return s.succeeded.Load() }
func (s *RunStats) Skipped() int64   { return s.skipped.Load() }
func (s *RunStats) Failed() int64    { return s.failed.Load() }

// Errors returns a copy of the full, uncapped error list.
func (s *RunStats) Errors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.errors))
	copy(out, s.errors)
	return out
}

// Merge folds other's counters and errors into s.
func (s *RunStats) Merge(other *RunStats) {
	if other == nil {
		return
	}
	s.total.Add(other.Total())
	s.succeeded.Add(other.Succeeded())
	s.skipped.Add(other.Skipped())
	s.failed.Add(other.Failed())

	errs := other.Errors()
	s.mu.Lock()
	s.errors = append(s.errors, errs...)
	s.mu.Unlock()
}

// StatsSummary is the read-only JSON view of a RunStats.
type StatsSummary struct {
	Total     int64    `json:"total"`
	Succeeded int64    `json:"succeeded"`
	Skipped   int64    `json:"skipped"`
	Failed    int64    `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// Summary snapshots the stats with the error list capped for display.
func (s *RunStats) Summary() StatsSummary {
	return StatsSummary{
		Total:     s.Total(),
		Succeeded: s.Succeeded(),
		Skipped:   s.Skipped(),
		Failed:    s.Failed(),
		Errors:    CapErrors(s.Errors(), ErrorDisplayCap),
	}
}

// CapErrors truncates an error list at max entries, appending a
// "+N more" marker for the remainder.
func CapErrors(errs []string, max int) []string {
	if max <= 0 || len(errs) <= max {
		return errs
	}
	capped := make([]string, 0, max+1)
	capped = append(capped, errs[:max]...)
	capped = append(capped, fmt.Sprintf("... +%d more", len(errs)-max))
	return capped
}
