// Package progress tracks the live counters of a long-running migration
// so the status endpoint can report percentage and ETA while document
// pages are still streaming.
package progress

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EliuX/cloud-tools/pkg/transfer"
)

// Tracker accumulates item counters for one run. Total may be zero when
// the collection size is unknown up front (paginated document reads).
type Tracker struct {
	totalItems atomic.Int64
	succeeded  atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
	startTime  time.Time

	mu         sync.Mutex
	lastUpdate time.Time
	itemRates  []float64
}

func NewTracker(totalItems int64) *Tracker {
	t := &Tracker{startTime: time.Now()}
	t.totalItems.Store(totalItems)
	t.lastUpdate = t.startTime
	return t
}

// SetTotal records the collection size once it becomes known.
func (t *Tracker) SetTotal(total int64) {
	t.totalItems.Store(total)
}

// Observe replaces the tracker counters with a cumulative stats summary,
// as reported after each executed batch.
func (t *Tracker) Observe(summary transfer.StatsSummary) {
	previous := t.succeeded.Load() + t.skipped.Load() + t.failed.Load()
	t.succeeded.Store(summary.Succeeded)
	t.skipped.Store(summary.Skipped)
	t.failed.Store(summary.Failed)

	now := time.Now()
	t.mu.Lock()
	elapsed := now.Sub(t.lastUpdate).Seconds()
	delta := summary.Total - previous
	if elapsed > 0 && delta > 0 {
		t.itemRates = append(t.itemRates, float64(delta)/elapsed)
		if len(t.itemRates) > 10 {
			t.itemRates = t.itemRates[1:]
		}
	}
	t.lastUpdate = now
	t.mu.Unlock()
}

// Stats is the read-only progress view.
type Stats struct {
	ProgressPct float64 `json:"progress_pct"`
	Done        int64   `json:"done"`
	Total       int64   `json:"total"`
	Failed      int64   `json:"failed"`
	ElapsedTime string  `json:"elapsed_time"`
	ItemsPerSec float64 `json:"items_per_sec"`
	ETA         string  `json:"eta"`
}

func (t *Tracker) Stats() Stats {
	done := t.succeeded.Load() + t.skipped.Load() + t.failed.Load()
	total := t.totalItems.Load()

	stats := Stats{
		Done:        done,
		Total:       total,
		Failed:      t.failed.Load(),
		ElapsedTime: time.Since(t.startTime).Round(time.Second).String(),
		ItemsPerSec: t.averageRate(),
		ETA:         "unknown",
	}

	if total > 0 {
		stats.ProgressPct = float64(done) / float64(total) * 100
		if stats.ItemsPerSec > 0 && done < total {
			remaining := time.Duration(float64(total-done)/stats.ItemsPerSec) * time.Second
			stats.ETA = remaining.Round(time.Second).String()
		} else if done >= total {
			stats.ETA = "0s"
		}
	}
	return stats
}

func (t *Tracker) averageRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.itemRates) == 0 {
		return 0
	}
	var sum float64
	for _, r := range t.itemRates {
		sum += r
	}
	return sum / float64(len(t.itemRates))
}

// Describe renders a one-line console summary.
func (t *Tracker) Describe() string {
	s := t.Stats()
	if s.Total > 0 {
		return fmt.Sprintf("%.1f%% (%d/%d, %d failed, eta %s)", s.ProgressPct, s.Done, s.Total, s.Failed, s.ETA)
	}
	return fmt.Sprintf("%d items (%d failed)", s.Done, s.Failed)
}
