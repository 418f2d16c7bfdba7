package reconcile

import (
	"fmt"

	"github.com/EliuX/cloud-tools/pkg/transfer"
)

// Report aggregates the per-resource-type outcomes of one migration run.
// Totals are additive across types; error lists are concatenated and
// capped for display only.
type Report struct {
	Types []TypeReport          `json:"types"`
	Total transfer.StatsSummary `json:"total"`
}

// BuildReport combines type reports into the top-level migration report.
func BuildReport(reports ...*TypeReport) *Report {
	out := &Report{}
	var errs []string

	for _, r := range reports {
		if r == nil {
			continue
		}
		out.Types = append(out.Types, *r)
		out.Total.Total += r.Stats.Total
		out.Total.Succeeded += r.Stats.Succeeded
		out.Total.Skipped += r.Stats.Skipped
		out.Total.Failed += r.Stats.Failed
		errs = append(errs, r.Stats.Errors...)
	}

	out.Total.Errors = transfer.CapErrors(errs, transfer.ErrorDisplayCap)
	return out
}

// Describe renders the report as console lines, one per resource type
// plus the combined totals.
func (r *Report) Describe() []string {
	var lines []string
	for _, t := range r.Types {
		lines = append(lines, fmt.Sprintf("%s: total=%d succeeded=%d skipped=%d failed=%d",
			t.Resource, t.Stats.Total, t.Stats.Succeeded, t.Stats.Skipped, t.Stats.Failed))
	}
	lines = append(lines, fmt.Sprintf("all: total=%d succeeded=%d skipped=%d failed=%d",
		r.Total.Total, r.Total.Succeeded, r.Total.Skipped, r.Total.Failed))
	lines = append(lines, r.Total.Errors...)
	return lines
}
