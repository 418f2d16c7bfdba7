// Package plan computes the minimal set of create/update/delete actions
// needed to converge a destination resource collection toward a source
// collection. Planning is a pure function over two snapshots: no I/O, no
// randomness, and no dependence on enumeration order.
package plan

import (
	"fmt"

	"github.com/EliuX/cloud-tools/pkg/resource"
)

// Update pairs a source record with its differing destination counterpart.
type Update struct {
	Key         resource.Key          `json:"key"`
	Source      resource.Record       `json:"source"`
	Destination resource.Record       `json:"destination"`
	Differences []resource.Difference `json:"differences"`
}

// ActionPlan is the convergence plan for one resource type. The three
// action categories are disjoint. PreservedDeletes lists destination-only
// keys that were excluded from deletion by policy; they are reported but
// never executed.
type ActionPlan struct {
	Creates          []resource.Record `json:"creates"`
	Updates          []Update          `json:"updates"`
	Deletes          []resource.Key    `json:"deletes"`
	PreservedDeletes []resource.Key    `json:"preserved_deletes,omitempty"`
}

// Compute builds the convergence plan for source and destination snapshots.
// Keys present only in source become creates. Keys present on both sides
// are diffed through the record's Comparable implementation; any reported
// difference yields an update carrying the exact differing properties.
// Keys present only in destination become deletes, unless
// preserveDestinationOnly is set.
func Compute(source, destination resource.Snapshot, preserveDestinationOnly bool) *ActionPlan {
	p := &ActionPlan{}

	for _, key := range source.Keys() {
		src := source[key]
		dst, ok := destination[key]
		if !ok {
			p.Creates = append(p.Creates, src)
			continue
		}

		cmp, ok := src.(resource.Comparable)
		if !ok {
			continue
		}
		if diffs := cmp.DiffAgainst(dst); len(diffs) > 0 {
			p.Updates = append(p.Updates, Update{
				Key:         key,
				Source:      src,
				Destination: dst,
				Differences: diffs,
			})
		}
	}

	for _, key := range destination.Keys() {
		if _, ok := source[key]; ok {
			continue
		}
		if preserveDestinationOnly {
			p.PreservedDeletes = append(p.PreservedDeletes, key)
		} else {
			p.Deletes = append(p.Deletes, key)
		}
	}

	return p
}

// IsNoop reports whether the plan contains no executable action.
func (p *ActionPlan) IsNoop() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0 && len(p.Deletes) == 0
}

// Summary is the reporting view of a plan: counts and names per category.
type Summary struct {
	Creates          []string `json:"creates"`
	Updates          []string `json:"updates"`
	Deletes          []string `json:"deletes"`
	PreservedDeletes []string `json:"preserved_deletes,omitempty"`
	CreateCount      int      `json:"create_count"`
	UpdateCount      int      `json:"update_count"`
	DeleteCount      int      `json:"delete_count"`
	PreservedCount   int      `json:"preserved_count"`
}

// Summary assembles the plan summary. No computation beyond restating the
// plan's own structure happens here.
func (p *ActionPlan) Summary() Summary {
	s := Summary{
		CreateCount:    len(p.Creates),
		UpdateCount:    len(p.Updates),
		DeleteCount:    len(p.Deletes),
		PreservedCount: len(p.PreservedDeletes),
	}
	for _, r := range p.Creates {
		s.Creates = append(s.Creates, string(r.Key()))
	}
	for _, u := range p.Updates {
		s.Updates = append(s.Updates, string(u.Key))
	}
	for _, k := range p.Deletes {
		s.Deletes = append(s.Deletes, string(k))
	}
	for _, k := range p.PreservedDeletes {
		s.PreservedDeletes = append(s.PreservedDeletes, string(k))
	}
	return s
}

// Describe renders a human-readable differences report, one line per
// planned action.
func (p *ActionPlan) Describe() []string {
	var lines []string
	for _, r := range p.Creates {
		lines = append(lines, fmt.Sprintf("create %s", r.Key()))
	}
	for _, u := range p.Updates {
		for _, d := range u.Differences {
			lines = append(lines, fmt.Sprintf("update %s (%s)", u.Key, d))
		}
	}
	for _, k := range p.Deletes {
		lines = append(lines, fmt.Sprintf("delete %s", k))
	}
	for _, k := range p.PreservedDeletes {
		lines = append(lines, fmt.Sprintf("preserve %s (destination only, deletion skipped)", k))
	}
	return lines
}
