// Package reconcile composes enumeration, planning and batched transfer
// into full reconciliation runs, one resource type at a time, and
// aggregates the per-type results into a migration report.
package reconcile

import (
	"context"
	"fmt"

	"github.com/EliuX/cloud-tools/pkg/pager"
	"github.com/EliuX/cloud-tools/pkg/plan"
	"github.com/EliuX/cloud-tools/pkg/resource"
	"github.com/EliuX/cloud-tools/pkg/transfer"
)

// Enumerator produces the full keyed listing of a resource type from one
// account. A single pass; no point-in-time isolation is guaranteed
// against concurrent mutation.
type Enumerator interface {
	List(ctx context.Context) (resource.Snapshot, error)
}

// Applier mutates the destination store one record at a time and
// classifies every result. Exists is the destination probe backing
// skip-existing; a not-found response means absent, not error.
type Applier interface {
	Create(ctx context.Context, record resource.Record) transfer.Outcome
	Update(ctx context.Context, update plan.Update) transfer.Outcome
	Delete(ctx context.Context, key resource.Key) transfer.Outcome
	Exists(ctx context.Context, key resource.Key) (bool, error)
}

// Policy carries all run configuration explicitly; runs hold no state
// between invocations.
type Policy struct {
	PreserveDestinationOnly bool
	SkipExisting            bool
	ContinueOnError         bool
	DryRun                  bool
	BatchSize               int
	MaxRetries              int
	PageSize                int
	// Progress, when set, is invoked with cumulative stats after every
	// executed batch of documents.
	Progress func(transfer.StatsSummary)
}

// DefaultPolicy mirrors the executor defaults plus a document page size.
func DefaultPolicy() Policy {
	opts := transfer.DefaultOptions()
	return Policy{
		ContinueOnError: opts.ContinueOnError,
		BatchSize:       opts.BatchSize,
		MaxRetries:      opts.MaxRetries,
		PageSize:        100,
	}
}

func (p Policy) executorOptions() transfer.Options {
	opts := transfer.DefaultOptions()
	if p.BatchSize > 0 {
		opts.BatchSize = p.BatchSize
	}
	if p.MaxRetries > 0 {
		opts.MaxRetries = p.MaxRetries
	}
	opts.ContinueOnError = p.ContinueOnError
	opts.SkipExisting = p.SkipExisting
	return opts
}

// TypeReport is the outcome of reconciling one resource type.
type TypeReport struct {
	Resource string                `json:"resource"`
	Plan     plan.Summary          `json:"plan"`
	Stats    transfer.StatsSummary `json:"stats"`
	DryRun   bool                  `json:"dry_run,omitempty"`
}

// Reconcile converges the destination toward the source for one
// metadata-level resource type: snapshot both sides, compute the plan,
// then run create, update and delete as three strictly ordered executor
// passes. Creations fully resolve before updates begin, and updates
// before deletes. An enumeration failure aborts this resource type only.
func Reconcile(ctx context.Context, name string, source, destination Enumerator, applier Applier, policy Policy) (*TypeReport, error) {
	srcSnap, err := source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source %s: %w", name, err)
	}
	dstSnap, err := destination.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list destination %s: %w", name, err)
	}

	actionPlan := plan.Compute(srcSnap, dstSnap, policy.PreserveDestinationOnly)
	report := &TypeReport{Resource: name, Plan: actionPlan.Summary(), DryRun: policy.DryRun}

	if policy.DryRun {
		return report, nil
	}

	stats := transfer.NewRunStats()
	opts := policy.executorOptions()

	creates := make([]transfer.Item, 0, len(actionPlan.Creates))
	for _, r := range actionPlan.Creates {
		creates = append(creates, transfer.Item{Key: r.Key(), Record: r, Action: transfer.ActionCreate})
	}

	updatesByKey := make(map[resource.Key]plan.Update, len(actionPlan.Updates))
	updates := make([]transfer.Item, 0, len(actionPlan.Updates))
	for _, u := range actionPlan.Updates {
		updatesByKey[u.Key] = u
		updates = append(updates, transfer.Item{Key: u.Key, Record: u.Source, Action: transfer.ActionUpdate})
	}

	deletes := make([]transfer.Item, 0, len(actionPlan.Deletes))
	for _, k := range actionPlan.Deletes {
		deletes = append(deletes, transfer.Item{Key: k, Action: transfer.ActionDelete})
	}

	apply := func(ctx context.Context, item transfer.Item) transfer.Outcome {
		switch item.Action {
		case transfer.ActionCreate:
			return applier.Create(ctx, item.Record)
		case transfer.ActionUpdate:
			return applier.Update(ctx, updatesByKey[item.Key])
		case transfer.ActionDelete:
			return applier.Delete(ctx, item.Key)
		default:
			return transfer.Terminal(fmt.Sprintf("unsupported action %q", item.Action))
		}
	}
	probe := func(ctx context.Context, item transfer.Item) (bool, error) {
		return applier.Exists(ctx, item.Key)
	}

	for _, pass := range [][]transfer.Item{creates, updates, deletes} {
		if err := transfer.Execute(ctx, pass, apply, probe, stats, opts); err != nil {
			report.Stats = stats.Summary()
			return report, err
		}
	}

	report.Stats = stats.Summary()
	return report, nil
}

// MigrateDocuments copies an item collection page by page. No destination
// snapshot is taken: collections can be arbitrarily large, so destination
// existence is checked per-item through the skip-existing probe instead
// of a full diff.
func MigrateDocuments(ctx context.Context, name string, reader pager.PageReader, applier Applier, policy Policy) (*TypeReport, error) {
	report := &TypeReport{Resource: name, DryRun: policy.DryRun}
	stats := transfer.NewRunStats()
	opts := policy.executorOptions()

	pageSize := policy.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	apply := func(ctx context.Context, item transfer.Item) transfer.Outcome {
		return applier.Create(ctx, item.Record)
	}
	probe := func(ctx context.Context, item transfer.Item) (bool, error) {
		return applier.Exists(ctx, item.Key)
	}

	err := pager.ForEachPage(ctx, reader, pageSize, func(records []resource.Record, last bool) error {
		items := make([]transfer.Item, 0, len(records))
		for _, r := range records {
			items = append(items, transfer.Item{Key: r.Key(), Record: r, Action: transfer.ActionCopy})
		}
		if policy.DryRun {
			for range items {
				stats.AddSkip()
			}
			return nil
		}
		if err := transfer.Execute(ctx, items, apply, probe, stats, opts); err != nil {
			return err
		}
		if policy.Progress != nil {
			policy.Progress(stats.Summary())
		}
		return nil
	})

	report.Stats = stats.Summary()
	if err != nil {
		return report, err
	}
	return report, nil
}
