// Package transfer applies lists of homogeneous resource operations as
// sequential batches of concurrent, individually retried items, and
// accumulates run statistics. It is the single execution engine behind
// container, queue and document migration.
package transfer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/EliuX/cloud-tools/pkg/resource"
)

// Action is the kind of operation one transfer item performs.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionCopy   Action = "copy"
)

// Item is one unit of transfer work. The executor owns its retry counter
// for the duration of the run and discards it on completion.
type Item struct {
	Key    resource.Key
	Record resource.Record
	Action Action
}

// ApplyFunc performs the item's operation against the destination store
// and classifies the result.
type ApplyFunc func(ctx context.Context, item Item) Outcome

// ExistsFunc probes destination existence for an item. A not-found
// response from the store is a normal negative signal, not an error.
type ExistsFunc func(ctx context.Context, item Item) (bool, error)

// Options controls one Execute call.
type Options struct {
	// BatchSize bounds both batch length and in-batch concurrency.
	BatchSize int
	// MaxRetries is the number of additional attempts after the first
	// for retryable failures.
	MaxRetries int
	// ContinueOnError keeps the run going past terminal failures. When
	// false the first terminal failure (after retries exhaust) aborts
	// the remaining items.
	ContinueOnError bool
	// SkipExisting probes the destination before create/copy actions and
	// records already-present items as skipped.
	SkipExisting bool
	// BackoffUnit is the base delay unit; retry n waits 2^(n-1) units.
	BackoffUnit time.Duration
	// Sleep is injectable so tests can observe delays without waiting.
	Sleep func(time.Duration)
}

// DefaultOptions returns the executor defaults.
func DefaultOptions() Options {
	return Options{
		BatchSize:       25,
		MaxRetries:      3,
		ContinueOnError: true,
		BackoffUnit:     time.Second,
		Sleep:           time.Sleep,
	}
}

func (o Options) normalized() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 25
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BackoffUnit <= 0 {
		o.BackoffUnit = time.Second
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	return o
}

// Execute applies items in sequential batches, mutating stats as items
// resolve. With ContinueOnError set, per-item failures are recorded and
// the run always completes; otherwise items run one at a time and the
// first terminal failure returns, leaving the rest of the list
// unattempted and prior effects in place.
func Execute(ctx context.Context, items []Item, apply ApplyFunc, probe ExistsFunc, stats *RunStats, opts Options) error {
	opts = opts.normalized()
	if len(items) == 0 {
		return nil
	}

	if !opts.ContinueOnError {
		// Fail-fast runs are serial so nothing past the failure is issued.
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := runItem(ctx, item, apply, probe, stats, opts); err != nil {
				return err
			}
		}
		return nil
	}

	for start := 0; start < len(items); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + opts.BatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		var wg sync.WaitGroup
		for _, item := range batch {
			wg.Add(1)
			go func(it Item) {
				defer wg.Done()
				// Failures are already recorded in stats; the run proceeds.
				_ = runItem(ctx, it, apply, probe, stats, opts)
			}(item)
		}
		wg.Wait()
	}

	return nil
}

// runItem drives one item to its terminal outcome: migrated, skipped or
// failed. Retryable outcomes back off 2^(n-1) units before retry n, up to
// MaxRetries retries.
func runItem(ctx context.Context, item Item, apply ApplyFunc, probe ExistsFunc, stats *RunStats, opts Options) error {
	if opts.SkipExisting && probe != nil && (item.Action == ActionCreate || item.Action == ActionCopy) {
		exists, err := probe(ctx, item)
		if err != nil {
			stats.AddFailure(fmt.Sprintf("%s %s: existence probe: %v", item.Action, item.Key, err))
			return &Error{Op: string(item.Action), Key: string(item.Key), Err: err}
		}
		// The probe-then-act sequence is not atomic: a concurrent writer
		// may still create the item after a negative probe. The resulting
		// conflict surfaces as a normal terminal failure below.
		if exists {
			stats.AddSkip()
			return nil
		}
	}

	retries := 0
	for {
		out := apply(ctx, item)
		switch out.Status {
		case StatusOK:
			stats.AddSuccess()
			return nil
		case StatusRetryable:
			if retries < opts.MaxRetries {
				retries++
				opts.Sleep(opts.BackoffUnit * (1 << (retries - 1)))
				continue
			}
			msg := fmt.Sprintf("%s %s: retries exhausted: %s", item.Action, item.Key, out.Reason)
			stats.AddFailure(msg)
			return &Error{Op: string(item.Action), Key: string(item.Key), Err: fmt.Errorf("retries exhausted: %s", out.Reason)}
		default:
			msg := fmt.Sprintf("%s %s: %s", item.Action, item.Key, out.Reason)
			stats.AddFailure(msg)
			return &Error{Op: string(item.Action), Key: string(item.Key), Err: fmt.Errorf("%s", out.Reason)}
		}
	}
}
