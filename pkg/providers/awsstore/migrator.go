package awsstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/EliuX/cloud-tools/pkg/reconcile"
	"github.com/EliuX/cloud-tools/pkg/transfer"
)

// Resource type names accepted by a migration run.
const (
	ResourceContainers = "containers"
	ResourceQueues     = "queues"
	ResourceBlobs      = "blobs"
	ResourceDocuments  = "documents"
)

// RunConfig is the full, explicit configuration of one migration run.
type RunConfig struct {
	Resources []string

	// Blob copy scope.
	SourceBucket string
	DestBucket   string
	Prefix       string

	// Document migration scope.
	SourceTable        string
	DestTable          string
	IDAttribute        string
	PartitionAttribute string

	PreserveDestinationOnly bool
	SkipExisting            bool
	ContinueOnError         bool
	DryRun                  bool
	BatchSize               int
	MaxRetries              int
	PageSize                int

	Progress func(transfer.StatsSummary)
}

func (c RunConfig) policy() reconcile.Policy {
	policy := reconcile.DefaultPolicy()
	policy.PreserveDestinationOnly = c.PreserveDestinationOnly
	policy.SkipExisting = c.SkipExisting
	policy.ContinueOnError = c.ContinueOnError
	policy.DryRun = c.DryRun
	policy.Progress = c.Progress
	if c.BatchSize > 0 {
		policy.BatchSize = c.BatchSize
	}
	if c.MaxRetries > 0 {
		policy.MaxRetries = c.MaxRetries
	}
	if c.PageSize > 0 {
		policy.PageSize = c.PageSize
	}
	return policy
}

// Run reconciles every requested resource type from the source account
// into the destination account and aggregates the per-type results.
// A failure in one resource type does not abort its siblings, except the
// fail-fast abort raised by the executor when ContinueOnError is off.
func Run(ctx context.Context, source, destination *Clients, cfg RunConfig) (*reconcile.Report, error) {
	policy := cfg.policy()
	var reports []*reconcile.TypeReport

	for _, res := range cfg.Resources {
		report, err := runOne(ctx, source, destination, cfg, policy, res)
		if err != nil {
			var itemErr *transfer.Error
			if !cfg.ContinueOnError && errors.As(err, &itemErr) {
				reports = append(reports, report)
				return reconcile.BuildReport(reports...), err
			}
			// Enumeration or pagination failure: this resource type is
			// aborted, siblings still run.
			if report == nil {
				report = &reconcile.TypeReport{Resource: res}
			}
			report.Stats.Failed++
			report.Stats.Total++
			report.Stats.Errors = append(report.Stats.Errors, err.Error())
		}
		reports = append(reports, report)
	}

	return reconcile.BuildReport(reports...), nil
}

func runOne(ctx context.Context, source, destination *Clients, cfg RunConfig, policy reconcile.Policy, res string) (*reconcile.TypeReport, error) {
	switch res {
	case ResourceContainers:
		return reconcile.Reconcile(ctx, res,
			NewContainerEnumerator(source),
			NewContainerEnumerator(destination),
			NewContainerApplier(destination),
			policy)
	case ResourceQueues:
		return reconcile.Reconcile(ctx, res,
			NewQueueEnumerator(source),
			NewQueueEnumerator(destination),
			NewQueueApplier(destination),
			policy)
	case ResourceBlobs:
		return reconcile.MigrateDocuments(ctx, res,
			NewBlobPager(source, cfg.SourceBucket, cfg.Prefix),
			NewBlobApplier(destination, cfg.SourceBucket, cfg.DestBucket),
			policy)
	case ResourceDocuments:
		return reconcile.MigrateDocuments(ctx, res,
			NewDocumentPager(source, cfg.SourceTable, cfg.IDAttribute, cfg.PartitionAttribute),
			NewDocumentApplier(destination, cfg.DestTable, cfg.IDAttribute, cfg.PartitionAttribute),
			policy)
	default:
		return nil, fmt.Errorf("unknown resource type %q", res)
	}
}
