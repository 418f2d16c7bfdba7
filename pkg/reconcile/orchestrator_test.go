package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EliuX/cloud-tools/pkg/pager"
	"github.com/EliuX/cloud-tools/pkg/plan"
	"github.com/EliuX/cloud-tools/pkg/resource"
	"github.com/EliuX/cloud-tools/pkg/transfer"
)

// mapStore is an in-memory account: enumerator and applier over one map.
type mapStore struct {
	mu      sync.Mutex
	records map[resource.Key]resource.Record
	listErr error
	ops     []string
}

func newMapStore(records ...resource.Record) *mapStore {
	s := &mapStore{records: make(map[resource.Key]resource.Record)}
	for _, r := range records {
		s.records[r.Key()] = r
	}
	return s
}

func (s *mapStore) List(ctx context.Context) (resource.Snapshot, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(resource.Snapshot, len(s.records))
	for k, v := range s.records {
		snap[k] = v
	}
	return snap, nil
}

func (s *mapStore) record(op string, key resource.Key) {
	s.ops = append(s.ops, fmt.Sprintf("%s %s", op, key))
}

func (s *mapStore) Create(ctx context.Context, r resource.Record) transfer.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.Key()] = r
	s.record("create", r.Key())
	return transfer.OK()
}

func (s *mapStore) Update(ctx context.Context, u plan.Update) transfer.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[u.Key] = u.Source
	s.record("update", u.Key)
	return transfer.OK()
}

func (s *mapStore) Delete(ctx context.Context, key resource.Key) transfer.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	s.record("delete", key)
	return transfer.OK()
}

func (s *mapStore) Exists(ctx context.Context, key resource.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	return ok, nil
}

func container(name, tag string) resource.ContainerRecord {
	return resource.ContainerRecord{Name: name, Metadata: map[string]string{"tag": tag}}
}

func serialPolicy() Policy {
	p := DefaultPolicy()
	p.BatchSize = 1
	return p
}

func TestReconcileConvergesDestination(t *testing.T) {
	source := newMapStore(container("a", "x"), container("b", "y"))
	destination := newMapStore(container("b", "z"), container("c", "w"))

	report, err := Reconcile(context.Background(), "containers", source, destination, destination, serialPolicy())

	require.NoError(t, err)
	assert.Equal(t, "containers", report.Resource)
	assert.Equal(t, int64(3), report.Stats.Succeeded)
	assert.Equal(t, int64(0), report.Stats.Failed)

	// Destination now mirrors the source.
	got, err := destination.List(context.Background())
	require.NoError(t, err)
	want, _ := source.List(context.Background())
	assert.Equal(t, want, got)

	// Creates resolve before updates, updates before deletes.
	assert.Equal(t, []string{"create a", "update b", "delete c"}, destination.ops)
}

func TestReconcileSecondRunIsNoop(t *testing.T) {
	source := newMapStore(container("a", "x"), container("b", "y"))
	destination := newMapStore(container("b", "z"), container("c", "w"))

	_, err := Reconcile(context.Background(), "containers", source, destination, destination, serialPolicy())
	require.NoError(t, err)

	destination.ops = nil
	report, err := Reconcile(context.Background(), "containers", source, destination, destination, serialPolicy())

	require.NoError(t, err)
	assert.Empty(t, destination.ops)
	assert.Equal(t, int64(0), report.Stats.Total)
}

func TestReconcilePreserveDestinationOnly(t *testing.T) {
	source := newMapStore(container("a", "x"))
	destination := newMapStore(container("c", "w"))

	policy := serialPolicy()
	policy.PreserveDestinationOnly = true

	report, err := Reconcile(context.Background(), "containers", source, destination, destination, policy)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Plan.PreservedCount)
	exists, _ := destination.Exists(context.Background(), "c")
	assert.True(t, exists, "destination-only record survives")
}

func TestReconcileDryRunExecutesNothing(t *testing.T) {
	source := newMapStore(container("a", "x"))
	destination := newMapStore(container("c", "w"))

	policy := serialPolicy()
	policy.DryRun = true

	report, err := Reconcile(context.Background(), "containers", source, destination, destination, policy)

	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, []string{"a"}, report.Plan.Creates)
	assert.Equal(t, []string{"c"}, report.Plan.Deletes)
	assert.Empty(t, destination.ops)
	assert.Equal(t, int64(0), report.Stats.Total)
}

func TestReconcileEnumerationFailure(t *testing.T) {
	source := newMapStore(container("a", "x"))
	source.listErr = errors.New("connection refused")
	destination := newMapStore()

	report, err := Reconcile(context.Background(), "containers", source, destination, destination, serialPolicy())

	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "list source containers")
}

// failingApplier wraps a mapStore and fails one keyed operation terminally.
type failingApplier struct {
	*mapStore
	failKey resource.Key
}

func (f *failingApplier) Create(ctx context.Context, r resource.Record) transfer.Outcome {
	if r.Key() == f.failKey {
		return transfer.Terminal("denied")
	}
	return f.mapStore.Create(ctx, r)
}

func TestReconcileFailFastAborts(t *testing.T) {
	source := newMapStore(container("a", "x"), container("b", "y"), container("z", "q"))
	destination := newMapStore()

	policy := serialPolicy()
	policy.ContinueOnError = false
	applier := &failingApplier{mapStore: destination, failKey: "b"}

	report, err := Reconcile(context.Background(), "containers", source, destination, applier, policy)

	require.Error(t, err)
	var terr *transfer.Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "b", terr.Key)

	require.NotNil(t, report)
	assert.Equal(t, int64(1), report.Stats.Succeeded, "a landed before the failure")
	assert.Equal(t, int64(1), report.Stats.Failed)
	exists, _ := destination.Exists(context.Background(), "z")
	assert.False(t, exists, "items past the failure were not attempted")
}

// docReader pages documents out of a fixed slice.
type docReader struct {
	docs []resource.Record
}

func (r *docReader) ReadPage(ctx context.Context, cursor pager.Cursor, pageSize int) ([]resource.Record, pager.Cursor, bool, error) {
	start := 0
	if cursor != "" {
		fmt.Sscanf(string(cursor), "%d", &start)
	}
	end := start + pageSize
	if end >= len(r.docs) {
		return r.docs[start:], "", true, nil
	}
	return r.docs[start:end], pager.Cursor(fmt.Sprintf("%d", end)), false, nil
}

func documents(n int) []resource.Record {
	out := make([]resource.Record, n)
	for i := range out {
		out[i] = resource.DocumentRecord{ID: fmt.Sprintf("doc-%03d", i), Body: map[string]any{"n": i}}
	}
	return out
}

func TestMigrateDocumentsCopiesAllPages(t *testing.T) {
	destination := newMapStore()
	reader := &docReader{docs: documents(7)}

	policy := serialPolicy()
	policy.PageSize = 3

	var progress []transfer.StatsSummary
	policy.Progress = func(s transfer.StatsSummary) { progress = append(progress, s) }

	report, err := MigrateDocuments(context.Background(), "documents", reader, destination, policy)

	require.NoError(t, err)
	assert.Equal(t, int64(7), report.Stats.Succeeded)
	require.Len(t, progress, 3)
	assert.Equal(t, int64(7), progress[2].Succeeded, "progress is cumulative")

	snap, _ := destination.List(context.Background())
	assert.Len(t, snap, 7)
}

func TestMigrateDocumentsSkipExisting(t *testing.T) {
	docs := documents(4)
	destination := newMapStore(docs[1])
	reader := &docReader{docs: docs}

	policy := serialPolicy()
	policy.SkipExisting = true

	report, err := MigrateDocuments(context.Background(), "documents", reader, destination, policy)

	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Stats.Skipped)
	assert.Equal(t, int64(3), report.Stats.Succeeded)
}

func TestMigrateDocumentsDryRunCountsOnly(t *testing.T) {
	destination := newMapStore()
	reader := &docReader{docs: documents(5)}

	policy := serialPolicy()
	policy.DryRun = true

	report, err := MigrateDocuments(context.Background(), "documents", reader, destination, policy)

	require.NoError(t, err)
	assert.Equal(t, int64(5), report.Stats.Skipped)
	assert.Empty(t, destination.ops)
}

func TestBuildReport(t *testing.T) {
	a := &TypeReport{Resource: "containers", Stats: transfer.StatsSummary{Total: 3, Succeeded: 2, Failed: 1, Errors: []string{"e1"}}}
	b := &TypeReport{Resource: "queues", Stats: transfer.StatsSummary{Total: 2, Succeeded: 1, Skipped: 1}}

	report := BuildReport(a, nil, b)

	require.Len(t, report.Types, 2)
	assert.Equal(t, int64(5), report.Total.Total)
	assert.Equal(t, int64(3), report.Total.Succeeded)
	assert.Equal(t, int64(1), report.Total.Skipped)
	assert.Equal(t, int64(1), report.Total.Failed)
	assert.Equal(t, []string{"e1"}, report.Total.Errors)

	lines := report.Describe()
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "containers:")
	assert.Contains(t, lines[2], "all: total=5")
}

func TestBuildReportCapsErrors(t *testing.T) {
	var errs []string
	for i := 0; i < transfer.ErrorDisplayCap+5; i++ {
		errs = append(errs, fmt.Sprintf("e%d", i))
	}
	r := &TypeReport{Resource: "documents", Stats: transfer.StatsSummary{Failed: int64(len(errs)), Errors: errs}}

	report := BuildReport(r)
	require.Len(t, report.Total.Errors, transfer.ErrorDisplayCap+1)
	assert.Equal(t, "... +5 more", report.Total.Errors[transfer.ErrorDisplayCap])
}
