package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffMetadataSymmetric(t *testing.T) {
	source := map[string]string{"env": "prod", "team": "data", "tier": "gold"}
	destination := map[string]string{"env": "prod", "team": "infra", "owner": "ops"}

	diffs := DiffMetadata("metadata.", source, destination)

	require.Len(t, diffs, 3)
	assert.Equal(t, Difference{Property: "metadata.owner", Destination: "ops"}, diffs[0])
	assert.Equal(t, Difference{Property: "metadata.team", Source: "data", Destination: "infra"}, diffs[1])
	assert.Equal(t, Difference{Property: "metadata.tier", Source: "gold"}, diffs[2])
}

func TestDiffMetadataEqual(t *testing.T) {
	m := map[string]string{"a": "1", "b": "2"}
	assert.Empty(t, DiffMetadata("", m, map[string]string{"a": "1", "b": "2"}))
	assert.Empty(t, DiffMetadata("", nil, nil))
}

func TestContainerRecordDiff(t *testing.T) {
	src := ContainerRecord{
		Name:         "assets",
		Metadata:     map[string]string{"env": "prod"},
		PublicAccess: AccessPublicRead,
	}
	dst := ContainerRecord{
		Name:         "assets",
		Metadata:     map[string]string{"env": "staging"},
		PublicAccess: AccessPrivate,
	}

	diffs := src.DiffAgainst(dst)

	require.Len(t, diffs, 2)
	assert.Equal(t, "metadata.env", diffs[0].Property)
	assert.Equal(t, "public_access", diffs[1].Property)
	assert.Equal(t, "public-read", diffs[1].Source)
	assert.Equal(t, "private", diffs[1].Destination)
}

func TestContainerRecordDiffTypeMismatch(t *testing.T) {
	src := ContainerRecord{Name: "assets"}
	diffs := src.DiffAgainst(QueueRecord{Name: "assets"})

	require.Len(t, diffs, 1)
	assert.Equal(t, "type", diffs[0].Property)
}

func TestQueueRecordDiff(t *testing.T) {
	src := QueueRecord{Name: "jobs", RetentionSeconds: 1209600, VisibilityTimeout: 30}
	dst := QueueRecord{Name: "jobs", RetentionSeconds: 345600, VisibilityTimeout: 30}

	diffs := src.DiffAgainst(dst)

	require.Len(t, diffs, 1)
	assert.Equal(t, "retention_seconds", diffs[0].Property)
	assert.Equal(t, "1209600", diffs[0].Source)
	assert.Equal(t, "345600", diffs[0].Destination)
}

func TestDocumentRecordKey(t *testing.T) {
	assert.Equal(t, Key("users/42"), DocumentRecord{ID: "42", PartitionKey: "users"}.Key())
	assert.Equal(t, Key("42"), DocumentRecord{ID: "42"}.Key())
}

func TestSnapshotKeysSorted(t *testing.T) {
	snapshot := Snapshot{
		"b": ContainerRecord{Name: "b"},
		"a": ContainerRecord{Name: "a"},
		"c": ContainerRecord{Name: "c"},
	}
	assert.Equal(t, []Key{"a", "b", "c"}, snapshot.Keys())
}
