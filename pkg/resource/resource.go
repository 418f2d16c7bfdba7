package resource

import (
	"fmt"
	"sort"
)

// Key uniquely identifies a resource within one resource type and one account.
type Key string

// AccessLevel represents the public access configuration of a container.
type AccessLevel string

const (
	AccessPrivate    AccessLevel = "private"
	AccessPublicRead AccessLevel = "public-read"
)

// Record is a single resource entry in an enumeration snapshot.
type Record interface {
	Key() Key
}

// Comparable is implemented by record types whose comparison-relevant
// properties can be diffed against another record of the same type.
// Records that do not implement Comparable (documents, blobs) are migrated
// per-item and never snapshot-diffed.
type Comparable interface {
	Record
	DiffAgainst(other Record) []Difference
}

// Difference describes one property that differs between a source record
// and its destination counterpart. Empty Source or Destination means the
// property is missing on that side.
type Difference struct {
	Property    string `json:"property"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

func (d Difference) String() string {
	return fmt.Sprintf("%s: %q != %q", d.Property, d.Source, d.Destination)
}

// Snapshot is one account's state of a resource type at enumeration time.
// Immutable once captured; no two entries share a key.
type Snapshot map[Key]Record

// Keys returns the snapshot keys in sorted order for deterministic iteration.
func (s Snapshot) Keys() []Key {
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// DiffMetadata performs a symmetric key-set diff of two metadata maps.
// Keys missing on either side, or present on both with differing values,
// are each reported individually. Results are sorted by property name.
func DiffMetadata(prefix string, source, destination map[string]string) []Difference {
	var diffs []Difference

	for k, sv := range source {
		dv, ok := destination[k]
		if !ok || sv != dv {
			diffs = append(diffs, Difference{Property: prefix + k, Source: sv, Destination: dv})
		}
	}
	for k, dv := range destination {
		if _, ok := source[k]; !ok {
			diffs = append(diffs, Difference{Property: prefix + k, Destination: dv})
		}
	}

	sort.Slice(diffs, func(i, j int) bool { return diffs[i].Property < diffs[j].Property })
	return diffs
}
