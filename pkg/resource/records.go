package resource

import (
	"fmt"
	"strconv"
)

// ContainerRecord holds the comparison-relevant properties of a blob
// container (an S3-compatible bucket).
type ContainerRecord struct {
	Name         string            `json:"name"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	PublicAccess AccessLevel       `json:"public_access"`
}

func (c ContainerRecord) Key() Key { return Key(c.Name) }

func (c ContainerRecord) DiffAgainst(other Record) []Difference {
	o, ok := other.(ContainerRecord)
	if !ok {
		return []Difference{{Property: "type", Source: "container", Destination: recordType(other)}}
	}

	diffs := DiffMetadata("metadata.", c.Metadata, o.Metadata)
	if c.PublicAccess != o.PublicAccess {
		diffs = append(diffs, Difference{
			Property:    "public_access",
			Source:      string(c.PublicAccess),
			Destination: string(o.PublicAccess),
		})
	}
	return diffs
}

// QueueRecord holds the comparison-relevant properties of a message queue.
type QueueRecord struct {
	Name              string            `json:"name"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	RetentionSeconds  int64             `json:"retention_seconds"`
	VisibilityTimeout int64             `json:"visibility_timeout"`
}

func (q QueueRecord) Key() Key { return Key(q.Name) }

func (q QueueRecord) DiffAgainst(other Record) []Difference {
	o, ok := other.(QueueRecord)
	if !ok {
		return []Difference{{Property: "type", Source: "queue", Destination: recordType(other)}}
	}

	diffs := DiffMetadata("metadata.", q.Metadata, o.Metadata)
	if q.RetentionSeconds != o.RetentionSeconds {
		diffs = append(diffs, Difference{
			Property:    "retention_seconds",
			Source:      strconv.FormatInt(q.RetentionSeconds, 10),
			Destination: strconv.FormatInt(o.RetentionSeconds, 10),
		})
	}
	if q.VisibilityTimeout != o.VisibilityTimeout {
		diffs = append(diffs, Difference{
			Property:    "visibility_timeout",
			Source:      strconv.FormatInt(q.VisibilityTimeout, 10),
			Destination: strconv.FormatInt(o.VisibilityTimeout, 10),
		})
	}
	return diffs
}

// DocumentRecord is a single document item. Documents are copied per-item
// through the paginated reader; their bodies are never snapshot-diffed.
type DocumentRecord struct {
	ID           string         `json:"id"`
	PartitionKey string         `json:"partition_key"`
	Body         map[string]any `json:"body,omitempty"`
}

func (d DocumentRecord) Key() Key {
	if d.PartitionKey == "" {
		return Key(d.ID)
	}
	return Key(fmt.Sprintf("%s/%s", d.PartitionKey, d.ID))
}

// BlobRecord is a single object inside a container, copied per-item.
type BlobRecord struct {
	Container string `json:"container"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	ETag      string `json:"etag,omitempty"`
}

func (b BlobRecord) Key() Key { return Key(b.Name) }

func recordType(r Record) string {
	switch r.(type) {
	case ContainerRecord:
		return "container"
	case QueueRecord:
		return "queue"
	case DocumentRecord:
		return "document"
	case BlobRecord:
		return "blob"
	default:
		return fmt.Sprintf("%T", r)
	}
}
