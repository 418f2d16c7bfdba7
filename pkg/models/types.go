// Package models defines the JSON request and response shapes of the
// migration API.
package models

import (
	"fmt"
	"time"

	"github.com/EliuX/cloud-tools/pkg/reconcile"
	"github.com/EliuX/cloud-tools/pkg/transfer"
)

// Credentials for one account of the resource store.
type Credentials struct {
	AccessKey      string `json:"access_key,omitempty"`
	SecretKey      string `json:"secret_key,omitempty"`
	SessionToken   string `json:"session_token,omitempty"`
	Region         string `json:"region"`
	EndpointURL    string `json:"endpoint_url,omitempty"`
	ForcePathStyle bool   `json:"force_path_style,omitempty"`
}

// MigrationRequest launches one reconciliation run.
type MigrationRequest struct {
	Resources []string `json:"resources"` // containers, queues, blobs, documents

	SourceCredentials *Credentials `json:"source_credentials"`
	DestCredentials   *Credentials `json:"dest_credentials"`

	// Blob copy scope.
	SourceBucket string `json:"source_bucket,omitempty"`
	DestBucket   string `json:"dest_bucket,omitempty"`
	Prefix       string `json:"prefix,omitempty"`

	// Document migration scope.
	SourceTable        string `json:"source_table,omitempty"`
	DestTable          string `json:"dest_table,omitempty"`
	IDAttribute        string `json:"id_attribute,omitempty"`
	PartitionAttribute string `json:"partition_attribute,omitempty"`

	PreserveDestinationOnly bool  `json:"preserve_destination_only"`
	SkipExisting            bool  `json:"skip_existing"`
	ContinueOnError         *bool `json:"continue_on_error,omitempty"` // default true
	DryRun                  bool  `json:"dry_run"`
	BatchSize               int   `json:"batch_size,omitempty"`
	MaxRetries              int   `json:"max_retries,omitempty"`
	PageSize                int   `json:"page_size,omitempty"`
}

var knownResources = map[string]bool{
	"containers": true,
	"queues":     true,
	"blobs":      true,
	"documents":  true,
}

// Validate rejects requests that cannot possibly run, before any
// enumeration is attempted.
func (r *MigrationRequest) Validate() error {
	if len(r.Resources) == 0 {
		return fmt.Errorf("no resource type selected")
	}
	for _, res := range r.Resources {
		if !knownResources[res] {
			return fmt.Errorf("unknown resource type %q", res)
		}
	}
	if r.SourceCredentials == nil && r.DestCredentials == nil {
		return fmt.Errorf("neither source nor destination credentials supplied")
	}
	if r.SourceCredentials == nil {
		return fmt.Errorf("source credentials not supplied")
	}
	if r.DestCredentials == nil {
		return fmt.Errorf("destination credentials not supplied")
	}
	for _, res := range r.Resources {
		switch res {
		case "blobs":
			if r.SourceBucket == "" || r.DestBucket == "" {
				return fmt.Errorf("blob migration requires source_bucket and dest_bucket")
			}
		case "documents":
			if r.SourceTable == "" || r.DestTable == "" {
				return fmt.Errorf("document migration requires source_table and dest_table")
			}
		}
	}
	return nil
}

// ContinueOnErrorOrDefault resolves the optional flag (default true).
func (r *MigrationRequest) ContinueOnErrorOrDefault() bool {
	if r.ContinueOnError == nil {
		return true
	}
	return *r.ContinueOnError
}

// TaskStatus is the API view of one migration task.
type TaskStatus struct {
	TaskID    string                `json:"task_id"`
	Status    string                `json:"status"` // pending, running, completed, failed, cancelled
	Resources []string              `json:"resources"`
	DryRun    bool                  `json:"dry_run"`
	Stats     transfer.StatsSummary `json:"stats"`
	Report    *reconcile.Report     `json:"report,omitempty"`
	StartTime time.Time             `json:"start_time"`
	EndTime   *time.Time            `json:"end_time,omitempty"`
	Duration  string                `json:"duration,omitempty"`
}

// ScheduleRequest creates or updates a recurring migration.
type ScheduleRequest struct {
	Name     string           `json:"name"`
	CronExpr string           `json:"cron_expr"`
	Enabled  bool             `json:"enabled"`
	Request  MigrationRequest `json:"request"`
}
