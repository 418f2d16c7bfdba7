package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/EliuX/cloud-tools/pkg/config"
	"github.com/EliuX/cloud-tools/pkg/models"
	"github.com/EliuX/cloud-tools/pkg/progress"
	"github.com/EliuX/cloud-tools/pkg/providers/awsstore"
	"github.com/EliuX/cloud-tools/pkg/state"
	"github.com/EliuX/cloud-tools/pkg/transfer"
)

var (
	taskManager state.Manager
	trackers    sync.Map // task ID -> *progress.Tracker
)

// InitTaskManager wires the task store used by all handlers.
func InitTaskManager(manager state.Manager) {
	taskManager = manager
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

// StartMigration launches an asynchronous migration run.
func StartMigration(c *gin.Context) {
	var req models.MigrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID := uuid.New().String()
	task := &state.TaskState{
		ID:        taskID,
		Status:    state.StatusPending,
		Resources: req.Resources,
		DryRun:    req.DryRun,
		StartTime: time.Now(),
	}
	if err := taskManager.SaveTask(task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save task: " + err.Error()})
		return
	}

	go func() {
		if err := executeRequest(context.Background(), taskID, req); err != nil {
			fmt.Printf("Migration task %s failed: %v\n", taskID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID, "status": state.StatusPending})
}

// PlanMigration computes the action plan without applying anything and
// returns it synchronously.
func PlanMigration(c *gin.Context) {
	var req models.MigrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.DryRun = true

	source, dest, err := buildClients(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := awsstore.Run(c.Request.Context(), source, dest, runConfig(&req, nil))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

// GetStatus returns the current state of a task, including live progress
// while it is running.
func GetStatus(c *gin.Context) {
	taskID := c.Param("taskID")
	task, err := taskManager.LoadTask(taskID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{"task": taskStatus(task)}
	if tracker, ok := trackers.Load(taskID); ok {
		response["progress"] = tracker.(*progress.Tracker).Stats()
	}
	c.JSON(http.StatusOK, response)
}

// ListTasks returns all known tasks, newest first.
func ListTasks(c *gin.Context) {
	tasks, err := taskManager.ListTasks()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	statuses := make([]models.TaskStatus, 0, len(tasks))
	for _, task := range tasks {
		statuses = append(statuses, taskStatus(task))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": statuses})
}

// DeleteTask removes a task record.
func DeleteTask(c *gin.Context) {
	taskID := c.Param("taskID")
	if err := taskManager.DeleteTask(taskID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	trackers.Delete(taskID)
	c.JSON(http.StatusOK, gin.H{"deleted": taskID})
}

// CleanupTasks removes finished tasks older than the given duration
// (default 7 days).
func CleanupTasks(c *gin.Context) {
	olderThan := 7 * 24 * time.Hour
	if raw := c.Query("older_than"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid older_than duration: " + err.Error()})
			return
		}
		olderThan = parsed
	}
	if err := taskManager.CleanupOldTasks(olderThan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleaned_older_than": olderThan.String()})
}

// executeRequest drives one migration run end to end, keeping the task
// record current as it progresses.
func executeRequest(ctx context.Context, taskID string, req models.MigrationRequest) error {
	task, err := taskManager.LoadTask(taskID)
	if err != nil {
		return err
	}

	fail := func(failErr error) error {
		now := time.Now()
		task.Status = state.StatusFailed
		task.Errors = append(task.Errors, failErr.Error())
		task.EndTime = &now
		_ = taskManager.SaveTask(task)
		return failErr
	}

	source, dest, err := buildClients(ctx, &req)
	if err != nil {
		return fail(err)
	}

	task.Status = state.StatusRunning
	if err := taskManager.SaveTask(task); err != nil {
		return err
	}

	tracker := progress.NewTracker(0)
	trackers.Store(taskID, tracker)
	defer trackers.Delete(taskID)

	report, runErr := awsstore.Run(ctx, source, dest, runConfig(&req, func(summary transfer.StatsSummary) {
		tracker.Observe(summary)
	}))

	now := time.Now()
	task.EndTime = &now
	task.Report = report
	if report != nil {
		task.Stats = report.Total
	}
	if runErr != nil {
		task.Status = state.StatusFailed
		task.Errors = append(task.Errors, runErr.Error())
	} else {
		task.Status = state.StatusCompleted
	}
	if err := taskManager.SaveTask(task); err != nil {
		return err
	}
	return runErr
}

func buildClients(ctx context.Context, req *models.MigrationRequest) (*awsstore.Clients, *awsstore.Clients, error) {
	source, err := awsstore.NewClients(ctx, storeCredentials(req.SourceCredentials))
	if err != nil {
		return nil, nil, fmt.Errorf("source account: %w", err)
	}
	dest, err := awsstore.NewClients(ctx, storeCredentials(req.DestCredentials))
	if err != nil {
		return nil, nil, fmt.Errorf("destination account: %w", err)
	}
	return source, dest, nil
}

func storeCredentials(creds *models.Credentials) *config.Credentials {
	if creds == nil {
		return nil
	}
	return &config.Credentials{
		AccessKeyID:     creds.AccessKey,
		SecretAccessKey: creds.SecretKey,
		SessionToken:    creds.SessionToken,
		Region:          creds.Region,
		EndpointURL:     creds.EndpointURL,
		ForcePathStyle:  creds.ForcePathStyle,
	}
}

func runConfig(req *models.MigrationRequest, onProgress func(transfer.StatsSummary)) awsstore.RunConfig {
	return awsstore.RunConfig{
		Resources:               req.Resources,
		SourceBucket:            req.SourceBucket,
		DestBucket:              req.DestBucket,
		Prefix:                  req.Prefix,
		SourceTable:             req.SourceTable,
		DestTable:               req.DestTable,
		IDAttribute:             req.IDAttribute,
		PartitionAttribute:      req.PartitionAttribute,
		PreserveDestinationOnly: req.PreserveDestinationOnly,
		SkipExisting:            req.SkipExisting,
		ContinueOnError:         req.ContinueOnErrorOrDefault(),
		DryRun:                  req.DryRun,
		BatchSize:               req.BatchSize,
		MaxRetries:              req.MaxRetries,
		PageSize:                req.PageSize,
		Progress:                onProgress,
	}
}

func taskStatus(task *state.TaskState) models.TaskStatus {
	status := models.TaskStatus{
		TaskID:    task.ID,
		Status:    task.Status,
		Resources: task.Resources,
		DryRun:    task.DryRun,
		Stats:     task.Stats,
		Report:    task.Report,
		StartTime: task.StartTime,
		EndTime:   task.EndTime,
	}
	if task.EndTime != nil {
		status.Duration = task.EndTime.Sub(task.StartTime).Round(time.Millisecond).String()
	}
	return status
}
