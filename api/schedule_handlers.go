package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/EliuX/cloud-tools/pkg/models"
	"github.com/EliuX/cloud-tools/pkg/scheduler"
	"github.com/EliuX/cloud-tools/pkg/state"
)

var (
	migrationScheduler *scheduler.Scheduler
	schedulerOnce      sync.Once
)

// migrationExecutor bridges the scheduler to the migration runner: each
// firing becomes a regular tracked task.
type migrationExecutor struct{}

func (migrationExecutor) Execute(ctx context.Context, schedule *scheduler.Schedule) error {
	taskID := uuid.New().String()
	task := newScheduledTask(taskID, schedule)
	if err := taskManager.SaveTask(task); err != nil {
		return err
	}
	fmt.Printf("Schedule %s (%s) fired, task %s\n", schedule.ID, schedule.Name, taskID)
	return executeRequest(ctx, taskID, schedule.Request)
}

func newScheduledTask(taskID string, schedule *scheduler.Schedule) *state.TaskState {
	return &state.TaskState{
		ID:        taskID,
		Status:    state.StatusPending,
		Resources: schedule.Request.Resources,
		DryRun:    schedule.Request.DryRun,
		StartTime: time.Now(),
	}
}

// EnsureSchedulerInitialized starts the scheduler once.
func EnsureSchedulerInitialized() {
	schedulerOnce.Do(func() {
		migrationScheduler = scheduler.New(migrationExecutor{})
		if err := migrationScheduler.Start(); err != nil {
			fmt.Printf("Failed to start scheduler: %v\n", err)
		}
	})
}

// CreateSchedule registers a recurring migration.
func CreateSchedule(c *gin.Context) {
	var req models.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := req.Request.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule := &scheduler.Schedule{
		ID:       uuid.New().String(),
		Name:     req.Name,
		CronExpr: req.CronExpr,
		Enabled:  req.Enabled,
		Request:  req.Request,
	}
	if err := migrationScheduler.Add(schedule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, schedule)
}

// ListSchedules returns every schedule.
func ListSchedules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"schedules": migrationScheduler.List()})
}

// GetSchedule returns one schedule.
func GetSchedule(c *gin.Context) {
	schedule, err := migrationScheduler.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// UpdateSchedule replaces a schedule's definition.
func UpdateSchedule(c *gin.Context) {
	var req models.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := req.Request.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule := &scheduler.Schedule{
		ID:       c.Param("id"),
		Name:     req.Name,
		CronExpr: req.CronExpr,
		Enabled:  req.Enabled,
		Request:  req.Request,
	}
	if err := migrationScheduler.Update(schedule); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// DeleteSchedule removes a schedule.
func DeleteSchedule(c *gin.Context) {
	if err := migrationScheduler.Remove(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

// EnableSchedule turns a schedule on.
func EnableSchedule(c *gin.Context) {
	if err := migrationScheduler.Enable(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": c.Param("id")})
}

// DisableSchedule turns a schedule off.
func DisableSchedule(c *gin.Context) {
	if err := migrationScheduler.Disable(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"disabled": c.Param("id")})
}

// RunScheduleNow fires a schedule immediately.
func RunScheduleNow(c *gin.Context) {
	if err := migrationScheduler.RunNow(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"running": c.Param("id")})
}

// GetSchedulerStats summarizes the scheduler.
func GetSchedulerStats(c *gin.Context) {
	c.JSON(http.StatusOK, migrationScheduler.Stats())
}
