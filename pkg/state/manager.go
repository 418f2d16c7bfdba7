// Package state tracks migration task lifecycles: an in-memory manager
// for single-instance deployments and a PostgreSQL-backed one for
// persistent run history.
package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/EliuX/cloud-tools/pkg/reconcile"
	"github.com/EliuX/cloud-tools/pkg/transfer"
)

// Task statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// TaskState is the persisted state of one migration run.
type TaskState struct {
	ID        string                `json:"id"`
	Status    string                `json:"status"`
	Resources []string              `json:"resources"`
	DryRun    bool                  `json:"dry_run"`
	Stats     transfer.StatsSummary `json:"stats"`
	Report    *reconcile.Report     `json:"report,omitempty"`
	Errors    []string              `json:"errors,omitempty"`
	StartTime time.Time             `json:"start_time"`
	EndTime   *time.Time            `json:"end_time,omitempty"`
}

// Manager persists task states.
type Manager interface {
	SaveTask(task *TaskState) error
	LoadTask(taskID string) (*TaskState, error)
	ListTasks() ([]*TaskState, error)
	DeleteTask(taskID string) error
	CleanupOldTasks(olderThan time.Duration) error
}

// MemoryManager keeps task states in process memory.
type MemoryManager struct {
	mu    sync.RWMutex
	tasks map[string]*TaskState
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{tasks: make(map[string]*TaskState)}
}

func (m *MemoryManager) SaveTask(task *TaskState) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *MemoryManager) LoadTask(taskID string) (*TaskState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	copied := *task
	return &copied, nil
}

func (m *MemoryManager) ListTasks() ([]*TaskState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tasks := make([]*TaskState, 0, len(m.tasks))
	for _, task := range m.tasks {
		copied := *task
		tasks = append(tasks, &copied)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].StartTime.After(tasks[j].StartTime) })
	return tasks, nil
}

func (m *MemoryManager) DeleteTask(taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[taskID]; !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	delete(m.tasks, taskID)
	return nil
}

func (m *MemoryManager) CleanupOldTasks(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, task := range m.tasks {
		if task.EndTime != nil && task.EndTime.Before(cutoff) {
			delete(m.tasks, id)
		}
	}
	return nil
}
