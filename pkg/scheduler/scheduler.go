// Package scheduler runs recurring migration requests on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/EliuX/cloud-tools/pkg/models"
)

// Schedule is one recurring migration.
type Schedule struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	CronExpr  string                  `json:"cron_expr"`
	Enabled   bool                    `json:"enabled"`
	Request   models.MigrationRequest `json:"request"`
	LastRun   time.Time               `json:"last_run"`
	NextRun   time.Time               `json:"next_run"`
	RunCount  int                     `json:"run_count"`
	FailCount int                     `json:"fail_count"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Executor launches the migration behind a schedule.
type Executor interface {
	Execute(ctx context.Context, schedule *Schedule) error
}

// Scheduler manages cron entries for recurring migrations.
type Scheduler struct {
	mu        sync.RWMutex
	cron      *cron.Cron
	schedules map[string]*Schedule
	entries   map[string]cron.EntryID
	executor  Executor
	running   bool
}

func New(executor Executor) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		schedules: make(map[string]*Schedule),
		entries:   make(map[string]cron.EntryID),
		executor:  executor,
	}
}

func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.cron.Start()
	s.running = true
	return nil
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("scheduler not running")
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	return nil
}

// Add registers a new schedule; the cron expression is validated before
// anything is stored.
func (s *Scheduler) Add(schedule *Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schedules[schedule.ID]; exists {
		return fmt.Errorf("schedule %s already exists", schedule.ID)
	}

	cronSchedule, err := cron.ParseStandard(schedule.CronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	now := time.Now()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	schedule.NextRun = cronSchedule.Next(now)

	if schedule.Enabled {
		entryID, err := s.cron.AddFunc(schedule.CronExpr, func() {
			s.execute(schedule.ID)
		})
		if err != nil {
			return fmt.Errorf("failed to add cron job: %w", err)
		}
		s.entries[schedule.ID] = entryID
	}

	s.schedules[schedule.ID] = schedule
	return nil
}

func (s *Scheduler) Update(schedule *Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.schedules[schedule.ID]
	if !exists {
		return fmt.Errorf("schedule %s not found", schedule.ID)
	}

	cronSchedule, err := cron.ParseStandard(schedule.CronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	schedule.CreatedAt = old.CreatedAt
	schedule.RunCount = old.RunCount
	schedule.FailCount = old.FailCount
	schedule.UpdatedAt = time.Now()
	schedule.NextRun = cronSchedule.Next(time.Now())

	if entryID, ok := s.entries[schedule.ID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, schedule.ID)
	}
	if schedule.Enabled {
		entryID, err := s.cron.AddFunc(schedule.CronExpr, func() {
			s.execute(schedule.ID)
		})
		if err != nil {
			return fmt.Errorf("failed to update cron job: %w", err)
		}
		s.entries[schedule.ID] = entryID
	}

	s.schedules[schedule.ID] = schedule
	return nil
}

func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schedules[id]; !exists {
		return fmt.Errorf("schedule %s not found", id)
	}
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	delete(s.schedules, id)
	return nil
}

func (s *Scheduler) Get(id string) (*Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schedule, exists := s.schedules[id]
	if !exists {
		return nil, fmt.Errorf("schedule %s not found", id)
	}
	return schedule, nil
}

func (s *Scheduler) List() []*Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schedules := make([]*Schedule, 0, len(s.schedules))
	for _, schedule := range s.schedules {
		schedules = append(schedules, schedule)
	}
	return schedules
}

func (s *Scheduler) Enable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, exists := s.schedules[id]
	if !exists {
		return fmt.Errorf("schedule %s not found", id)
	}
	if schedule.Enabled {
		return nil
	}

	entryID, err := s.cron.AddFunc(schedule.CronExpr, func() {
		s.execute(id)
	})
	if err != nil {
		return fmt.Errorf("failed to enable schedule: %w", err)
	}
	s.entries[id] = entryID
	schedule.Enabled = true
	schedule.UpdatedAt = time.Now()
	return nil
}

func (s *Scheduler) Disable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, exists := s.schedules[id]
	if !exists {
		return fmt.Errorf("schedule %s not found", id)
	}
	if !schedule.Enabled {
		return nil
	}

	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	schedule.Enabled = false
	schedule.UpdatedAt = time.Now()
	return nil
}

// RunNow executes a schedule immediately, outside its cron cadence.
func (s *Scheduler) RunNow(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	go s.execute(id)
	return nil
}

func (s *Scheduler) execute(id string) {
	s.mu.Lock()
	schedule, exists := s.schedules[id]
	if !exists {
		s.mu.Unlock()
		return
	}
	schedule.LastRun = time.Now()
	schedule.RunCount++
	s.mu.Unlock()

	err := s.executor.Execute(context.Background(), schedule)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		schedule.FailCount++
	}
	if cronSchedule, parseErr := cron.ParseStandard(schedule.CronExpr); parseErr == nil {
		schedule.NextRun = cronSchedule.Next(time.Now())
	}
}

// Stats summarizes the scheduler for the API.
type Stats struct {
	TotalSchedules    int       `json:"total_schedules"`
	ActiveSchedules   int       `json:"active_schedules"`
	DisabledSchedules int       `json:"disabled_schedules"`
	NextRun           time.Time `json:"next_run"`
}

func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{TotalSchedules: len(s.schedules)}
	var nextRun time.Time
	for _, schedule := range s.schedules {
		if schedule.Enabled {
			stats.ActiveSchedules++
			if nextRun.IsZero() || schedule.NextRun.Before(nextRun) {
				nextRun = schedule.NextRun
			}
		} else {
			stats.DisabledSchedules++
		}
	}
	stats.NextRun = nextRun
	return stats
}
