package services

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// TaskJanitor periodically evicts finished tasks whose results were never
// polled, so an abandoned client cannot grow the registry forever.
type TaskJanitor struct {
	tasks *TaskService
	ttl   time.Duration
	cron  *cron.Cron
}

// NewTaskJanitor creates a janitor that sweeps the registry once a minute.
func NewTaskJanitor(tasks *TaskService, ttl time.Duration) *TaskJanitor {
	j := &TaskJanitor{
		tasks: tasks,
		ttl:   ttl,
		cron:  cron.New(),
	}
	if _, err := j.cron.AddFunc("@every 1m", j.sweep); err != nil {
		log.Printf("[TASKS] ERROR: failed to schedule eviction: %v", err)
	}
	return j
}

func (j *TaskJanitor) sweep() {
	if n := j.tasks.EvictExpired(j.ttl); n > 0 {
		log.Printf("[TASKS] evicted %d expired task(s)", n)
	}
}

// Start starts the eviction scheduler
func (j *TaskJanitor) Start() {
	j.cron.Start()
	log.Println("Task eviction scheduler started")
}

// Stop stops the eviction scheduler
func (j *TaskJanitor) Stop() {
	j.cron.Stop()
	log.Println("Task eviction scheduler stopped")
}
