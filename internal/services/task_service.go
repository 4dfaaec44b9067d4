package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Marjory00/ImageToPDF-App/internal/models"
)

// TaskService owns the in-memory task registry. Every read and write goes
// through one mutex, and a finished result is released to a poller exactly
// once: the poll that first observes a terminal state also removes the task.
type TaskService struct {
	tasks map[string]*models.Task
	mutex sync.Mutex
}

// TaskView is the copy of task state handed to a poller.
type TaskView struct {
	Status      models.TaskStatus
	Result      models.OCRResult
	PreviewName string
}

// NewTaskService creates an empty registry.
func NewTaskService() *TaskService {
	return &TaskService{
		tasks: make(map[string]*models.Task),
	}
}

// Submit registers a new pending task under the caller-supplied id.
func (s *TaskService) Submit(taskID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.tasks[taskID]; exists {
		return fmt.Errorf("task already exists: %s", taskID)
	}

	now := time.Now()
	s.tasks[taskID] = &models.Task{
		ID:        taskID,
		Status:    models.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Complete moves a pending task into a terminal state. Unknown ids and tasks
// that already finished are ignored: terminal states never change again.
func (s *TaskService) Complete(taskID string, status models.TaskStatus, result models.OCRResult, previewName string) {
	if !status.Terminal() {
		log.Printf("[TASKS] WARNING: ignoring non-terminal completion %q for task %s", status, taskID)
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	task, exists := s.tasks[taskID]
	if !exists || task.Status.Terminal() {
		return
	}

	task.Status = status
	task.Result = result
	task.PreviewName = previewName
	task.UpdatedAt = time.Now()
}

// Poll returns the current task state. Pending tasks stay registered; the
// first poll that sees a terminal state removes the task in the same critical
// section, so concurrent pollers can never both collect the result.
func (s *TaskService) Poll(taskID string) (TaskView, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return TaskView{}, false
	}

	view := TaskView{
		Status:      task.Status,
		Result:      task.Result,
		PreviewName: task.PreviewName,
	}
	if task.Status.Terminal() {
		delete(s.tasks, taskID)
	}
	return view, true
}

// EvictExpired drops terminal tasks whose results were never collected and
// returns how many were removed. Pending tasks are left alone.
func (s *TaskService) EvictExpired(ttl time.Duration) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := time.Now().Add(-ttl)
	evicted := 0
	for id, task := range s.tasks {
		if task.Status.Terminal() && task.UpdatedAt.Before(cutoff) {
			delete(s.tasks, id)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of tracked tasks.
func (s *TaskService) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.tasks)
}
