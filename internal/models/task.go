package models

import "time"

// TaskStatus represents the lifecycle state of an OCR task
type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusComplete TaskStatus = "complete"
	TaskStatusFailed   TaskStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusComplete || s == TaskStatusFailed
}

// OCRResult is the outcome of one pipeline run
type OCRResult struct {
	Status  string `json:"status"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Task represents an async OCR task tracked in memory
type Task struct {
	ID          string     `json:"id"`
	Status      TaskStatus `json:"status"`
	Result      OCRResult  `json:"result,omitempty"`
	PreviewName string     `json:"previewName,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
