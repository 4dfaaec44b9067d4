package models

// UploadResponse is returned when an upload is accepted for processing
type UploadResponse struct {
	Status string `json:"status"`
	TaskID string `json:"task_id"`
}

// ErrorResponse is the generic error reply shape
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StatusPendingResponse is returned while a task is still running
type StatusPendingResponse struct {
	Status string `json:"status"`
}

// StatusSuccessResponse carries the recognized text and the preview file name
type StatusSuccessResponse struct {
	Status   string `json:"status"`
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

// StatusFailedResponse carries the failure detail of a finished task
type StatusFailedResponse struct {
	Status string        `json:"status"`
	Data   FailureDetail `json:"data"`
}

// FailureDetail wraps a user-facing failure message
type FailureDetail struct {
	Message string `json:"message"`
}

// DeleteResponse acknowledges removal of a stored file
type DeleteResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
}
