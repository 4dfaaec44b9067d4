package services

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/Marjory00/ImageToPDF-App/internal/models"
	"github.com/Marjory00/ImageToPDF-App/internal/ocr"
	"github.com/Marjory00/ImageToPDF-App/internal/raster"
	"github.com/Marjory00/ImageToPDF-App/internal/security"
)

// previewMaxDim matches the long side of an A4 page at preview resolution;
// standard pages pass through unscaled and only oversized stock is shrunk.
const previewMaxDim = 1754

// OCRService runs accepted tasks in the background. Each task gets its own
// goroutine; a weighted semaphore bounds how many recognize concurrently, so
// accepts stay immediate while the engine load is capped.
type OCRService struct {
	pipeline   *ocr.Pipeline
	renderer   ocr.Renderer
	tasks      *TaskService
	storage    *StorageService
	telemetry  *InfluxService
	workers    *semaphore.Weighted
	maxNameLen int
}

// NewOCRService creates the background task runner. telemetry may be nil.
func NewOCRService(pipeline *ocr.Pipeline, renderer ocr.Renderer, tasks *TaskService, storage *StorageService, telemetry *InfluxService, workers, maxNameLen int) *OCRService {
	if workers < 1 {
		workers = 1
	}
	return &OCRService{
		pipeline:   pipeline,
		renderer:   renderer,
		tasks:      tasks,
		storage:    storage,
		telemetry:  telemetry,
		workers:    semaphore.NewWeighted(int64(workers)),
		maxNameLen: maxNameLen,
	}
}

// Dispatch schedules background recognition for an accepted upload and
// returns immediately. The task must already be registered as pending.
func (s *OCRService) Dispatch(taskID, storedName, originalName, language string, psm int) {
	go func() {
		ctx := context.Background()
		if err := s.workers.Acquire(ctx, 1); err != nil {
			s.tasks.Complete(taskID, models.TaskStatusFailed, models.OCRResult{
				Status:  models.ResultError,
				Message: "An unexpected error occurred during OCR: worker unavailable.",
			}, "")
			return
		}
		defer s.workers.Release(1)

		s.runTask(ctx, taskID, storedName, originalName, language, psm)
	}()
}

// runTask executes the pipeline and publishes exactly one terminal state.
// A panic anywhere below still flips the task to failed, so a poller can
// never be stranded on a forever-pending id.
func (s *OCRService) runTask(ctx context.Context, taskID, storedName, originalName, language string, psm int) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[OCR] ERROR: task %s panicked: %v", taskID, r)
			s.tasks.Complete(taskID, models.TaskStatusFailed, models.OCRResult{
				Status:  models.ResultError,
				Message: "An unexpected error occurred during OCR: internal failure.",
			}, "")
			s.removeUpload(storedName)
		}
	}()

	log.Printf("[OCR] task %s started (file=%s, language=%s, psm=%d)", taskID, storedName, language, psm)
	result := s.pipeline.Process(ctx, s.storage.Path(storedName), language, psm)

	if result.Status == models.ResultSuccess {
		previewName := storedName
		if raster.MultiPage(originalName) {
			if name, err := s.renderPreview(ctx, storedName, originalName); err != nil {
				log.Printf("[OCR] WARNING: task %s preview failed: %v", taskID, err)
			} else {
				previewName = name
			}
		}
		s.tasks.Complete(taskID, models.TaskStatusComplete, result, previewName)
		log.Printf("[OCR] task %s complete (%d chars in %s)", taskID, len(result.Text), time.Since(started).Round(time.Millisecond))
	} else {
		s.tasks.Complete(taskID, models.TaskStatusFailed, result, "")
		log.Printf("[OCR] task %s failed: %s", taskID, result.Message)
	}

	s.removeUpload(storedName)

	status := models.TaskStatusFailed
	if result.Status == models.ResultSuccess {
		status = models.TaskStatusComplete
	}
	s.telemetry.RecordTask(ctx, taskID, status, language, len(result.Text), time.Since(started))
}

// renderPreview rasterizes the first page at preview resolution and stores
// it as a PNG under a name with its own fresh id, so repeated uploads of the
// same original never collide.
func (s *OCRService) renderPreview(ctx context.Context, storedName, originalName string) (string, error) {
	img, err := s.renderer.RenderPage(ctx, s.storage.Path(storedName), 0, ocr.PreviewDPI)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	if base == "" {
		base = "preview"
	}
	name, err := security.SecureFilename(base+".png", uuid.New().String(), s.maxNameLen)
	if err != nil {
		return "", err
	}

	if err := s.storage.SavePNG(name, raster.ScaleToFit(img, previewMaxDim)); err != nil {
		return "", err
	}
	return name, nil
}

// removeUpload deletes the stored upload once processing is over. The upload
// is transient input either way; only previews stay behind.
func (s *OCRService) removeUpload(storedName string) {
	if deleted, err := s.storage.Delete(storedName); err != nil {
		log.Printf("[STORAGE] WARNING: could not delete upload %s: %v", storedName, err)
	} else if deleted {
		log.Printf("[STORAGE] removed processed upload %s", storedName)
	}
}
