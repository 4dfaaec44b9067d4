package api

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Marjory00/ImageToPDF-App/internal/config"
	"github.com/Marjory00/ImageToPDF-App/internal/models"
	"github.com/Marjory00/ImageToPDF-App/internal/ocr"
	"github.com/Marjory00/ImageToPDF-App/internal/security"
	"github.com/Marjory00/ImageToPDF-App/internal/services"
)

// cookieMaxAge is how long the client keeps its last-used form values, in seconds.
const cookieMaxAge = 30 * 24 * 60 * 60

// Handlers contains all HTTP handlers
type Handlers struct {
	cfg          *config.Config
	tasks        *services.TaskService
	ocrService   *services.OCRService
	storage      *services.StorageService
	pdfService   *services.PDFService
	engineStatus ocr.EngineStatus
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	cfg *config.Config,
	tasks *services.TaskService,
	ocrService *services.OCRService,
	storage *services.StorageService,
	pdfService *services.PDFService,
	engineStatus ocr.EngineStatus,
) *Handlers {
	return &Handlers{
		cfg:          cfg,
		tasks:        tasks,
		ocrService:   ocrService,
		storage:      storage,
		pdfService:   pdfService,
		engineStatus: engineStatus,
	}
}

// UploadHandler handles POST /upload
// Accepts a multipart document, stores it under a secure name and starts
// recognition in the background. The client gets a task id immediately and
// polls /status for the result.
func (h *Handlers) UploadHandler(c *gin.Context) {
	if !h.engineStatus.Available {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Status: "error", Message: "Tesseract Not Ready"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		// The multipart parser stores a part with an empty filename as a
		// plain form value, so a "file" value means the file input was
		// submitted with no selection.
		if form := c.Request.MultipartForm; form != nil && len(form.Value["file"]) > 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Status: "error", Message: "No selected file"})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Status: "error", Message: "No file part"})
		return
	}
	originalName := file.Filename
	if !h.cfg.Upload.ExtensionAllowed(originalName) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Status: "error", Message: "Invalid file type"})
		return
	}
	if file.Size > h.cfg.Upload.MaxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Status: "error", Message: "File too large"})
		return
	}

	taskID, storedName, err := security.UniqueFilename(originalName, h.cfg.Upload.MaxFilenameLength)
	if err != nil {
		log.Printf("[API] WARNING: rejected upload name %q: %v", originalName, err)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Status: "error", Message: "Invalid file name"})
		return
	}

	reader, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Status: "error", Message: fmt.Sprintf("A server processing error occurred: %v", err)})
		return
	}
	defer reader.Close()

	if err := h.storage.Save(storedName, reader); err != nil {
		log.Printf("[API] ERROR: could not store upload %s: %v", storedName, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Status: "error", Message: fmt.Sprintf("A server processing error occurred: %v", err)})
		return
	}

	language := c.DefaultPostForm("language", ocr.DefaultLanguage)
	psm, err := strconv.Atoi(c.DefaultPostForm("psm", "3"))
	if err != nil {
		psm = 3
	}

	if err := h.tasks.Submit(taskID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Status: "error", Message: "failed to create task"})
		return
	}
	h.ocrService.Dispatch(taskID, storedName, originalName, language, psm)

	log.Printf("[API] accepted upload %s as task %s (size=%d, language=%s)", originalName, taskID, file.Size, language)

	// Remember the last-used form values so the page can prefill them.
	titleBase := strings.TrimSuffix(originalName, filepath.Ext(originalName))
	c.SetCookie("last_language", language, cookieMaxAge, "/", "", false, false)
	c.SetCookie("last_pdf_title", titleBase, cookieMaxAge, "/", "", false, false)

	c.JSON(http.StatusAccepted, models.UploadResponse{Status: "processing", TaskID: taskID})
}

// StatusHandler handles GET /status/:task_id
// Reports task progress. The first poll that sees a finished task also
// collects it, so a repeat poll for the same id returns 404.
func (h *Handlers) StatusHandler(c *gin.Context) {
	taskID := c.Param("task_id")

	view, ok := h.tasks.Poll(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Status: "error", Message: "Task ID not found."})
		return
	}

	switch view.Status {
	case models.TaskStatusComplete:
		c.JSON(http.StatusOK, models.StatusSuccessResponse{
			Status:   "success",
			Text:     view.Result.Text,
			Filename: view.PreviewName,
		})
	case models.TaskStatusFailed:
		c.JSON(http.StatusOK, models.StatusFailedResponse{
			Status: "failed",
			Data:   models.FailureDetail{Message: view.Result.Message},
		})
	default:
		c.JSON(http.StatusOK, models.StatusPendingResponse{Status: "processing"})
	}
}

// ServeUploadHandler handles GET /uploads/:filename
// Serves a stored file (the preview in the document viewer). Names that
// resolve outside the upload directory are reported as missing.
func (h *Handlers) ServeUploadHandler(c *gin.Context) {
	name := c.Param("filename")

	if !security.IsSafeToServe(h.storage.Dir(), name) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Status: "error", Message: "File not found."})
		return
	}
	path := h.storage.Path(name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Status: "error", Message: "File not found."})
		return
	}
	c.File(path)
}

// DeletePreviewHandler handles POST /delete_preview/:filename
// Client-requested cleanup of a preview file once the viewer is done with it.
func (h *Handlers) DeletePreviewHandler(c *gin.Context) {
	name := c.Param("filename")

	if !security.IsSafeToServe(h.storage.Dir(), name) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Status: "error", Message: "Invalid file name"})
		return
	}

	deleted, err := h.storage.Delete(name)
	if err != nil {
		log.Printf("[API] WARNING: could not delete preview %s: %v", name, err)
	}
	if !deleted {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Status: "error", Message: "File not found."})
		return
	}
	c.JSON(http.StatusOK, models.DeleteResponse{Status: "deleted", Filename: name})
}

// GeneratePDFHandler handles POST /generate_pdf
// Renders the (possibly edited) recognized text back into a downloadable PDF.
func (h *Handlers) GeneratePDFHandler(c *gin.Context) {
	editedText := c.PostForm("edited_text")
	downloadName := c.DefaultPostForm("download_name", "scanned_document.pdf")
	pdfFont := c.DefaultPostForm("pdf_font", "Arial")

	if editedText == "" {
		c.String(http.StatusBadRequest, "No text provided for PDF generation.")
		return
	}

	data, err := h.pdfService.Generate(editedText, pdfFont)
	if err != nil {
		log.Printf("[API] ERROR: PDF generation failed: %v", err)
		c.String(http.StatusInternalServerError, "PDF Generation Failed")
		return
	}

	c.SetCookie("last_pdf_title", strings.TrimSuffix(downloadName, ".pdf"), cookieMaxAge, "/", "", false, false)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	c.Data(http.StatusOK, "application/pdf", data)
}

// HealthHandler handles GET /health
func (h *Handlers) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"engine": h.engineStatus,
	})
}
