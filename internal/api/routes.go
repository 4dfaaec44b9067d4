package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Marjory00/ImageToPDF-App/internal/services"
)

// SetupRoutes configures all API routes
func SetupRoutes(handlers *Handlers) *gin.Engine {
	router := gin.Default()

	// Expire stored files before handling each request, the same pass that
	// also reclaims previews nobody deleted.
	router.Use(sweepMiddleware(handlers.storage, handlers.cfg.Upload.RetentionAge))

	router.POST("/upload", handlers.UploadHandler)
	router.GET("/status/:task_id", handlers.StatusHandler)
	router.GET("/uploads/:filename", handlers.ServeUploadHandler)
	router.POST("/delete_preview/:filename", handlers.DeletePreviewHandler)
	router.POST("/generate_pdf", handlers.GeneratePDFHandler)

	// Health check endpoint
	router.GET("/health", handlers.HealthHandler)

	return router
}

// sweepMiddleware deletes stored files older than maxAge
func sweepMiddleware(storage *services.StorageService, maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		storage.Sweep(maxAge)
		c.Next()
	}
}
