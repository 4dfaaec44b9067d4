package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Marjory00/ImageToPDF-App/internal/api"
	"github.com/Marjory00/ImageToPDF-App/internal/config"
	"github.com/Marjory00/ImageToPDF-App/internal/ocr"
	"github.com/Marjory00/ImageToPDF-App/internal/raster"
	"github.com/Marjory00/ImageToPDF-App/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Probe the OCR engine once at startup. An unavailable engine keeps the
	// server up but rejects uploads until it is restarted with one.
	engineStatus := ocr.Probe(context.Background(), cfg.OCR.TesseractCmd)
	if engineStatus.Available {
		log.Printf("[OCR] engine ready: %s", engineStatus.Detail)
	} else {
		log.Printf("[OCR] WARNING: engine unavailable: %s", engineStatus.Detail)
	}

	// Initialize storage
	storage, err := services.NewStorageService(cfg.Upload.Dir)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize InfluxDB telemetry (optional - task metrics only)
	var influxService *services.InfluxService
	if cfg.InfluxDB.URL != "" {
		influxService, err = services.NewInfluxService(
			cfg.InfluxDB.URL,
			cfg.InfluxDB.Token,
			cfg.InfluxDB.Org,
			cfg.InfluxDB.Bucket,
		)
		if err != nil {
			log.Printf("WARNING: Failed to initialize InfluxDB (telemetry disabled): %v", err)
			influxService = nil
		} else {
			defer influxService.Close()
		}
	} else {
		log.Printf("InfluxDB not configured, task telemetry disabled")
	}

	// Initialize the recognition pipeline
	rasterizer := raster.NewRasterizer(cfg.OCR.PdftoppmCmd)
	engine := ocr.NewTesseract(cfg.OCR.TesseractCmd, cfg.OCR.Timeout)
	pipeline := ocr.NewPipeline(rasterizer, engine, ocr.NewSpeller(), engineStatus)

	// Initialize task services
	taskService := services.NewTaskService()
	ocrService := services.NewOCRService(pipeline, rasterizer, taskService, storage, influxService, cfg.OCR.Workers, cfg.Upload.MaxFilenameLength)

	// Start the task eviction scheduler
	janitor := services.NewTaskJanitor(taskService, cfg.OCR.TaskTTL)
	janitor.Start()
	defer janitor.Stop()

	// Initialize handlers
	handlers := api.NewHandlers(cfg, taskService, ocrService, storage, services.NewPDFService(), engineStatus)

	// Setup routes
	router := api.SetupRoutes(handlers)

	// Setup graceful shutdown
	setupGracefulShutdown(influxService, janitor)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupGracefulShutdown handles cleanup on application termination
func setupGracefulShutdown(influxService *services.InfluxService, janitor *services.TaskJanitor) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutting down gracefully...")
		janitor.Stop()
		influxService.Close()
		os.Exit(0)
	}()
}
