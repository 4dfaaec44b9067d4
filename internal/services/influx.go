package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/Marjory00/ImageToPDF-App/internal/models"
)

// InfluxService records task telemetry in InfluxDB 2.0. A nil service is a
// valid no-op: telemetry never gates task processing.
type InfluxService struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

// NewInfluxService creates a new InfluxDB 2.0 client and checks its health.
func NewInfluxService(url, token, org, bucket string) (*InfluxService, error) {
	log.Printf("[INFLUX] initializing client: url=%s, org=%s, bucket=%s", url, org, bucket)

	client := influxdb2.NewClient(url, token)

	health, err := client.Health(context.Background())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}
	if health.Status != "pass" {
		log.Printf("[INFLUX] WARNING: health check returned status %s", health.Status)
	}

	return &InfluxService{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		org:      org,
		bucket:   bucket,
	}, nil
}

// RecordTask writes one finished task as a line-protocol point. Telemetry is
// best effort: failures are logged, never returned.
func (s *InfluxService) RecordTask(ctx context.Context, taskID string, status models.TaskStatus, language string, textChars int, duration time.Duration) {
	if s == nil {
		return
	}
	if language == "" {
		language = "none"
	}

	line := fmt.Sprintf("ocr_tasks,status=%s,language=%s task_id=%q,text_chars=%di,duration_ms=%di",
		escapeTagValue(string(status)),
		escapeTagValue(language),
		taskID,
		textChars,
		duration.Milliseconds(),
	)
	if err := s.writeAPI.WriteRecord(ctx, line); err != nil {
		log.Printf("[INFLUX] WARNING: failed to record task %s: %v", taskID, err)
	}
}

// escapeTagValue escapes characters line protocol does not allow in tag values.
func escapeTagValue(value string) string {
	value = strings.ReplaceAll(value, ",", "_")
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "=", "_")
	return value
}

// Close closes the InfluxDB client connection.
func (s *InfluxService) Close() {
	if s != nil && s.client != nil {
		s.client.Close()
	}
}
