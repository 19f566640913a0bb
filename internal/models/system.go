package models

import "time"

// Service status values.
const (
	StatusHealthy     = "healthy"
	StatusDegraded    = "degraded"
	StatusOperational = "operational"
	StatusUnavailable = "unavailable"
)

// TempStorage reports the temp folder and its filesystem.
type TempStorage struct {
	Path         string  `json:"path"`
	RetentionH   float64 `json:"retention_hours"`
	FreeBytes    uint64  `json:"free_bytes"`
	UsagePercent float64 `json:"usage_percent"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status               string      `json:"status"`
	Version              string      `json:"version"`
	LLMConnected         bool        `json:"llm_connected"`
	TranscriptionBackend string      `json:"transcription_backend"`
	TempStorage          TempStorage `json:"temp_storage"`
	Timestamp            time.Time   `json:"timestamp"`
}

// ComponentHealth is returned by the per-module health endpoints.
type ComponentHealth struct {
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Backend   string    `json:"backend,omitempty"`
	Connected bool      `json:"connected"`
	Timestamp time.Time `json:"timestamp"`
}

// RootResponse describes the API.
type RootResponse struct {
	Name          string            `json:"name"`
	Version       string            `json:"version"`
	Description   string            `json:"description"`
	Health        string            `json:"health"`
	Metrics       string            `json:"metrics"`
	Endpoints     map[string]string `json:"endpoints"`
	MaxUploadMB   int64             `json:"max_upload_mb"`
	Formats       []string          `json:"formats"`
	SummaryStyles []string          `json:"summary_styles"`
}
