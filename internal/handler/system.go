package handlers

import (
	"time"

	whispen "Whispen"
	"Whispen/internal/models"
	"Whispen/internal/summary"
	"Whispen/pkg/metrics"
	"Whispen/pkg/response"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) now() time.Time { return time.Now().UTC() }

func (h *Handlers) handleRoot(c *gin.Context) {
	files := h.svc.Files()
	response.Success(c, models.RootResponse{
		Name:        whispen.Name,
		Version:     whispen.Version,
		Description: "Meeting transcription and summary API",
		Health:      "/health",
		Metrics:     "/metrics",
		Endpoints: map[string]string{
			"transcription": h.opts.APIPrefix + "/transcription/upload",
			"summary":       h.opts.APIPrefix + "/summary/generate",
			"quick_summary": h.opts.APIPrefix + "/summary/quick",
		},
		MaxUploadMB:   files.MaxBytes() / (1024 * 1024),
		Formats:       files.AllowedExtensions(),
		SummaryStyles: summary.Styles(),
	})
}

// handleHealth is healthy when the summary model answers and degraded
// otherwise. It always answers 200.
func (h *Handlers) handleHealth(c *gin.Context) {
	connected := h.llmConnected(c.Request.Context())

	status := models.StatusHealthy
	if !connected {
		status = models.StatusDegraded
	}

	files := h.svc.Files()
	disk := h.diskStats(files.Root())

	response.Success(c, models.HealthResponse{
		Status:               status,
		Version:              whispen.Version,
		LLMConnected:         connected,
		TranscriptionBackend: h.svc.Backend(),
		TempStorage: models.TempStorage{
			Path:         files.Root(),
			RetentionH:   files.Retention().Hours(),
			FreeBytes:    disk.Free,
			UsagePercent: disk.UsagePercent,
		},
		Timestamp: h.now(),
	})
}

func (h *Handlers) diskStats(root string) metrics.DiskStats {
	if h.opts.Monitor != nil {
		if s := h.opts.Monitor.GetLatestStats(); s != nil {
			return s.Disk
		}
	}
	return metrics.DiskUsage(root)
}
