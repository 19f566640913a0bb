package handlers

import (
	"net/http"

	"Whispen/internal/models"
	"Whispen/internal/service"
	"Whispen/pkg/errors"
	"Whispen/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func (h *Handlers) handleGenerateSummary(c *gin.Context) {
	var req models.SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errors.WrapKind(err, errors.KindBadRequest, "invalid summary request"))
		return
	}

	out, err := h.svc.Summarize(c.Request.Context(), service.SummaryRequest{
		Text:     req.TranscriptionText,
		Style:    req.SummaryType,
		Language: req.Language,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, models.NewSummaryResponse(out))
}

// handleQuickSummary reads its parameters from the query string or a form
// body and always uses the short style.
func (h *Handlers) handleQuickSummary(c *gin.Context) {
	var req models.QuickSummaryRequest
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		h.fail(c, errors.WrapKind(err, errors.KindBadRequest, "invalid quick summary request"))
		return
	}

	out, err := h.svc.QuickSummary(c.Request.Context(), req.TranscriptionText, req.Language)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, models.NewSummaryResponse(out))
}

func (h *Handlers) handleSummaryHealth(c *gin.Context) {
	connected := h.llmConnected(c.Request.Context())

	body := models.ComponentHealth{
		Service:   "summary",
		Status:    models.StatusOperational,
		Connected: connected,
		Timestamp: h.now(),
	}
	status := http.StatusOK
	if !connected {
		body.Status = models.StatusUnavailable
		status = http.StatusServiceUnavailable
	}
	response.JSON(c, status, body)
}
