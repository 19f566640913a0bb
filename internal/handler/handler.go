package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"Whispen/internal/service"
	"Whispen/pkg/cache"
	"Whispen/pkg/errors"
	"Whispen/pkg/i18n"
	"Whispen/pkg/metrics"
	"Whispen/pkg/middleware"
	"Whispen/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const llmHealthKey = "health:llm_connected"

// multipartOverhead is allowed on top of the file size for headers and
// form fields.
const multipartOverhead = 1 << 20

// Options wires the optional collaborators of Handlers.
type Options struct {
	APIPrefix string
	// Cache holds connectivity results for HealthTTL. Nil disables caching.
	Cache     cache.Cache
	HealthTTL time.Duration
	// Monitor provides disk usage of the temp folder. Nil samples on demand.
	Monitor *metrics.SystemMonitor
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// RateLimit guards the transcription and summary routes.
	RateLimit gin.HandlerFunc
}

type Handlers struct {
	svc    *service.Service
	i18n   *i18n.I18nSupport
	logger *zap.Logger
	opts   Options
}

func NewHandlers(svc *service.Service, tr *i18n.I18nSupport, logger *zap.Logger, opts Options) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}
	return &Handlers{
		svc:    svc,
		i18n:   tr,
		logger: logger.Named("http"),
		opts:   opts,
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	h.registerSystemRoutes(engine)

	r := engine.Group(h.opts.APIPrefix)
	h.registerTranscriptionRoutes(r)
	h.registerSummaryRoutes(r)

	engine.NoRoute(h.handleNotFound)
}

func (h *Handlers) registerSystemRoutes(engine *gin.Engine) {
	engine.GET("/", h.handleRoot)

	engine.GET("/health", h.handleHealth)

	if h.opts.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.opts.Gatherer, promhttp.HandlerOpts{})))
	}
}

func (h *Handlers) registerTranscriptionRoutes(r *gin.RouterGroup) {
	transcription := r.Group("transcription")
	{
		transcription.POST("/upload", h.limited(h.handleUpload)...)

		transcription.GET("/health", h.handleTranscriptionHealth)
	}
}

func (h *Handlers) registerSummaryRoutes(r *gin.RouterGroup) {
	summary := r.Group("summary")
	{
		summary.POST("/generate", h.limited(h.handleGenerateSummary)...)

		summary.POST("/quick", h.limited(h.handleQuickSummary)...)

		summary.GET("/health", h.handleSummaryHealth)
	}
}

func (h *Handlers) limited(handler gin.HandlerFunc) []gin.HandlerFunc {
	if h.opts.RateLimit == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{h.opts.RateLimit, handler}
}

// TooManyRequests is the rate limiter's rejection.
func (h *Handlers) TooManyRequests(c *gin.Context) {
	response.Fail(c, http.StatusTooManyRequests, h.t(c, "rate_limited", nil), "")
}

// Recovery turns panics into a 500 response.
func (h *Handlers) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"))
		response.Fail(c, http.StatusInternalServerError, h.t(c, "internal_error", nil), "")
	})
}

func (h *Handlers) t(c *gin.Context, key string, data map[string]interface{}) string {
	return h.i18n.T(middleware.Lang(c), key, data)
}

// fail maps err to a status and a localized message.
func (h *Handlers) fail(c *gin.Context, err error) {
	kind := errors.KindOf(err)
	status := kind.Status()

	var msg string
	switch kind {
	case errors.KindPayloadTooLarge:
		msg = h.t(c, "file_too_large", map[string]interface{}{"MaxMB": h.svc.Files().MaxBytes() / (1024 * 1024)})
	case errors.KindUnsupportedMediaType:
		msg = h.t(c, "unsupported_format", map[string]interface{}{"Formats": strings.Join(h.svc.Files().AllowedExtensions(), ", ")})
	case errors.KindTextTooShort:
		msg = h.t(c, "text_too_short", map[string]interface{}{"Min": h.svc.MinChars()})
	case errors.KindBadRequest:
		msg = h.t(c, "bad_request", nil)
	case errors.KindStorage:
		msg = h.t(c, "storage_error", nil)
	case errors.KindNoBackendAvailable:
		msg = h.t(c, "no_backend", nil)
	case errors.KindTranscriptionFailed:
		msg = h.t(c, "transcription_failed", nil)
	case errors.KindSummarizationFailed:
		msg = h.t(c, "summary_failed", nil)
	default:
		msg = h.t(c, "internal_error", nil)
	}

	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("kind", string(kind)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if e, ok := errors.As(err); ok {
		for k, v := range e.ContextMap() {
			fields = append(fields, zap.String(k, v))
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", append(fields, zap.String("stack", errors.GetStack(err)))...)
	} else {
		h.logger.Warn("request rejected", fields...)
	}

	_ = c.Error(err)
	response.Fail(c, status, msg, err.Error())
}

// llmConnected returns the cached connectivity result, probing on a miss.
func (h *Handlers) llmConnected(ctx context.Context) bool {
	if h.opts.Cache != nil {
		if v, ok := h.opts.Cache.Get(ctx, llmHealthKey); ok {
			if connected, ok := v.(bool); ok {
				return connected
			}
		}
	}

	connected := h.svc.CheckConnectivity(ctx)

	if h.opts.Cache != nil {
		if err := h.opts.Cache.Set(ctx, llmHealthKey, connected, h.opts.HealthTTL); err != nil {
			h.logger.Warn("cache health result", zap.Error(err))
		}
	}
	return connected
}

func (h *Handlers) handleNotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, response.ErrorBody{
		Error:     h.t(c, "route_not_found", nil),
		Detail:    h.t(c, "route_not_found_detail", map[string]interface{}{"Path": c.Request.URL.Path}),
		Timestamp: time.Now().UTC(),
	})
}
