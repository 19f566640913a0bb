package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	whispen "Whispen"
	"Whispen/internal/audio"
	handlers "Whispen/internal/handler"
	"Whispen/internal/service"
	"Whispen/internal/summary"
	"Whispen/internal/transcribe"
	"Whispen/pkg/cache"
	"Whispen/pkg/config"
	"Whispen/pkg/i18n"
	"Whispen/pkg/llm"
	"Whispen/pkg/logger"
	"Whispen/pkg/metrics"
	"Whispen/pkg/middleware"
	"Whispen/pkg/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := logger.Init(cfg.Log, cfg.Mode); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger.Lg); err != nil {
		logger.Error("whispen stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	lg.Info("starting "+whispen.Name,
		zap.String("version", whispen.Version),
		zap.String("addr", cfg.Addr),
		zap.String("temp_folder", cfg.Storage.TempFolder),
		zap.Strings("cors_origins", cfg.CORSOrigins),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_endpoint", cfg.LLM.Endpoint))

	tr, err := i18n.NewI18nSupport("fr")
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	files, err := audio.NewManager(audio.Config{
		Root:              cfg.Storage.TempFolder,
		MaxBytes:          cfg.Storage.MaxFileSizeBytes(),
		AllowedExtensions: cfg.Storage.Extensions(),
		Retention:         cfg.Storage.Retention(),
	}, lg)
	if err != nil {
		return fmt.Errorf("temp storage: %w", err)
	}

	engine, closeEngine, err := buildEngine(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeEngine()

	chatClient, err := llm.NewClient(llm.Config{
		Provider:   cfg.LLM.Provider,
		Endpoint:   cfg.LLM.Endpoint,
		APIKey:     cfg.LLM.APIKey,
		APIVersion: cfg.LLM.APIVersion,
	})
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}
	chat := llm.NewOpenAIHandler(chatClient, llm.Config{
		Model:       cfg.LLM.Deployment,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, lg.Named("llm"))

	svc := service.New(files,
		transcribe.NewTranscriber(engine, m, lg),
		summary.NewGenerator(chat, m, lg),
		m, lg, service.Options{MinChars: cfg.LLM.MinChars})

	if n := svc.Sweep(0); n > 0 {
		lg.Info("removed stale files on startup", zap.Int("deleted", n))
	}

	sched := scheduler.New()
	defer sched.Stop()
	sched.OnceAfter(0, scheduler.FuncJob(func(ctx context.Context) {
		if svc.CheckConnectivity(ctx) {
			lg.Info("llm connection ok", zap.String("model", chat.Model()))
		} else {
			lg.Warn("llm connection failed", zap.String("model", chat.Model()))
		}
	}))

	cr := scheduler.NewCron(time.Local, lg)
	if _, err := cr.Add(cfg.Storage.SweepSchedule, scheduler.FuncJob(func(context.Context) {
		svc.Sweep(0)
	})); err != nil {
		return fmt.Errorf("invalid SWEEP_SCHEDULE %q: %w", cfg.Storage.SweepSchedule, err)
	}
	cr.Start()
	defer cr.Stop()

	monitor := metrics.NewSystemMonitor(files.Root(), cfg.MonitorInterval, m)
	monitor.Start()
	defer monitor.Stop()

	healthCache, err := cache.NewCache(cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer healthCache.Close()

	var store limiter.Store
	if rb, ok := healthCache.(cache.RedisBacked); ok {
		if store, err = middleware.NewRedisStore(rb.Client(), cfg.Cache.Redis.KeyPrefix+"limiter"); err != nil {
			return fmt.Errorf("rate limiter store: %w", err)
		}
	}

	gin.SetMode(ginMode(cfg.Mode))
	r := gin.New()

	var h *handlers.Handlers
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate: cfg.RateLimit,
		PerRouteRates: map[string]string{
			cfg.APIPrefix + "/transcription/upload": cfg.RateLimitUpload,
		},
		Identifier:     "ip+route",
		WhitelistCIDRs: cfg.RateLimitWhitelist,
		AddHeaders:     true,
		DenyHandler:    func(c *gin.Context) { h.TooManyRequests(c) },
	}, store).WithObserver(middleware.NewPrometheusObserver(m))

	h = handlers.NewHandlers(svc, tr, lg, handlers.Options{
		APIPrefix: cfg.APIPrefix,
		Cache:     healthCache,
		HealthTTL: cfg.HealthCacheTTL,
		Monitor:   monitor,
		Gatherer:  reg,
		RateLimit: rl.Middleware(),
	})

	r.Use(
		h.Recovery(),
		middleware.RequestLogMiddleware(lg.Named("access")),
		metrics.MonitorMiddleware(m),
		middleware.CORSMiddleware(cfg.CORSOrigins),
		middleware.LanguageMiddleware(tr),
	)
	h.Register(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		lg.Info("http server listening", zap.String("addr", cfg.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		lg.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// buildEngine creates the configured transcription engine. A local engine
// that fails to initialize stops the process.
func buildEngine(ctx context.Context, cfg *config.Config, lg *zap.Logger) (transcribe.Engine, func(), error) {
	var local, remote transcribe.Engine
	closeFn := func() {}

	if cfg.Whisper.Enabled {
		fw, err := transcribe.NewFasterWhisper(ctx, transcribe.FasterWhisperConfig{
			Python:      cfg.Whisper.Python,
			ModelSize:   cfg.Whisper.ModelSize,
			Device:      cfg.Whisper.Device,
			ComputeType: cfg.Whisper.ComputeType,
			LoadTimeout: cfg.Whisper.LoadTimeout,
		}, lg.Named("faster-whisper"))
		if err != nil {
			return nil, nil, fmt.Errorf("local whisper: %w", err)
		}
		local = transcribe.NewLocalEngine(fw)
		closeFn = func() {
			if err := fw.Close(); err != nil {
				lg.Warn("remove faster-whisper helper", zap.Error(err))
			}
		}
	}
	if cfg.Remote.Enabled {
		client := transcribe.NewOpenAIClient(cfg.Remote.APIKey, cfg.Remote.BaseURL)
		remote = transcribe.NewRemoteEngine(client, cfg.Remote.Model)
	}

	engine := transcribe.Select(local, remote)
	if transcribe.Available(engine) {
		lg.Info("transcription backend selected", zap.String("backend", engine.Name()))
	} else {
		lg.Warn("no transcription backend configured; uploads will fail",
			zap.Bool("use_local_whisper", cfg.Whisper.Enabled),
			zap.Bool("use_openai_whisper", cfg.Remote.Enabled))
	}
	return engine, closeFn, nil
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}
