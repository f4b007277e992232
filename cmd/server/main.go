package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"

	"github.com/sannux/pixelguard/internal/cache"
	"github.com/sannux/pixelguard/internal/config"
	"github.com/sannux/pixelguard/internal/detectors"
	"github.com/sannux/pixelguard/internal/httpapi"
	"github.com/sannux/pixelguard/internal/llm"
	"github.com/sannux/pixelguard/internal/metadata"
	"github.com/sannux/pixelguard/internal/metrics"
	"github.com/sannux/pixelguard/internal/orchestrator"
	"github.com/sannux/pixelguard/internal/qrcode"
	"github.com/sannux/pixelguard/internal/qrengine"
	"github.com/sannux/pixelguard/internal/ratelimit"
	"github.com/sannux/pixelguard/internal/resolver"
	"github.com/sannux/pixelguard/internal/threat"
)

func main() {
	cfg := config.Load()

	level := log.InfoLevel
	switch cfg.Logging.Level {
	case "debug":
		level = log.DebugLevel
	case "warn":
		level = log.WarnLevel
	case "error":
		level = log.ErrorLevel
	}
	logger := &log.Logger{
		Handler: json.New(os.Stderr),
		Level:   level,
	}

	metrics.Register()

	// Initialize cache backend
	var urlCache cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		logger.WithField("addr", cfg.Cache.RedisAddr).Info("using Redis cache backend")
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:   cfg.Cache.RedisAddr,
			Prefix: "pixelguard:",
		}, cfg.Cache.TTL)
		if err != nil {
			logger.WithError(err).Error("failed to connect to Redis, falling back to memory cache")
			urlCache = cache.NewMemory(cfg.Cache.TTL)
		} else {
			urlCache = redisCache
		}
	default:
		logger.Info("using in-memory cache backend")
		urlCache = cache.NewMemory(cfg.Cache.TTL)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := ratelimit.New(cfg.Resolver.RateLimitDur)
	urlResolver := resolver.New(resolver.Config{
		MaxHops:    cfg.Resolver.MaxHops,
		HopTimeout: cfg.Resolver.HopTimeout,
		CacheTTL:   cfg.Cache.TTL,
	}, limiter, urlCache, logger)
	analyzer := threat.NewAnalyzer(urlResolver, logger)
	decoder := qrcode.NewZXingDecoder()
	engine := qrengine.New(decoder, analyzer, logger)

	rekognitionClient, err := detectors.NewRekognitionClient(ctx, cfg.Detection.AWSRegion)
	if err != nil {
		logger.WithError(err).Error("failed to initialize Rekognition client")
		os.Exit(1)
	}

	llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)

	orch := orchestrator.New(orchestrator.Config{
		Objects:     detectors.NewRekognitionObjectDetector(rekognitionClient, float32(cfg.Detection.LabelMinConfidence)),
		Faces:       detectors.NewRekognitionFaceDetector(rekognitionClient),
		NSFW:        detectors.NewRekognitionNSFWClassifier(rekognitionClient, float32(cfg.Detection.NSFWMinConfidence)),
		QR:          engine,
		Metadata:    metadata.NewExifExtractor(),
		LLM:         llmClient,
		Logger:      logger,
		TaskTimeout: cfg.Detection.TaskTimeout,
	})

	analyzeAPI := httpapi.NewAnalyzeAPI(orch, decoder, llmClient, logger, cfg.Server.RequestTimeout)
	server := httpapi.New(analyzeAPI, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down...")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("server shutdown error")
		}
		cancel()
	}()

	logger.WithField("addr", cfg.Server.HTTPAddr).Info("starting HTTP server")
	if err := server.Start(cfg.Server.HTTPAddr); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Error("HTTP server error")
		os.Exit(1)
	}
}
