package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkovalev/novel-translate-back/internal/cache"
	"github.com/dkovalev/novel-translate-back/internal/config"
	httpserver "github.com/dkovalev/novel-translate-back/internal/http"
	"github.com/dkovalev/novel-translate-back/internal/http/handlers"
	"github.com/dkovalev/novel-translate-back/internal/quality"
	"github.com/dkovalev/novel-translate-back/internal/registry"
	"github.com/dkovalev/novel-translate-back/internal/service"
	"github.com/dkovalev/novel-translate-back/internal/translator"
	"github.com/dkovalev/novel-translate-back/internal/worker"
)

func main() {
	logger := log.New(os.Stdout, "[translate-back] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, registryCloser := setupRegistry(ctx, cfg, logger)
	defer registryCloser()

	translationCache, cacheCloser := setupCache(ctx, cfg, logger)
	defer cacheCloser()

	backend := translator.NewDeepSeekClient(translator.DeepSeekClientConfig{
		APIKey:          cfg.DeepSeekAPIKey,
		BaseURL:         cfg.DeepSeekBaseURL,
		Model:           cfg.DeepSeekModel,
		FallbackModel:   cfg.DeepSeekFallbackModel,
		Timeout:         time.Duration(cfg.DeepSeekTimeoutMS) * time.Millisecond,
		MaxRetries:      cfg.DeepSeekMaxRetries,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
		DefaultPrompt:   loadDefaultPrompt(cfg.DefaultPromptPath, logger),
	})
	if !backend.Available() {
		logger.Printf("DEEPSEEK_API_KEY not configured, translation jobs will fail")
	}

	pool := worker.NewPool(worker.PoolConfig{
		Size:          cfg.WorkerPoolSize,
		QueueCapacity: cfg.TaskQueueCapacity,
		BackendRPS:    cfg.BackendRPS,
		BackendBurst:  cfg.BackendBurst,
	}, worker.PoolDependencies{
		Translator: backend,
		Cache:      translationCache,
		Validator:  quality.NewValidator(quality.ValidatorConfig{}),
		Logger:     logger,
	})
	pool.Start(ctx)

	coordinator := worker.NewCoordinator(reg, pool, worker.CoordinatorConfig{
		Watchdog: time.Duration(cfg.JobWatchdogSeconds) * time.Second,
	}, logger)

	translationService := service.NewTranslationService(service.Config{
		MaxSegmentChars: cfg.MaxSegmentChars,
		MaxContextChars: cfg.MaxContextChars,
		SourceLang:      cfg.SourceLang,
		TargetLang:      cfg.TargetLang,
	}, service.Dependencies{
		Registry:    reg,
		Coordinator: coordinator,
		RunContext:  ctx,
		Logger:      logger,
	})

	go runRetentionSweeper(ctx, reg, cfg, logger)

	api := handlers.NewAPI(translationService, cfg.MaxUploadBytes, logger)
	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

func setupRegistry(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (registry.Registry, func()) {
	if cfg.DatabaseURL == "" {
		logger.Printf("DATABASE_URL not configured, using in-memory registry")
		return registry.NewMemoryRegistry(), func() {}
	}

	pgRegistry, err := registry.NewPostgresRegistry(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Printf("failed to initialize postgres registry, fallback to memory: %v", err)
		return registry.NewMemoryRegistry(), func() {}
	}
	logger.Printf("postgres registry initialized")
	return pgRegistry, func() {
		pgRegistry.Close()
	}
}

func setupCache(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (cache.Cache, func()) {
	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, using in-memory translation cache")
		return cache.NewMemoryCache(cache.MemoryConfig{
			TTL:        time.Duration(cfg.CacheTTLSeconds) * time.Second,
			MaxEntries: cfg.CacheMaxEntries,
		}), func() {}
	}

	redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		TTL:       time.Duration(cfg.CacheTTLSeconds) * time.Second,
		KeyPrefix: cfg.CacheKeyPrefix,
	}, logger)
	if err != nil {
		logger.Printf("failed to initialize redis cache, fallback to memory: %v", err)
		return cache.NewMemoryCache(cache.MemoryConfig{
			TTL:        time.Duration(cfg.CacheTTLSeconds) * time.Second,
			MaxEntries: cfg.CacheMaxEntries,
		}), func() {}
	}
	logger.Printf("redis translation cache initialized")
	return redisCache, func() {
		_ = redisCache.Close()
	}
}

func runRetentionSweeper(ctx context.Context, reg registry.Registry, cfg config.Config, logger *log.Logger) {
	interval := time.Duration(cfg.RetentionSweepSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	retention := time.Duration(cfg.JobRetentionSeconds) * time.Second
	if retention <= 0 {
		retention = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted, err := reg.Evict(ctx, retention)
			if err != nil {
				logger.Printf("retention sweep failed: %v", err)
				continue
			}
			if evicted > 0 {
				logger.Printf("retention sweep evicted %d jobs", evicted)
			}
		}
	}
}

func loadDefaultPrompt(path string, logger *log.Logger) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Printf("default prompt file not loaded (%v), using builtin prompt", err)
		return ""
	}
	logger.Printf("loaded default prompt from %s", path)
	return string(data)
}
