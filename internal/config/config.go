package config

import (
	"os"
	"strconv"
	"strings"
)

// Config centralizes runtime settings for the API and the translation
// worker pool.
type Config struct {
	Port string

	DeepSeekAPIKey        string
	DeepSeekBaseURL       string
	DeepSeekModel         string
	DeepSeekFallbackModel string
	DeepSeekTimeoutMS     int
	DeepSeekMaxRetries    int
	Temperature           float64
	MaxOutputTokens       int
	DefaultPromptPath     string

	SourceLang string
	TargetLang string

	MaxSegmentChars int
	MaxContextChars int
	MaxUploadBytes  int64

	WorkerPoolSize    int
	TaskQueueCapacity int
	BackendRPS        float64
	BackendBurst      int

	JobWatchdogSeconds    int
	JobRetentionSeconds   int
	RetentionSweepSeconds int

	DatabaseURL string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTLSeconds int
	CacheMaxEntries int
	CacheKeyPrefix  string

	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "5000"),

		DeepSeekAPIKey:        getEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekBaseURL:       getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
		DeepSeekModel:         getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		DeepSeekFallbackModel: getEnv("DEEPSEEK_FALLBACK_MODEL", ""),
		DeepSeekTimeoutMS:     getEnvInt("DEEPSEEK_TIMEOUT_MS", 60000),
		DeepSeekMaxRetries:    getEnvInt("DEEPSEEK_MAX_RETRIES", 3),
		Temperature:           getEnvFloat("TRANSLATION_TEMPERATURE", 0.3),
		MaxOutputTokens:       getEnvInt("TRANSLATION_MAX_OUTPUT_TOKENS", 8000),
		DefaultPromptPath:     getEnv("DEFAULT_PROMPT_PATH", "default_prompt.txt"),

		SourceLang: getEnv("SOURCE_LANG", "auto"),
		TargetLang: getEnv("TARGET_LANG", "ru"),

		MaxSegmentChars: getEnvInt("MAX_SEGMENT_CHARS", 4000),
		MaxContextChars: getEnvInt("MAX_CONTEXT_CHARS", 1000),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_BYTES", 50<<20)),

		WorkerPoolSize:    getEnvInt("WORKER_POOL_SIZE", 40),
		TaskQueueCapacity: getEnvInt("TASK_QUEUE_CAPACITY", 1024),
		BackendRPS:        getEnvFloat("BACKEND_RPS", 0),
		BackendBurst:      getEnvInt("BACKEND_BURST", 0),

		JobWatchdogSeconds:    getEnvInt("JOB_WATCHDOG_SECONDS", 180),
		JobRetentionSeconds:   getEnvInt("JOB_RETENTION_SECONDS", 3600),
		RetentionSweepSeconds: getEnvInt("RETENTION_SWEEP_SECONDS", 60),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 86400),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 10000),
		CacheKeyPrefix:  getEnv("CACHE_KEY_PREFIX", "translate:segment:"),

		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
