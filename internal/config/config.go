package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Cache     CacheConfig
	Resolver  ResolverConfig
	Detection DetectionConfig
	LLM       LLMConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr       string
	RequestTimeout time.Duration
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// ResolverConfig holds URL resolver configuration
type ResolverConfig struct {
	MaxHops      int
	HopTimeout   time.Duration
	RateLimitDur time.Duration
}

// DetectionConfig holds external detector settings.
type DetectionConfig struct {
	AWSRegion          string
	LabelMinConfidence float64
	NSFWMinConfidence  float64
	TaskTimeout        time.Duration
}

// LLMConfig holds vision LLM settings.
type LLMConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	cfg := &Config{}

	// Define flags with defaults
	httpAddr := flag.String("http", ":8000", "HTTP server address")
	requestTimeout := flag.Duration("request-timeout", 60*time.Second, "Per-request detection timeout")
	cacheTTL := flag.Duration("cache-ttl", 10*time.Minute, "Cache TTL for resolved URLs")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	maxHops := flag.Int("max-hops", 5, "Maximum redirect hops to follow")
	hopTimeout := flag.Duration("hop-timeout", 5*time.Second, "Per-hop timeout for URL resolution")
	rateLimitDur := flag.Duration("rate-limit", time.Second, "Minimum delay between requests to same host")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")

	flag.Parse()

	// Apply environment variable overrides
	applyEnvOverrides(httpAddr, requestTimeout, cacheTTL, cacheBackend, redisAddr, maxHops, hopTimeout, rateLimitDur, logLevel)

	// Build config struct
	cfg.Server = ServerConfig{
		HTTPAddr:       *httpAddr,
		RequestTimeout: *requestTimeout,
	}

	cfg.Cache = CacheConfig{
		Backend:   *cacheBackend,
		TTL:       *cacheTTL,
		RedisAddr: *redisAddr,
	}

	cfg.Resolver = ResolverConfig{
		MaxHops:      *maxHops,
		HopTimeout:   *hopTimeout,
		RateLimitDur: *rateLimitDur,
	}

	cfg.Logging = LoggingConfig{
		Level: *logLevel,
	}

	// Load detection config from environment
	cfg.Detection = loadDetectionConfig()

	// Load LLM config from environment
	cfg.LLM = loadLLMConfig()

	return cfg
}

func loadDetectionConfig() DetectionConfig {
	labelConfidence := 55.0
	if v := os.Getenv("LABEL_MIN_CONFIDENCE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			labelConfidence = parsed
		}
	}

	nsfwConfidence := 70.0
	if v := os.Getenv("NSFW_MIN_CONFIDENCE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			nsfwConfidence = parsed
		}
	}

	taskTimeout := 30 * time.Second
	if v := os.Getenv("DETECTION_TASK_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			taskTimeout = parsed
		}
	}

	return DetectionConfig{
		AWSRegion:          os.Getenv("AWS_REGION"),
		LabelMinConfidence: labelConfidence,
		NSFWMinConfidence:  nsfwConfidence,
		TaskTimeout:        taskTimeout,
	}
}

func loadLLMConfig() LLMConfig {
	timeout := 60 * time.Second
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			timeout = parsed
		}
	}

	return LLMConfig{
		APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		Model:   os.Getenv("LLM_MODEL"),
		Timeout: timeout,
	}
}

func applyEnvOverrides(
	httpAddr *string,
	requestTimeout *time.Duration,
	cacheTTL *time.Duration,
	cacheBackend *string,
	redisAddr *string,
	maxHops *int,
	hopTimeout *time.Duration,
	rateLimitDur *time.Duration,
	logLevel *string,
) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*requestTimeout = d
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*cacheTTL = d
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("MAX_HOPS"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			*maxHops = p
		}
	}
	if v := os.Getenv("HOP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*hopTimeout = d
		}
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*rateLimitDur = d
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
}
