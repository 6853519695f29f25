package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database (optional — when empty, finished episodes are not archived)
	DatabaseURL string

	// Redis (optional — when empty, jobs start in-process at submission)
	RedisURL string

	// Providers
	TextProvider   string // openai | openrouter | gemini | mock
	SpeechProvider string // gemini | elevenlabs | mock
	TextModel      string // Override the backend's default text model
	SpeechModel    string // Override the backend's default speech model

	OpenAIKey         string
	OpenRouterKey     string
	OpenRouterBaseURL string
	GeminiKey         string
	ElevenLabsKey     string

	// Generation
	WordsPerMinute      float64
	SegmentPauseSec     float64
	DurationTolerance   float64
	FitMaxIterations    int
	CoordinationStrict  bool // Fail multi-agent jobs on an incomplete coordination round
	SynthConcurrency    int
	ProviderMaxAttempts int

	// Worker
	MaxConcurrentJobs int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),

		TextProvider:   getEnv("TEXT_PROVIDER", "openai"),
		SpeechProvider: getEnv("SPEECH_PROVIDER", "gemini"),
		TextModel:      getEnv("TEXT_MODEL", ""),
		SpeechModel:    getEnv("SPEECH_MODEL", ""),

		OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenRouterKey:     getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", ""),
		GeminiKey:         getEnv("GEMINI_API_KEY", ""),
		ElevenLabsKey:     getEnv("ELEVENLABS_API_KEY", ""),

		WordsPerMinute:      getEnvFloat("WORDS_PER_MINUTE", 150),
		SegmentPauseSec:     getEnvFloat("SEGMENT_PAUSE_SEC", 0.5),
		DurationTolerance:   getEnvFloat("DURATION_TOLERANCE", 0.03),
		FitMaxIterations:    getEnvInt("FIT_MAX_ITERATIONS", 5),
		CoordinationStrict:  getEnvBool("COORDINATION_STRICT", false),
		SynthConcurrency:    getEnvInt("SYNTH_CONCURRENCY", 4),
		ProviderMaxAttempts: getEnvInt("PROVIDER_MAX_ATTEMPTS", 3),

		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 5),
	}

	// Validate provider keys for the selected backends. The mock backends
	// need no credentials.
	switch cfg.TextProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when TEXT_PROVIDER=openai")
		}
	case "openrouter":
		if cfg.OpenRouterKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY is required when TEXT_PROVIDER=openrouter")
		}
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when TEXT_PROVIDER=gemini")
		}
	case "mock":
	default:
		return nil, fmt.Errorf("unknown TEXT_PROVIDER %q", cfg.TextProvider)
	}

	switch cfg.SpeechProvider {
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when SPEECH_PROVIDER=gemini")
		}
	case "elevenlabs":
		if cfg.ElevenLabsKey == "" {
			return nil, fmt.Errorf("ELEVENLABS_API_KEY is required when SPEECH_PROVIDER=elevenlabs")
		}
	case "mock":
	default:
		return nil, fmt.Errorf("unknown SPEECH_PROVIDER %q", cfg.SpeechProvider)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
