// Package config provides application-wide configuration loaded from env vars.
// All fields have safe defaults so the binary runs locally without any env setup.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration for diaflow.
type Config struct {
	// LLM
	LLMProvider   string // LLM_PROVIDER, default: "ollama"
	OllamaBaseURL string // OLLAMA_BASE_URL, default: "http://localhost:11434"
	OllamaModel   string // OLLAMA_MODEL, default: "llama3.2:3b"
	GeminiBaseURL string // GEMINI_BASE_URL, default: Google generative language API
	GeminiAPIKey  string // GEMINI_API_KEY, no default
	GeminiModel   string // GEMINI_MODEL, default: "gemini-2.0-flash"

	// Validator
	ValidatorURL string // VALIDATOR_URL, default: "http://localhost:8090"

	// Storage
	SQLitePath string        // SQLITE_PATH, default: "diaflow.db"
	RedisAddr  string        // REDIS_ADDR, empty disables the completion cache
	CacheTTL   time.Duration // CACHE_TTL_SECONDS, default: 1h

	// Generation pipeline
	DefaultCredits    int           // QUOTA_DEFAULT_CREDITS, credits granted to a new user
	SettleDelay       time.Duration // SETTLE_DELAY_MS, delay before the first partial emission
	PacingDelay       time.Duration // PACING_DELAY_MS, delay after each partial flush
	GenerationTimeout time.Duration // GENERATION_TIMEOUT_SECONDS, wall-clock budget per logical request
	BaseTemperature   float32       // BASE_TEMPERATURE, sampling temperature for the first attempt
}

const (
	envKeyLLMProvider    = "LLM_PROVIDER"
	envKeyOllamaBaseURL  = "OLLAMA_BASE_URL"
	envKeyOllamaModel    = "OLLAMA_MODEL"
	envKeyGeminiBaseURL  = "GEMINI_BASE_URL"
	envKeyGeminiAPIKey   = "GEMINI_API_KEY"
	envKeyGeminiModel    = "GEMINI_MODEL"
	envKeyValidatorURL   = "VALIDATOR_URL"
	envKeySQLitePath     = "SQLITE_PATH"
	envKeyRedisAddr      = "REDIS_ADDR"
	envKeyCacheTTL       = "CACHE_TTL_SECONDS"
	envKeyDefaultCredits = "QUOTA_DEFAULT_CREDITS"
	envKeySettleDelayMS  = "SETTLE_DELAY_MS"
	envKeyPacingDelayMS  = "PACING_DELAY_MS"
	envKeyGenTimeoutS    = "GENERATION_TIMEOUT_SECONDS"
	envKeyTemperature    = "BASE_TEMPERATURE"
)

// Load reads configuration from environment variables, applying defaults for missing values.
func Load() Config {
	return Config{
		LLMProvider:   envOr(envKeyLLMProvider, "ollama"),
		OllamaBaseURL: envOr(envKeyOllamaBaseURL, "http://localhost:11434"),
		OllamaModel:   envOr(envKeyOllamaModel, "llama3.2:3b"),
		GeminiBaseURL: envOr(envKeyGeminiBaseURL, "https://generativelanguage.googleapis.com/v1beta"),
		GeminiAPIKey:  os.Getenv(envKeyGeminiAPIKey),
		GeminiModel:   envOr(envKeyGeminiModel, "gemini-2.0-flash"),

		ValidatorURL: envOr(envKeyValidatorURL, "http://localhost:8090"),

		SQLitePath: envOr(envKeySQLitePath, "diaflow.db"),
		RedisAddr:  os.Getenv(envKeyRedisAddr),
		CacheTTL:   time.Duration(envIntOr(envKeyCacheTTL, 3600)) * time.Second,

		DefaultCredits:    envIntOr(envKeyDefaultCredits, 50),
		SettleDelay:       time.Duration(envIntOr(envKeySettleDelayMS, 300)) * time.Millisecond,
		PacingDelay:       time.Duration(envIntOr(envKeyPacingDelayMS, 400)) * time.Millisecond,
		GenerationTimeout: time.Duration(envIntOr(envKeyGenTimeoutS, 120)) * time.Second,
		BaseTemperature:   envFloatOr(envKeyTemperature, 0.3),
	}
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr returns the integer value of key, or fallback if unset or unparsable.
func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envFloatOr returns the float32 value of key, or fallback if unset or unparsable.
func envFloatOr(key string, fallback float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}
