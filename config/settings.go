// Package config loads operator settings from the environment and optional
// YAML profiles. A .env file in the working directory is picked up through
// the godotenv autoload import in the binaries.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Settings carries everything the framework reads from the environment.
type Settings struct {
	OpenAIAPIKey string
	OpenAIModel  string

	Debug    bool
	LogLevel string

	NetworkTimeout       time.Duration
	MaxConcurrentDevices int

	PredictionThreshold float64
	DeploymentTimeout   time.Duration

	NATSURL         string
	TemporalAddress string
}

// Load reads settings from the environment, applying defaults for anything
// unset.
func Load() Settings {
	return Settings{
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          envString("OPENAI_MODEL", envString("OPENAI_DEFAULT_MODEL", "gpt-4")),
		Debug:                envBool("DEBUG", true),
		LogLevel:             envString("LOG_LEVEL", "info"),
		NetworkTimeout:       envSeconds("NETWORK_TIMEOUT", 30*time.Second),
		MaxConcurrentDevices: envInt("MAX_CONCURRENT_DEVICES", 10),
		PredictionThreshold:  envFloat("MAINTENANCE_PREDICTION_THRESHOLD", 0.7),
		DeploymentTimeout:    envSeconds("DEPLOYMENT_TIMEOUT", 300*time.Second),
		NATSURL:              os.Getenv("NATS_URL"),
		TemporalAddress:      os.Getenv("TEMPORAL_ADDRESS"),
	}
}

// Validate checks the settings are usable for a run.
func (s Settings) Validate() error {
	if s.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if s.PredictionThreshold <= 0 || s.PredictionThreshold > 1 {
		return fmt.Errorf("prediction threshold %g out of range (0, 1]", s.PredictionThreshold)
	}
	if s.MaxConcurrentDevices < 1 {
		return fmt.Errorf("max concurrent devices must be at least 1, got %d", s.MaxConcurrentDevices)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// envSeconds reads an integer number of seconds.
func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
