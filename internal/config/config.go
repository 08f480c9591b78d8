package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// JudgeMode selects the signal source implementation
type JudgeMode string

const (
	JudgeModeStub   JudgeMode = "stub"
	JudgeModeRemote JudgeMode = "remote"
)

// Config holds application configuration
type Config struct {
	Port         int
	DevMode      bool
	LogLevel     string
	DatabasePath string

	JudgeMode    JudgeMode
	JudgeURL     string
	JudgeAPIKey  string
	JudgeTimeout time.Duration

	// Pricing model shape. Not derived from market data; a configured
	// shape is assumed.
	ImpactMax       float64
	ImpactSteepness float64

	// Rescaling function for sentiment normalization (softmax | minmax)
	// and the temperature applied by the softmax variant
	SignalNormalization string
	SignalTemperature   float64

	// Smallest tradable lot, in shares. Fractional trading is off unless
	// this is set below 1.
	LotSize float64

	// How long a proposed order stays acknowledgeable
	OrderTTL time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8001),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/orders.db"),

		JudgeMode:    JudgeMode(getEnv("JUDGE_MODE", "stub")),
		JudgeURL:     getEnv("JUDGE_URL", ""),
		JudgeAPIKey:  getEnv("JUDGE_API_KEY", ""),
		JudgeTimeout: time.Duration(getEnvAsInt("JUDGE_TIMEOUT_SECONDS", 10)) * time.Second,

		ImpactMax:       getEnvAsFloat("IMPACT_MAX", 0.002),
		ImpactSteepness: getEnvAsFloat("IMPACT_STEEPNESS", 4.0),

		SignalNormalization: getEnv("SIGNAL_NORMALIZATION", "softmax"),
		SignalTemperature:   getEnvAsFloat("SIGNAL_TEMPERATURE", 1.0),
		LotSize:             getEnvAsFloat("LOT_SIZE", 1.0),

		OrderTTL: time.Duration(getEnvAsInt("ORDER_TTL_SECONDS", 900)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	switch c.JudgeMode {
	case JudgeModeStub:
		// Canned dataset, no endpoint needed
	case JudgeModeRemote:
		if c.JudgeURL == "" {
			return fmt.Errorf("JUDGE_URL is required in remote mode")
		}
		if c.JudgeAPIKey == "" {
			return fmt.Errorf("JUDGE_API_KEY is required in remote mode")
		}
	default:
		return fmt.Errorf("JUDGE_MODE must be 'stub' or 'remote', got %q", c.JudgeMode)
	}

	if c.ImpactMax < 0 || c.ImpactMax >= 1 {
		return fmt.Errorf("IMPACT_MAX must be within [0, 1)")
	}
	if c.ImpactSteepness <= 0 {
		return fmt.Errorf("IMPACT_STEEPNESS must be positive")
	}
	if c.SignalNormalization != "softmax" && c.SignalNormalization != "minmax" {
		return fmt.Errorf("SIGNAL_NORMALIZATION must be 'softmax' or 'minmax', got %q", c.SignalNormalization)
	}
	if c.SignalTemperature <= 0 {
		return fmt.Errorf("SIGNAL_TEMPERATURE must be positive")
	}
	if c.LotSize <= 0 {
		return fmt.Errorf("LOT_SIZE must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
