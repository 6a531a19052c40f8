package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"abtester/domain/experiment"
	"abtester/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Test   experiment.Config
	Server ServerConfig
	Data   DataConfig
	Batch  BatchConfig
	Log    LogConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// DataConfig holds dataset defaults for the CLI
type DataConfig struct {
	File        string
	GroupColumn string
	ValueColumn string
}

// BatchConfig holds batch evaluation settings
type BatchConfig struct {
	Workers int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	testConfig, err := loadTestConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load test configuration")
	}
	config.Test = *testConfig

	config.Server = *loadServerConfig()
	config.Data = *loadDataConfig()
	config.Batch = *loadBatchConfig()
	config.Log = LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "INFO")}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadTestConfig() (*experiment.Config, error) {
	cfg := experiment.DefaultConfig()

	if raw := os.Getenv("AB_ALPHA"); raw != "" {
		alpha, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("AB_ALPHA must be a number, got %q", raw))
		}
		cfg.Alpha = alpha
	}

	if raw := os.Getenv("AB_ALTERNATIVE"); raw != "" {
		alt, err := experiment.ParseAlternative(raw)
		if err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, err)
		}
		cfg.Alternative = alt
	}

	if raw := os.Getenv("AB_RANK_TEST"); raw != "" {
		rt, err := experiment.ParseRankTest(raw)
		if err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, err)
		}
		cfg.RankTest = rt
	}

	cfg.LabelA = getEnvOrDefault("AB_LABEL_A", cfg.LabelA)
	cfg.LabelB = getEnvOrDefault("AB_LABEL_B", cfg.LabelB)

	return &cfg, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		File:        getEnvOrDefault("DATA_FILE", ""),
		GroupColumn: getEnvOrDefault("AB_GROUP_COLUMN", "version"),
		ValueColumn: getEnvOrDefault("AB_VALUE_COLUMN", ""),
	}
}

func loadBatchConfig() *BatchConfig {
	return &BatchConfig{
		Workers: getEnvIntOrDefault("AB_WORKERS", 4),
	}
}

func validateConfig(config *Config) error {
	if err := config.Test.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Batch.Workers < 1 {
		return errors.ConfigInvalid("AB_WORKERS must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
