package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig carries every externally tunable setting. Artifact state is
// loaded from these paths exactly once per pipeline build and passed by
// reference; nothing reads the environment after Load.
type AppConfig struct {
	// Artifact locations.
	ModelsDir          string // searched for best_model_*.json
	ScalerPath         string
	FeatureNamesPath   string
	LocationLookupPath string
	MediansPath        string

	// ReloadInterval controls how often the artifact reloader checks for new
	// files. Zero disables reloading.
	ReloadInterval time.Duration

	// Prediction history retention.
	HistoryMaxRecords int           // max records per location (0 = unlimited)
	HistoryMaxAge     time.Duration // max record age (0 = unlimited)

	Port string
}

// Load reads configuration from the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.ModelsDir = getenvDefault("MODELS_DIR", "artifacts/models")
	cfg.ScalerPath = getenvDefault("SCALER_PATH", "artifacts/scalers/standard_scaler.json")
	cfg.FeatureNamesPath = getenvDefault("FEATURE_NAMES_PATH", "artifacts/models/feature_names.txt")
	cfg.LocationLookupPath = getenvDefault("LOCATION_LOOKUP_PATH", "artifacts/feature_engineering/location_features_lookup.json")
	cfg.MediansPath = getenvDefault("MEDIANS_PATH", "artifacts/feature_engineering/feature_medians.json")

	reloadStr := getenvDefault("ARTIFACT_RELOAD_INTERVAL", "5m")
	reload, err := time.ParseDuration(reloadStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ARTIFACT_RELOAD_INTERVAL: %w", err)
	}
	cfg.ReloadInterval = reload

	cfg.HistoryMaxRecords = getenvInt("HISTORY_MAX_RECORDS", 256)

	maxAgeStr := getenvDefault("HISTORY_MAX_AGE", "24h")
	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_MAX_AGE: %w", err)
	}
	cfg.HistoryMaxAge = maxAge

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
