package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string  `yaml:"port"`
	Environment  string  `yaml:"environment"`
	ReadTimeout  int     `yaml:"read_timeout"`
	WriteTimeout int     `yaml:"write_timeout"`
	UploadsDir   string  `yaml:"uploads_dir"`
	DBPath       string  `yaml:"db_path"`
	MaterialsURL string  `yaml:"materials_url"`
	Density      float64 `yaml:"density"`
}

// Load builds the config from environment variables, then applies an
// optional YAML overlay pointed at by CONFIG_FILE.
func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "3000"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
		UploadsDir:   getEnv("UPLOADS_DIR", "data/uploads"),
		DBPath:       getEnv("DB_PATH", "data/db/materials.db"),
		MaterialsURL: getEnv("MATERIALS_URL", "http://localhost:3001"),
		Density:      getEnvAsFloat("DEFAULT_DENSITY", 2400),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayFile(cfg, path); err != nil {
			log.Printf("[CONFIG] overlay %s skipped: %v", path, err)
		}
	}

	return cfg
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
