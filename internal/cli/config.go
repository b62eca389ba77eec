package cli

import (
	"os"
)

// Config holds CLI configuration
type Config struct {
	ServerURL    string
	StorageType  string
	DatabasePath string
	RedisURL     string
	Output       string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:    getEnvOrDefault("EMPIRECTL_SERVER", "http://localhost:8080"),
		StorageType:  getEnvOrDefault("EMPIRECTL_STORAGE", "sqlite"),
		DatabasePath: getEnvOrDefault("EMPIRECTL_DB_PATH", "data/empire.db"),
		RedisURL:     os.Getenv("EMPIRECTL_REDIS_URL"),
		Output:       "text",
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
