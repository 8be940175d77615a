package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	DBPath          string
	HTTPPort        string
	RateLimitPerMin int
}

// Load returns application config populated from environment variables with sensible defaults.
// A .env file in the working directory is honored when present.
func Load() App {
	_ = godotenv.Load()

	return App{
		Env:             getEnv("APP_ENV", "dev"),
		DBPath:          getEnv("CLASSTRACK_DB", defaultDBPath()),
		HTTPPort:        getEnv("HTTP_PORT", "8081"),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
	}
}

// defaultDBPath resolves to attendance.db in the user's home directory,
// falling back to the working directory when home is unknown.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "attendance.db"
	}
	return filepath.Join(home, "attendance.db")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
