package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	SpawnInterval  time.Duration
	TargetDiameter float64
	PlayWidth      float64
	PlayHeight     float64
}

// Load reads the environment, after filling it from a .env file in the
// working directory when one exists. Variables already set win over .env.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[Config] Loaded .env")
	}

	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		SpawnInterval:  time.Duration(getEnvInt("SPAWN_INTERVAL_MS", 1500)) * time.Millisecond,
		TargetDiameter: getEnvFloat("TARGET_DIAMETER", 100),
		PlayWidth:      getEnvFloat("PLAY_WIDTH", 1280),
		PlayHeight:     getEnvFloat("PLAY_HEIGHT", 720),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}
