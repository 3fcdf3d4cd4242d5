package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	RealtimeURL        string
	JWTSecret          string
	DataDir            string
	SyncRetryThreshold int
	SyncCallTimeoutSec int
}

func Load() Config {
	_ = godotenv.Load()

	port := getEnv("PORT", "8080")
	dbURL := getEnv("DATABASE_URL", "")
	rtURL := getEnv("REALTIME_URL", "")
	jwtSecret := getEnv("JWT_SECRET", "dev-secret-change-me")
	dataDir := getEnv("DATA_DIR", "./data")
	retryThreshold := getEnvInt("SYNC_RETRY_THRESHOLD", 3)
	callTimeout := getEnvInt("SYNC_CALL_TIMEOUT_SECONDS", 10)

	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	return Config{
		Port:               port,
		DatabaseURL:        dbURL,
		RealtimeURL:        rtURL,
		JWTSecret:          jwtSecret,
		DataDir:            dataDir,
		SyncRetryThreshold: retryThreshold,
		SyncCallTimeoutSec: callTimeout,
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
