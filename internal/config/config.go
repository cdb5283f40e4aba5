package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port                 string
	AllowedOrigin        string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	CommitTimeoutSeconds int
	ViewCacheTTLSeconds  int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	commitTimeout, err := strconv.Atoi(getEnv("COMMIT_TIMEOUT_SECONDS", "10"))
	if err != nil || commitTimeout < 1 {
		commitTimeout = 10
	}
	viewTTL, err := strconv.Atoi(getEnv("VIEW_CACHE_TTL_SECONDS", "60"))
	if err != nil || viewTTL < 1 {
		viewTTL = 60
	}

	cfg := Config{
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigin:        getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              redisDB,
		CommitTimeoutSeconds: commitTimeout,
		ViewCacheTTLSeconds:  viewTTL,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
