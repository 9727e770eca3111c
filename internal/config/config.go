// Package config loads and validates environment variables at startup.
// Infrastructure bindings (Redis, Postgres, proxies, encryption key) are
// optional: when absent the service runs in its degraded mode (fail-open
// rate limiting, file-backed sessions, direct egress, dev encryption key).
// Only malformed values are errors.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the automation service.
type Config struct {
	Port               string
	DatabaseURL        string // optional: Postgres-backed session record + job_feed
	RedisURL           string // optional: rate-limit backing store
	SessionFile        string // fallback session record when DatabaseURL is empty
	ProxyList          string // comma-delimited egress proxy addresses
	EncryptionKey      string // vault secret; empty falls back to the dev default
	CrawlIntervalHours int    // how often the cron trigger fires
}

// Load reads .env (if present) and environment variables, returning a
// validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("[config] Loaded .env")
	}

	interval := 6
	if s := os.Getenv("CRAWL_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("CRAWL_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		interval = v
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	sessionFile := os.Getenv("SESSION_FILE")
	if sessionFile == "" {
		sessionFile = "sessions.json"
	}

	if os.Getenv("REDIS_URL") == "" {
		log.Println("[config] REDIS_URL not set — rate limiting will fail open")
	}
	if os.Getenv("ENCRYPTION_KEY") == "" {
		log.Println("[config] ENCRYPTION_KEY not set — vault uses the insecure dev default")
	}

	return &Config{
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		SessionFile:        sessionFile,
		ProxyList:          os.Getenv("PROXY_LIST"),
		EncryptionKey:      os.Getenv("ENCRYPTION_KEY"),
		CrawlIntervalHours: interval,
	}, nil
}
