package config_test

import (
	"testing"

	"github.com/qws941/resume-sub005/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CRAWL_INTERVAL_HOURS", "")
	t.Setenv("SESSION_FILE", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.CrawlIntervalHours != 6 {
		t.Errorf("CrawlIntervalHours = %d, want 6", cfg.CrawlIntervalHours)
	}
	if cfg.SessionFile != "sessions.json" {
		t.Errorf("SessionFile = %q, want sessions.json", cfg.SessionFile)
	}
}

func TestLoad_MissingInfraIsNotAnError(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PROXY_LIST", "")
	t.Setenv("ENCRYPTION_KEY", "")

	if _, err := config.Load(); err != nil {
		t.Errorf("absent infrastructure must degrade, not fail: %v", err)
	}
}

func TestLoad_InvalidInterval(t *testing.T) {
	for _, bad := range []string{"zero", "0", "-3"} {
		t.Setenv("CRAWL_INTERVAL_HOURS", bad)
		if _, err := config.Load(); err == nil {
			t.Errorf("CRAWL_INTERVAL_HOURS=%q should be rejected", bad)
		}
	}
}
