// automation-service — job-automation control core
//
// Hosts the shared lifecycle for the site-specific crawlers:
//   - CredentialVault   — encrypted in-memory platform credentials
//   - SessionStore      — durable 24h authenticated sessions
//   - ProxyRotator      — rotating egress identities with cooldowns
//   - RateLimiter       — fixed-window admission gate on the admin API
//   - JobDeduplicator   — content-addressed seen cache
//   - CrawlerRegistry   — lazy per-platform crawler singletons
//
// Redis, Postgres, proxies and the encryption key are all optional; each
// absence degrades to the documented permissive behavior rather than
// refusing to start.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/qws941/resume-sub005/internal/config"
	"github.com/qws941/resume-sub005/internal/crawler"
	"github.com/qws941/resume-sub005/internal/db"
	"github.com/qws941/resume-sub005/internal/dedup"
	"github.com/qws941/resume-sub005/internal/feed"
	"github.com/qws941/resume-sub005/internal/metrics"
	"github.com/qws941/resume-sub005/internal/proxy"
	"github.com/qws941/resume-sub005/internal/ratelimit"
	"github.com/qws941/resume-sub005/internal/registry"
	"github.com/qws941/resume-sub005/internal/scheduler"
	"github.com/qws941/resume-sub005/internal/server"
	"github.com/qws941/resume-sub005/internal/session"
	"github.com/qws941/resume-sub005/internal/vault"
)

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[automation] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Backing stores (both optional) ───────────────────────────────────────
	var kv ratelimit.KV
	if cfg.RedisURL != "" {
		log.Println("[automation] Connecting to Redis…")
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[automation] Redis: %v", err)
		}
		defer rdb.Close()
		kv = ratelimit.NewRedisKV(rdb)
		log.Println("[automation] Redis connected ✓")
	}

	var record session.RecordStore = session.NewFileRecord(cfg.SessionFile)
	writer := feed.NewWriter(nil)
	if cfg.DatabaseURL != "" {
		log.Println("[automation] Connecting to PostgreSQL…")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[automation] PostgreSQL: %v", err)
		}
		defer pool.Close()
		record, err = session.NewPostgresRecord(ctx, pool)
		if err != nil {
			log.Fatalf("[automation] Session record: %v", err)
		}
		writer = feed.NewWriter(pool)
		log.Println("[automation] PostgreSQL connected ✓")
	}

	// ── Core components ──────────────────────────────────────────────────────
	prom := prometheus.NewRegistry()
	prom.MustRegister(collectors.NewGoCollector())
	collector := metrics.NewCollector(prom)

	sessions := session.NewStore(record)
	rotator := proxy.NewRotator(cfg.ProxyList)
	rotator.OnBlacklist = collector.RecordProxyBlacklist
	deduper := dedup.New()
	v := vault.New(cfg.EncryptionKey)

	limiter := ratelimit.New(kv, nil)
	limiter.OnDeny = collector.RecordRateLimitDenied

	// ── Crawlers ─────────────────────────────────────────────────────────────
	deps := crawler.Deps{Sessions: sessions, Vault: v, Proxies: rotator}
	reg := registry.New()
	if err := reg.Register("wanted", crawler.NewWantedFactory(deps), crawler.Options{
		"keywords": "backend",
		"location": "seoul",
	}); err != nil {
		log.Fatalf("[automation] Registry: %v", err)
	}

	for _, platform := range session.SupportedPlatforms {
		if found, err := v.LoadFromEnvironment(platform); err != nil {
			log.Printf("[automation] Credential scan for %s failed: %v", platform, err)
		} else if !found {
			log.Printf("[automation] No environment credentials for %s", platform)
		}
	}

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched := scheduler.New(reg, deduper, writer, collector, cfg.CrawlIntervalHours)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[automation] Scheduler: %v", err)
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	h := server.NewHandler(sessions, reg, deduper, rotator, v, sched, limiter, prom)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      h.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[automation] Listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[automation] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[automation] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[automation] Shutdown error: %v", err)
	}
	log.Println("[automation] Stopped.")
}
