// Package scheduler wires up the cron job that periodically triggers a
// crawl cycle across every registered platform.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/qws941/resume-sub005/internal/dedup"
	"github.com/qws941/resume-sub005/internal/feed"
	"github.com/qws941/resume-sub005/internal/metrics"
	"github.com/qws941/resume-sub005/internal/registry"
)

// Scheduler wraps robfig/cron and manages the crawl loop.
type Scheduler struct {
	cron     *cron.Cron
	registry *registry.Registry
	deduper  *dedup.Deduplicator
	writer   *feed.Writer
	metrics  *metrics.Collector
	spec     string // cron spec, e.g. "@every 6h"
}

// New creates a Scheduler that fires every intervalHours hours.
func New(reg *registry.Registry, deduper *dedup.Deduplicator, writer *feed.Writer, collector *metrics.Collector, intervalHours int) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cron.DefaultLogger)),
		registry: reg,
		deduper:  deduper,
		writer:   writer,
		metrics:  collector,
		spec:     fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one cycle
// immediately so the feed is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s", s.spec)

	// Run immediately on startup (non-blocking)
	go s.RunCycle(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

// RunCycle crawls every registered platform concurrently, deduplicates
// each platform's batch and publishes what survives. Per-platform
// failures are isolated: one broken crawler never stops the others.
func (s *Scheduler) RunCycle(ctx context.Context) {
	cycleID := uuid.NewString()[:8]
	s.metrics.RecordCycle()

	platforms := s.registry.List()
	if len(platforms) == 0 {
		log.Printf("[scheduler] Cycle %s: no platforms registered — nothing to crawl", cycleID)
		return
	}
	log.Printf("[scheduler] Cycle %s started for %d platform(s)", cycleID, len(platforms))

	g, gctx := errgroup.WithContext(ctx)
	for _, platform := range platforms {
		g.Go(func() error {
			if err := s.crawlPlatform(gctx, cycleID, platform); err != nil {
				s.metrics.RecordCrawlError()
				log.Printf("[scheduler] Cycle %s: %s failed — continuing: %v", cycleID, platform, err)
			}
			return nil
		})
	}
	g.Wait()

	if purged := s.deduper.PurgeExpired(0); purged > 0 {
		log.Printf("[scheduler] Cycle %s: purged %d expired dedup entries", cycleID, purged)
	}
	log.Printf("[scheduler] Cycle %s complete", cycleID)
}

func (s *Scheduler) crawlPlatform(ctx context.Context, cycleID, platform string) error {
	c, err := s.registry.Get(platform, nil)
	if err != nil {
		return err
	}

	jobs, err := c.Crawl(ctx)
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	s.metrics.RecordFetched(platform, len(jobs))

	fresh := s.deduper.Deduplicate(jobs, platform)
	s.metrics.RecordDeduplicated(platform, len(jobs)-len(fresh))

	inserted, dupes, err := s.writer.Publish(ctx, platform, fresh)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	log.Printf("[scheduler] Cycle %s: %s fetched=%d fresh=%d inserted=%d db_dupes=%d",
		cycleID, platform, len(jobs), len(fresh), inserted, dupes)
	return nil
}
