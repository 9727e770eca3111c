package scheduler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/qws941/resume-sub005/internal/crawler"
	"github.com/qws941/resume-sub005/internal/dedup"
	"github.com/qws941/resume-sub005/internal/feed"
	"github.com/qws941/resume-sub005/internal/metrics"
	"github.com/qws941/resume-sub005/internal/model"
	"github.com/qws941/resume-sub005/internal/registry"
	"github.com/qws941/resume-sub005/internal/scheduler"
)

// fixedCrawler returns the same batch every cycle, or fails on demand.
type fixedCrawler struct {
	platform string
	jobs     []model.Job
	fail     bool
	crawls   int
}

func (f *fixedCrawler) Platform() string { return f.platform }

func (f *fixedCrawler) Crawl(ctx context.Context) ([]model.Job, error) {
	f.crawls++
	if f.fail {
		return nil, errors.New("listing endpoint unreachable")
	}
	return f.jobs, nil
}

func fixedFactory(c *fixedCrawler) crawler.Factory {
	return func(opts crawler.Options) (crawler.Crawler, error) { return c, nil }
}

func newCycleFixture(t *testing.T, crawlers ...*fixedCrawler) (*scheduler.Scheduler, *dedup.Deduplicator) {
	t.Helper()

	reg := registry.New()
	for _, c := range crawlers {
		if err := reg.Register(c.platform, fixedFactory(c), nil); err != nil {
			t.Fatalf("Register(%s): %v", c.platform, err)
		}
	}

	deduper := dedup.New()
	collector := metrics.NewCollector(prometheus.NewRegistry())
	return scheduler.New(reg, deduper, feed.NewWriter(nil), collector, 6), deduper
}

func TestRunCycle_MarksFetchedJobsSeen(t *testing.T) {
	c := &fixedCrawler{platform: "wanted", jobs: []model.Job{
		{SourceURL: "https://example.com/j/1", Title: "Backend Engineer", Company: "Acme"},
		{SourceURL: "https://example.com/j/2", Title: "Data Engineer", Company: "Acme"},
	}}
	sched, deduper := newCycleFixture(t, c)

	sched.RunCycle(context.Background())

	if c.crawls != 1 {
		t.Fatalf("crawls = %d, want 1", c.crawls)
	}
	if deduper.Size() != 2 {
		t.Errorf("dedup tracked %d fingerprints, want 2", deduper.Size())
	}

	// A second cycle re-fetches the same batch; nothing new is tracked.
	sched.RunCycle(context.Background())
	if deduper.Size() != 2 {
		t.Errorf("repeat cycle grew dedup to %d, want still 2", deduper.Size())
	}
}

func TestRunCycle_IsolatesFailingPlatform(t *testing.T) {
	broken := &fixedCrawler{platform: "jobkorea", fail: true}
	healthy := &fixedCrawler{platform: "wanted", jobs: []model.Job{
		{SourceURL: "https://example.com/j/1", Title: "Backend Engineer", Company: "Acme"},
	}}
	sched, deduper := newCycleFixture(t, broken, healthy)

	sched.RunCycle(context.Background())

	if healthy.crawls != 1 {
		t.Error("a failing platform must not prevent the others from crawling")
	}
	if deduper.Size() != 1 {
		t.Errorf("dedup tracked %d fingerprints, want 1 from the healthy platform", deduper.Size())
	}
}
