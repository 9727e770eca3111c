// Package metrics collects Prometheus counters for the automation core,
// exposed on /metrics for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector wraps the service's Prometheus instruments.
type Collector struct {
	crawlCycles      prometheus.Counter
	crawlErrors      prometheus.Counter
	jobsFetched      *prometheus.CounterVec
	jobsDeduplicated *prometheus.CounterVec
	rateLimitDenied  *prometheus.CounterVec
	proxyBlacklists  prometheus.Counter
}

// NewCollector builds and registers the instruments on reg. Tests pass
// their own registry so parallel instances never collide.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		crawlCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "automation_crawl_cycles_total",
			Help: "Total number of scheduled crawl cycles started",
		}),
		crawlErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "automation_crawl_errors_total",
			Help: "Total number of per-platform crawl failures",
		}),
		jobsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "automation_jobs_fetched_total",
			Help: "Total postings fetched, before deduplication",
		}, []string{"platform"}),
		jobsDeduplicated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "automation_jobs_deduplicated_total",
			Help: "Total postings dropped as already seen",
		}, []string{"platform"}),
		rateLimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "automation_rate_limit_denied_total",
			Help: "Total admin requests denied by the rate limiter",
		}, []string{"group"}),
		proxyBlacklists: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "automation_proxy_blacklists_total",
			Help: "Total proxy addresses placed on cooldown",
		}),
	}

	reg.MustRegister(
		c.crawlCycles,
		c.crawlErrors,
		c.jobsFetched,
		c.jobsDeduplicated,
		c.rateLimitDenied,
		c.proxyBlacklists,
	)
	return c
}

// RecordCycle counts one started crawl cycle.
func (c *Collector) RecordCycle() { c.crawlCycles.Inc() }

// RecordCrawlError counts one failed per-platform crawl.
func (c *Collector) RecordCrawlError() { c.crawlErrors.Inc() }

// RecordFetched counts postings fetched for a platform.
func (c *Collector) RecordFetched(platform string, n int) {
	c.jobsFetched.WithLabelValues(platform).Add(float64(n))
}

// RecordDeduplicated counts postings dropped as duplicates for a platform.
func (c *Collector) RecordDeduplicated(platform string, n int) {
	c.jobsDeduplicated.WithLabelValues(platform).Add(float64(n))
}

// RecordRateLimitDenied counts one denial for a rate-limit group.
func (c *Collector) RecordRateLimitDenied(group string) {
	c.rateLimitDenied.WithLabelValues(group).Inc()
}

// RecordProxyBlacklist counts one proxy cooldown.
func (c *Collector) RecordProxyBlacklist() { c.proxyBlacklists.Inc() }
