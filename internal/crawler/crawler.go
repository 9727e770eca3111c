// Package crawler defines the uniform lifecycle shared by site-specific
// crawlers and the platform implementations themselves.
package crawler

import (
	"context"

	"github.com/qws941/resume-sub005/internal/model"
	"github.com/qws941/resume-sub005/internal/proxy"
	"github.com/qws941/resume-sub005/internal/session"
	"github.com/qws941/resume-sub005/internal/vault"
)

// Options is free-form per-crawler configuration (keywords, locations,
// page caps). Factories receive the registry's defaults merged under any
// caller overrides.
type Options map[string]interface{}

// Merge returns defaults with overrides applied on top. Neither input is
// mutated.
func Merge(defaults, overrides Options) Options {
	merged := make(Options, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// String reads a string-valued option, falling back when absent or
// differently typed.
func (o Options) String(key, fallback string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return fallback
}

// Int reads an int-valued option. JSON-decoded numbers arrive as float64;
// both are accepted.
func (o Options) Int(key string, fallback int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

// Crawler is one platform's job-listing crawler. Crawl fetches and
// normalises current postings; it must honour ctx and never block
// indefinitely on the network.
type Crawler interface {
	Platform() string
	Crawl(ctx context.Context) ([]model.Job, error)
}

// Factory constructs a crawler from merged options. Registered in the
// registry and invoked lazily.
type Factory func(opts Options) (Crawler, error)

// Deps bundles the shared resources every platform crawler coordinates:
// persisted sessions, encrypted credentials for fresh logins, and the
// egress identity pool.
type Deps struct {
	Sessions *session.Store
	Vault    *vault.Vault
	Proxies  *proxy.Rotator
}
