// Package ratelimit is a fixed-window admission gate keyed by route group
// and caller identity, backed by a shared key-value store.
//
// It is an approximate limiter: the read-then-write against the store is
// not atomic, so concurrent racers inside one window can overshoot the
// budget by the racer count. That is accepted — this is an
// abuse-deterrence control, not a hard quota. Any store failure, and the
// absence of a store entirely, fails open: availability over strictness.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

// Group is one rate-limited route family. Paths are matched by prefix;
// the first matching group wins, so list specific prefixes before broad
// ones. Unmatched paths are always permitted.
type Group struct {
	Name     string
	Prefix   string
	Budget   int
	Interval time.Duration
}

// DefaultGroups covers the owner-facing automation API.
func DefaultGroups() []Group {
	return []Group{
		{Name: "crawl", Prefix: "/api/crawl", Budget: 10, Interval: time.Minute},
		{Name: "apply", Prefix: "/api/apply", Budget: 5, Interval: time.Minute},
		{Name: "api", Prefix: "/api/", Budget: 60, Interval: time.Minute},
	}
}

// Decision is the outcome of one admission check. Tracked is false when
// the path matched no group (or no store is bound), in which case the
// remaining fields carry no meaning.
type Decision struct {
	Allowed    bool
	Tracked    bool
	Group      string
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	Reset      time.Time // end of the current window
}

// Limiter checks requests against per-group fixed windows.
type Limiter struct {
	kv     KV
	groups []Group
	now    func() time.Time

	// OnDeny, when set, observes every denial (metrics hook).
	OnDeny func(group string)
}

// New returns a Limiter over kv. A nil kv is valid and means every check
// permits (fail-open by configuration absence).
func New(kv KV, groups []Group) *Limiter {
	if groups == nil {
		groups = DefaultGroups()
	}
	return &Limiter{kv: kv, groups: groups, now: time.Now}
}

func (l *Limiter) match(path string) (Group, bool) {
	for _, g := range l.groups {
		if strings.HasPrefix(path, g.Prefix) {
			return g, true
		}
	}
	return Group{}, false
}

// Check admits or denies one request for path on behalf of identity.
func (l *Limiter) Check(ctx context.Context, path, identity string) Decision {
	group, ok := l.match(path)
	if !ok {
		return Decision{Allowed: true}
	}
	if l.kv == nil {
		return Decision{Allowed: true}
	}

	now := l.now()
	windowStart := now.Truncate(group.Interval)
	windowEnd := windowStart.Add(group.Interval)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", group.Name, identity, windowStart.Unix())

	count := 0
	if raw, found, err := l.kv.Get(ctx, key); err != nil {
		log.Printf("[ratelimit] Store read error for %s — failing open: %v", key, err)
		return Decision{Allowed: true}
	} else if found {
		if n, err := strconv.Atoi(raw); err == nil {
			count = n
		}
	}

	if count >= group.Budget {
		if l.OnDeny != nil {
			l.OnDeny(group.Name)
		}
		return Decision{
			Allowed:    false,
			Tracked:    true,
			Group:      group.Name,
			Limit:      group.Budget,
			Remaining:  0,
			RetryAfter: windowEnd.Sub(now),
			Reset:      windowEnd,
		}
	}

	count++
	// TTL slightly longer than the window so the counter outlives its
	// window, then self-expires.
	ttl := windowEnd.Sub(now) + 10*time.Second
	if err := l.kv.Put(ctx, key, strconv.Itoa(count), ttl); err != nil {
		log.Printf("[ratelimit] Store write error for %s — failing open: %v", key, err)
		return Decision{Allowed: true}
	}

	return Decision{
		Allowed:   true,
		Tracked:   true,
		Group:     group.Name,
		Limit:     group.Budget,
		Remaining: group.Budget - count,
		Reset:     windowEnd,
	}
}
