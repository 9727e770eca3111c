// Package proxy rotates outbound egress identities across a fixed pool,
// temporarily blacklisting addresses that fail. State is in-memory only:
// proxy health is a soft signal, so losing it on restart is acceptable.
package proxy

import (
	"log"
	"strings"
	"sync"
	"time"
)

// Cooldown is how long a failed address stays blacklisted.
const Cooldown = 5 * time.Minute

// Rotator hands out proxy addresses round-robin over the currently
// healthy subset of the pool. The cursor advances modulo the healthy
// count, not the total pool size, so rotation order shifts whenever an
// address changes health.
type Rotator struct {
	mu        sync.Mutex
	pool      []string
	blacklist map[string]time.Time // address → releaseAt
	cursor    int
	now       func() time.Time

	// OnBlacklist, when set, observes every cooldown placement (metrics hook).
	OnBlacklist func()
}

// NewRotator parses a comma-delimited address list. Blank entries are
// dropped; an empty list yields a rotator that always reports absent.
func NewRotator(list string) *Rotator {
	var pool []string
	for _, addr := range strings.Split(list, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			pool = append(pool, addr)
		}
	}
	if len(pool) == 0 {
		log.Println("[proxy] No proxies configured — outbound traffic goes direct")
	}
	return &Rotator{
		pool:      pool,
		blacklist: make(map[string]time.Time),
		now:       time.Now,
	}
}

// GetNext returns the next healthy address. When every address is
// blacklisted it evicts the entry with the soonest release and returns
// that address — degrade rather than stall. Only an empty pool is absent.
func (r *Rotator) GetNext() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pool) == 0 {
		return "", false
	}

	now := r.now()
	var healthy []string
	for _, addr := range r.pool {
		releaseAt, listed := r.blacklist[addr]
		if listed && now.Before(releaseAt) {
			continue
		}
		delete(r.blacklist, addr)
		healthy = append(healthy, addr)
	}

	if len(healthy) == 0 {
		soonest := r.pool[0]
		for addr, releaseAt := range r.blacklist {
			if releaseAt.Before(r.blacklist[soonest]) {
				soonest = addr
			}
		}
		delete(r.blacklist, soonest)
		log.Printf("[proxy] All proxies blacklisted — releasing %s early", soonest)
		return soonest, true
	}

	addr := healthy[r.cursor%len(healthy)]
	r.cursor++
	return addr, true
}

// MarkFailed blacklists addr for the cooldown window starting now,
// replacing any earlier cooldown for the same address.
func (r *Rotator) MarkFailed(addr string) {
	r.mu.Lock()
	r.blacklist[addr] = r.now().Add(Cooldown)
	r.mu.Unlock()
	if r.OnBlacklist != nil {
		r.OnBlacklist()
	}
	log.Printf("[proxy] Marked %s failed — cooling down for %s", addr, Cooldown)
}

// Healthy lists the addresses currently eligible for rotation.
func (r *Rotator) Healthy() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var healthy []string
	for _, addr := range r.pool {
		if releaseAt, listed := r.blacklist[addr]; listed && now.Before(releaseAt) {
			continue
		}
		healthy = append(healthy, addr)
	}
	return healthy
}

// PoolSize reports the total configured pool size.
func (r *Rotator) PoolSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pool)
}

// BlacklistSize reports how many addresses hold an active cooldown.
func (r *Rotator) BlacklistSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := 0
	for _, releaseAt := range r.blacklist {
		if now.Before(releaseAt) {
			n++
		}
	}
	return n
}
