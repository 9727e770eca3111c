// Package dedup suppresses repeat processing of job postings via
// content-addressed fingerprints and a time-boxed seen cache.
//
// A bloom filter fronts the cache as a negative fast path: a miss proves
// the posting is new, a hit falls through to the authoritative map. The
// filter never forgets, but since positives are always re-checked against
// the map, purging the map keeps correctness intact.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/qws941/resume-sub005/internal/model"
)

const (
	// fingerprintBytes truncates SHA-256 to 16 bytes (32 hex chars).
	// Collision odds at expected posting volumes are negligible.
	fingerprintBytes = 16

	// DefaultTTL bounds how long a posting stays "seen".
	DefaultTTL = 7 * 24 * time.Hour

	bloomCapacity = 1_000_000
	bloomFPRate   = 0.01
)

// SeenEntry records when a fingerprint was first observed and by whom.
type SeenEntry struct {
	FirstSeenAt time.Time
	Source      string
}

// Deduplicator tracks seen job fingerprints. Entries expire only when a
// caller invokes PurgeExpired — there is no background sweep.
type Deduplicator struct {
	mu     sync.Mutex
	seen   map[string]SeenEntry
	filter *bloom.BloomFilter
	now    func() time.Time
}

// New returns an empty Deduplicator.
func New() *Deduplicator {
	return &Deduplicator{
		seen:   make(map[string]SeenEntry),
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPRate),
		now:    time.Now,
	}
}

// Fingerprint derives the content address of a posting from its
// normalised (url, title, company): case-insensitive, surrounding
// whitespace ignored.
func Fingerprint(job model.Job) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	sum := sha256.Sum256([]byte(norm(job.SourceURL) + "|" + norm(job.Title) + "|" + norm(job.Company)))
	return hex.EncodeToString(sum[:fingerprintBytes])
}

// IsDuplicate reports whether job's fingerprint is already tracked.
func (d *Deduplicator) IsDuplicate(job model.Job) bool {
	fp := Fingerprint(job)

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.filter.TestString(fp) {
		return false
	}
	_, ok := d.seen[fp]
	return ok
}

// MarkSeen records job's fingerprint with first-seen time and source tag.
// First-seen is sticky: an already-tracked fingerprint is left untouched.
func (d *Deduplicator) MarkSeen(job model.Job, source string) {
	fp := Fingerprint(job)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.markLocked(fp, source)
}

func (d *Deduplicator) markLocked(fp, source string) {
	if _, ok := d.seen[fp]; ok {
		return
	}
	d.seen[fp] = SeenEntry{FirstSeenAt: d.now(), Source: source}
	d.filter.AddString(fp)
}

// Deduplicate filters jobs down to the unseen ones, marking each included
// job as seen — so a duplicate later in the same batch is dropped too.
func (d *Deduplicator) Deduplicate(jobs []model.Job, source string) []model.Job {
	d.mu.Lock()
	defer d.mu.Unlock()

	fresh := make([]model.Job, 0, len(jobs))
	for _, job := range jobs {
		fp := Fingerprint(job)
		if d.filter.TestString(fp) {
			if _, ok := d.seen[fp]; ok {
				continue
			}
		}
		d.markLocked(fp, source)
		fresh = append(fresh, job)
	}
	return fresh
}

// PurgeExpired drops entries first seen more than ttl ago and reports how
// many were removed. A non-positive ttl uses DefaultTTL.
func (d *Deduplicator) PurgeExpired(ttl time.Duration) int {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := d.now().Add(-ttl)
	removed := 0
	for fp, entry := range d.seen {
		if entry.FirstSeenAt.Before(cutoff) {
			delete(d.seen, fp)
			removed++
		}
	}
	return removed
}

// Size reports how many fingerprints are currently tracked.
func (d *Deduplicator) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
