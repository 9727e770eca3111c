package proxy

import (
	"testing"
	"time"
)

// fakeClock lets tests advance the rotator's view of time.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRotator(list string) (*Rotator, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	r := NewRotator(list)
	r.now = clock.now
	return r, clock
}

// ── Construction ───────────────────────────────────────────────────────────

func TestNewRotator_TrimsAndDropsBlanks(t *testing.T) {
	r, _ := newTestRotator(" p1:8080 , ,p2:8080,")
	if r.PoolSize() != 2 {
		t.Fatalf("PoolSize = %d, want 2", r.PoolSize())
	}
}

func TestGetNext_EmptyPoolIsAbsent(t *testing.T) {
	r, _ := newTestRotator("")
	if addr, ok := r.GetNext(); ok {
		t.Errorf("GetNext on empty pool = (%q, true), want absent", addr)
	}
}

// ── Round-robin ────────────────────────────────────────────────────────────

func TestGetNext_RoundRobin(t *testing.T) {
	r, _ := newTestRotator("p1,p2,p3")

	want := []string{"p1", "p2", "p3", "p1", "p2"}
	for i, w := range want {
		got, ok := r.GetNext()
		if !ok {
			t.Fatalf("call %d: GetNext returned absent", i)
		}
		if got != w {
			t.Errorf("call %d: GetNext = %q, want %q", i, got, w)
		}
	}
}

// ── Blacklisting ───────────────────────────────────────────────────────────

func TestMarkFailed_ExcludesUntilCooldownElapses(t *testing.T) {
	r, clock := newTestRotator("p1,p2,p3")
	r.MarkFailed("p2")

	for i := 0; i < 6; i++ {
		got, ok := r.GetNext()
		if !ok {
			t.Fatalf("call %d: GetNext returned absent", i)
		}
		if got == "p2" {
			t.Fatalf("call %d: GetNext returned blacklisted p2", i)
		}
	}

	clock.advance(Cooldown + time.Second)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		got, _ := r.GetNext()
		seen[got] = true
	}
	if !seen["p2"] {
		t.Error("p2 should rejoin rotation after its cooldown elapses")
	}
}

func TestGetNext_AllBlacklistedEvictsSoonestRelease(t *testing.T) {
	r, clock := newTestRotator("p1,p2")

	r.MarkFailed("p1")
	clock.advance(time.Minute)
	r.MarkFailed("p2") // p1 now releases a minute before p2

	got, ok := r.GetNext()
	if !ok {
		t.Fatal("GetNext should degrade, never return absent with a non-empty pool")
	}
	if got != "p1" {
		t.Errorf("GetNext = %q, want the soonest-releasing p1", got)
	}
	if r.BlacklistSize() != 1 {
		t.Errorf("BlacklistSize = %d after eviction, want 1", r.BlacklistSize())
	}
}

func TestMarkFailed_ReplacesPriorCooldown(t *testing.T) {
	r, clock := newTestRotator("p1,p2")

	r.MarkFailed("p1")
	clock.advance(4 * time.Minute)
	r.MarkFailed("p1") // restarts the 5-minute window
	clock.advance(2 * time.Minute)

	// 6 minutes after the first failure but only 2 after the second:
	// p1 must still be excluded.
	for i := 0; i < 4; i++ {
		if got, _ := r.GetNext(); got == "p1" {
			t.Fatal("p1 cooldown should have been replaced, not left at the first deadline")
		}
	}
}

func TestMarkFailed_NotifiesBlacklistHook(t *testing.T) {
	r, _ := newTestRotator("p1,p2")
	cooldowns := 0
	r.OnBlacklist = func() { cooldowns++ }

	r.MarkFailed("p1")
	r.MarkFailed("p2")
	r.MarkFailed("p1") // replacement still counts as a placement

	if cooldowns != 3 {
		t.Errorf("OnBlacklist fired %d times, want 3", cooldowns)
	}
}

func TestHealthy_ReflectsBlacklist(t *testing.T) {
	r, _ := newTestRotator("p1,p2,p3")
	r.MarkFailed("p3")

	healthy := r.Healthy()
	if len(healthy) != 2 {
		t.Fatalf("Healthy = %v, want 2 entries", healthy)
	}
	for _, addr := range healthy {
		if addr == "p3" {
			t.Error("Healthy should not include blacklisted p3")
		}
	}
}
