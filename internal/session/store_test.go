package session_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/qws941/resume-sub005/internal/session"
)

func newFileStore(t *testing.T) (*session.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.json")
	return session.NewStore(session.NewFileRecord(path)), path
}

// writeRecord seeds the record file directly, bypassing Save's timestamping.
func writeRecord(t *testing.T, path string, record map[string]session.Session) {
	t.Helper()
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write record: %v", err)
	}
}

// ── Save / Load ────────────────────────────────────────────────────────────

func TestSaveLoad_FreshSession(t *testing.T) {
	store, _ := newFileStore(t)
	ctx := context.Background()

	err := store.Save(ctx, "wanted", session.Session{
		CookieString: "sid=abc",
		Email:        "owner@example.com",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	sess, ok := store.Load(ctx, "wanted")
	if !ok {
		t.Fatal("Load after Save returned absent")
	}
	if sess.CookieString != "sid=abc" {
		t.Errorf("CookieString = %q, want %q", sess.CookieString, "sid=abc")
	}
	if sess.CreatedAt.IsZero() {
		t.Error("Save should stamp CreatedAt")
	}
	if want := sess.CreatedAt.Add(session.TTL); !sess.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want CreatedAt+TTL = %v", sess.ExpiresAt, want)
	}
}

func TestLoad_ExpiredSessionIsAbsent(t *testing.T) {
	store, path := newFileStore(t)
	ctx := context.Background()

	created := time.Now().Add(-25 * time.Hour)
	writeRecord(t, path, map[string]session.Session{
		"wanted": {CookieString: "sid=old", CreatedAt: created, ExpiresAt: created.Add(session.TTL)},
	})

	if _, ok := store.Load(ctx, "wanted"); ok {
		t.Error("Load of a 25h-old session should be absent (TTL is 24h)")
	}

	// The raw record still exposes it for inspection.
	all := store.LoadAll(ctx)
	if _, ok := all["wanted"]; !ok {
		t.Error("LoadAll should include expired entries")
	}
}

func TestLoad_MissingFileIsEmptyRecord(t *testing.T) {
	store, _ := newFileStore(t)
	if _, ok := store.Load(context.Background(), "wanted"); ok {
		t.Error("Load with no record file should be absent, not an error")
	}
}

func TestLoad_MalformedFileIsEmptyRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := session.NewStore(session.NewFileRecord(path))
	if _, ok := store.Load(context.Background(), "wanted"); ok {
		t.Error("Load over malformed content should be absent, not an error")
	}
}

// ── Whole-record merge ─────────────────────────────────────────────────────

func TestSave_DoesNotDisturbOtherPlatforms(t *testing.T) {
	store, _ := newFileStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "wanted", session.Session{CookieString: "sid=w"}); err != nil {
		t.Fatalf("Save(wanted): %v", err)
	}
	if err := store.Save(ctx, "jobkorea", session.Session{CookieString: "sid=j"}); err != nil {
		t.Fatalf("Save(jobkorea): %v", err)
	}

	sess, ok := store.Load(ctx, "wanted")
	if !ok || sess.CookieString != "sid=w" {
		t.Errorf("wanted session disturbed by jobkorea save: %+v ok=%v", sess, ok)
	}
}

func TestSave_ConcurrentDistinctPlatformsKeepAllEntries(t *testing.T) {
	store, _ := newFileStore(t)
	ctx := context.Background()

	platforms := []string{"wanted", "jobkorea", "saramin", "linkedin"}
	var wg sync.WaitGroup
	errs := make(chan error, len(platforms))
	for _, p := range platforms {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Save(ctx, p, session.Session{CookieString: "sid=" + p})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Save: %v", err)
		}
	}

	record := store.LoadAll(ctx)
	if len(record) != len(platforms) {
		t.Fatalf("record holds %d platforms, want %d: %v", len(record), len(platforms), record)
	}
	for _, p := range platforms {
		if record[p].CookieString != "sid="+p {
			t.Errorf("platform %s entry lost or clobbered: %+v", p, record[p])
		}
	}
}

func TestClear_SinglePlatformAndWhole(t *testing.T) {
	store, _ := newFileStore(t)
	ctx := context.Background()

	for _, p := range []string{"wanted", "jobkorea"} {
		if err := store.Save(ctx, p, session.Session{CookieString: "sid=" + p}); err != nil {
			t.Fatalf("Save(%s): %v", p, err)
		}
	}

	if err := store.Clear(ctx, "wanted"); err != nil {
		t.Fatalf("Clear(wanted): %v", err)
	}
	if _, ok := store.Load(ctx, "wanted"); ok {
		t.Error("wanted should be absent after Clear")
	}
	if _, ok := store.Load(ctx, "jobkorea"); !ok {
		t.Error("jobkorea should survive Clear(wanted)")
	}

	if err := store.Clear(ctx, ""); err != nil {
		t.Fatalf("Clear(\"\"): %v", err)
	}
	if got := store.LoadAll(ctx); len(got) != 0 {
		t.Errorf("record should be empty after full clear, got %d entries", len(got))
	}
}

// ── Status ─────────────────────────────────────────────────────────────────

func TestStatus_CoversAllSupportedPlatforms(t *testing.T) {
	store, path := newFileStore(t)
	ctx := context.Background()

	created := time.Now().Add(-1 * time.Hour)
	expired := time.Now().Add(-30 * time.Hour)
	writeRecord(t, path, map[string]session.Session{
		"wanted":   {CookieString: "sid=w", Email: "owner@example.com", CreatedAt: created, ExpiresAt: created.Add(session.TTL)},
		"jobkorea": {CookieString: "sid=j", CreatedAt: expired, ExpiresAt: expired.Add(session.TTL)},
	})

	statuses := store.Status(ctx)
	if len(statuses) != len(session.SupportedPlatforms) {
		t.Fatalf("Status returned %d rows, want %d", len(statuses), len(session.SupportedPlatforms))
	}

	byPlatform := map[string]session.PlatformStatus{}
	for _, st := range statuses {
		byPlatform[st.Platform] = st
	}

	if !byPlatform["wanted"].Active {
		t.Error("wanted should be active")
	}
	if byPlatform["wanted"].Email != "owner@example.com" {
		t.Errorf("wanted email = %q", byPlatform["wanted"].Email)
	}
	if byPlatform["jobkorea"].Active {
		t.Error("jobkorea session is past TTL and should be inactive")
	}
	if byPlatform["saramin"].Active || byPlatform["linkedin"].Active {
		t.Error("platforms with no session should be inactive")
	}
}
