// Package session persists per-platform authenticated session artifacts
// (cookie strings, account email) with a fixed 24h time-to-live, shared
// across process restarts through one durable record.
//
// Writers merge into the record and replace it wholesale — never a partial
// field patch — so concurrent writers to different platforms cannot
// clobber each other's entries. Two writers targeting the same platform
// race: last write wins. There is no cross-process lock.
package session

import (
	"context"
	"log"
	"sync"
	"time"
)

// TTL is the fixed session lifetime, counted from creation, not last use.
const TTL = 24 * time.Hour

// SupportedPlatforms is the fixed set the status dashboard reports on.
// Registration in the crawler registry is independent of this list.
var SupportedPlatforms = []string{"wanted", "jobkorea", "saramin", "linkedin"}

// Session is one platform's authenticated session artifact. Sessions are
// replaced wholesale on login, never mutated in place.
type Session struct {
	CookieString string    `json:"cookieString"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// PlatformStatus is one row of the owner dashboard: whether a platform
// currently holds an unexpired session and its metadata. Not a security
// decision input.
type PlatformStatus struct {
	Platform  string    `json:"platform"`
	Active    bool      `json:"active"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Store reads and writes sessions through a durable RecordStore. The
// mutex serializes this instance's read-modify-write cycles so in-process
// concurrent writers to different platforms cannot tear the record; it
// does nothing across processes, where last write wins.
type Store struct {
	mu     sync.Mutex
	record RecordStore
	now    func() time.Time
}

// NewStore returns a Store over the given record.
func NewStore(record RecordStore) *Store {
	return &Store{record: record, now: time.Now}
}

// Load returns platform's session if it is still inside its TTL window,
// or absent. Durable-read failures are absent too, logged — callers fall
// back to a fresh login either way.
func (s *Store) Load(ctx context.Context, platform string) (*Session, bool) {
	record, err := s.record.Read(ctx)
	if err != nil {
		log.Printf("[session] Load(%s) read error: %v", platform, err)
		return nil, false
	}

	sess, ok := record[platform]
	if !ok {
		return nil, false
	}
	if s.now().Sub(sess.CreatedAt) >= TTL {
		return nil, false
	}
	return &sess, true
}

// LoadAll returns the full raw record, including expired entries, for
// inspection and dashboard use.
func (s *Store) LoadAll(ctx context.Context) map[string]Session {
	record, err := s.record.Read(ctx)
	if err != nil {
		log.Printf("[session] LoadAll read error: %v", err)
		return map[string]Session{}
	}
	return record
}

// Save stamps sess with a fresh CreatedAt/ExpiresAt, merges it into the
// record under platform and writes the whole record back.
func (s *Store) Save(ctx context.Context, platform string, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.record.Read(ctx)
	if err != nil {
		return err
	}

	sess.CreatedAt = s.now()
	sess.ExpiresAt = sess.CreatedAt.Add(TTL)
	record[platform] = sess

	return s.record.Write(ctx, record)
}

// Clear removes one platform's entry, or wipes the whole record when
// platform is empty.
func (s *Store) Clear(ctx context.Context, platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if platform == "" {
		return s.record.Write(ctx, map[string]Session{})
	}

	record, err := s.record.Read(ctx)
	if err != nil {
		return err
	}
	delete(record, platform)
	return s.record.Write(ctx, record)
}

// Status reports, for every supported platform, whether it holds an
// unexpired session plus its email/expiry metadata.
func (s *Store) Status(ctx context.Context) []PlatformStatus {
	record := s.LoadAll(ctx)
	now := s.now()

	statuses := make([]PlatformStatus, 0, len(SupportedPlatforms))
	for _, platform := range SupportedPlatforms {
		st := PlatformStatus{Platform: platform}
		if sess, ok := record[platform]; ok {
			st.Active = now.Sub(sess.CreatedAt) < TTL
			st.Email = sess.Email
			st.ExpiresAt = sess.ExpiresAt
		}
		statuses = append(statuses, st)
	}
	return statuses
}
