// Package vault encrypts and holds per-platform login credentials in
// process memory. Credentials never touch disk or the network: entries
// exist only as AES-256-GCM ciphertext keyed by platform, and the
// plaintext mapping is materialised only transiently during Store and
// Retrieve.
//
// Retrieval is fail-soft: an unknown platform, a wrong secret and a
// tampered ciphertext all come back as an absent result, never an error,
// so callers treat "no credential" and "bad credential" identically.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// devDefaultSecret seeds key derivation when neither a caller-supplied
// secret nor ENCRYPTION_KEY is available. Development only — production
// deployments must set ENCRYPTION_KEY.
const devDefaultSecret = "dev-only-insecure-key"

// envFieldSuffixes is the fixed convention scanned by LoadFromEnvironment:
// {PLATFORM}_{SUFFIX} → credential field named by the lower-cased suffix.
var envFieldSuffixes = []string{"USERNAME", "PASSWORD", "API_KEY", "TOKEN", "SECRET"}

// entry is one encrypted credential record. The GCM authentication tag is
// appended to ciphertext by Seal; nonce is the per-call random IV.
type entry struct {
	ciphertext []byte
	nonce      []byte
}

// Vault is an in-memory encrypted credential store.
type Vault struct {
	mu            sync.Mutex
	entries       map[string]entry
	defaultSecret string
}

// New returns an empty Vault. defaultSecret may be empty, in which case
// ENCRYPTION_KEY is consulted at call time, falling back to the insecure
// development default.
func New(defaultSecret string) *Vault {
	return &Vault{
		entries:       make(map[string]entry),
		defaultSecret: defaultSecret,
	}
}

// deriveKey hashes the effective secret into a 256-bit AES key.
func (v *Vault) deriveKey(secret string) []byte {
	if secret == "" {
		secret = v.defaultSecret
	}
	if secret == "" {
		secret = os.Getenv("ENCRYPTION_KEY")
	}
	if secret == "" {
		secret = devDefaultSecret
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Store encrypts fields under the given secret (or the vault default) and
// records the ciphertext keyed by platform, overwriting any prior entry.
func (v *Vault) Store(platform string, fields map[string]string, secret ...string) error {
	plaintext, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	gcm, err := newGCM(v.deriveKey(first(secret)))
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}

	v.mu.Lock()
	v.entries[platform] = entry{
		ciphertext: gcm.Seal(nil, nonce, plaintext, nil),
		nonce:      nonce,
	}
	v.mu.Unlock()
	return nil
}

// Retrieve decrypts and returns the credential mapping for platform.
// Absent result (nil, false) on unknown platform, wrong secret or failed
// authentication — never an error.
func (v *Vault) Retrieve(platform string, secret ...string) (map[string]string, bool) {
	v.mu.Lock()
	e, ok := v.entries[platform]
	v.mu.Unlock()
	if !ok {
		return nil, false
	}

	gcm, err := newGCM(v.deriveKey(first(secret)))
	if err != nil {
		return nil, false
	}

	plaintext, err := gcm.Open(nil, e.nonce, e.ciphertext, nil)
	if err != nil {
		return nil, false
	}

	var fields map[string]string
	if err := json.Unmarshal(plaintext, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// LoadFromEnvironment scans {PLATFORM}_{USERNAME|PASSWORD|API_KEY|TOKEN|SECRET}
// and stores whatever subset is present. Reports whether anything was found.
func (v *Vault) LoadFromEnvironment(platform string, secret ...string) (bool, error) {
	prefix := strings.ToUpper(platform)
	fields := make(map[string]string)
	for _, suffix := range envFieldSuffixes {
		if val := os.Getenv(prefix + "_" + suffix); val != "" {
			fields[strings.ToLower(suffix)] = val
		}
	}
	if len(fields) == 0 {
		return false, nil
	}

	if err := v.Store(platform, fields, secret...); err != nil {
		return false, err
	}
	log.Printf("[vault] Loaded %d credential field(s) for %s from environment", len(fields), platform)
	return true, nil
}

// Remove deletes the entry for platform, if any.
func (v *Vault) Remove(platform string) {
	v.mu.Lock()
	delete(v.entries, platform)
	v.mu.Unlock()
}

// Platforms lists the platforms with stored credentials, sorted. For the
// owner dashboard — it reveals nothing about the credential contents.
func (v *Vault) Platforms() []string {
	v.mu.Lock()
	names := make([]string, 0, len(v.entries))
	for p := range v.entries {
		names = append(names, p)
	}
	v.mu.Unlock()
	sort.Strings(names)
	return names
}

func first(ss []string) string {
	if len(ss) > 0 {
		return ss[0]
	}
	return ""
}
