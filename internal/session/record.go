package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordStore is the durable home of the whole session record: one mapping
// of platform → Session, read and written wholesale. A missing or
// malformed record reads as empty, never as an error.
type RecordStore interface {
	Read(ctx context.Context) (map[string]Session, error)
	Write(ctx context.Context, record map[string]Session) error
}

// ─── File record ─────────────────────────────────────────────────────────────

// FileRecord stores the session record as a single JSON file, shared by
// all platforms and by the cookie-extraction tools that also write it.
type FileRecord struct {
	Path string
}

// NewFileRecord returns a FileRecord at path.
func NewFileRecord(path string) *FileRecord {
	return &FileRecord{Path: path}
}

// Read loads the record. Missing file → empty record; malformed content →
// empty record, logged.
func (f *FileRecord) Read(ctx context.Context) (map[string]Session, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Session{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}

	record := map[string]Session{}
	if err := json.Unmarshal(data, &record); err != nil {
		log.Printf("[session] Malformed record at %s — treating as empty: %v", f.Path, err)
		return map[string]Session{}, nil
	}
	return record, nil
}

// Write replaces the record file wholesale.
func (f *FileRecord) Write(ctx context.Context, record map[string]Session) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", f.Path, err)
	}
	return nil
}

// ─── Postgres record ─────────────────────────────────────────────────────────

// PostgresRecord stores the session record as a single JSONB row, updated
// wholesale so it keeps the file record's last-write-wins semantics.
type PostgresRecord struct {
	pool *pgxpool.Pool
}

// NewPostgresRecord ensures the backing row's table exists and returns the
// record store.
func NewPostgresRecord(ctx context.Context, pool *pgxpool.Pool) (*PostgresRecord, error) {
	_, err := pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS session_record (
		   id         smallint PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		   data       jsonb NOT NULL DEFAULT '{}'::jsonb,
		   updated_at timestamptz NOT NULL DEFAULT NOW()
		 )`)
	if err != nil {
		return nil, fmt.Errorf("create session_record: %w", err)
	}
	return &PostgresRecord{pool: pool}, nil
}

// Read loads the record row. No row → empty record; malformed JSONB →
// empty record, logged.
func (p *PostgresRecord) Read(ctx context.Context) (map[string]Session, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM session_record WHERE id = 1`).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return map[string]Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session_record: %w", err)
	}

	record := map[string]Session{}
	if err := json.Unmarshal(data, &record); err != nil {
		log.Printf("[session] Malformed session_record row — treating as empty: %v", err)
		return map[string]Session{}, nil
	}
	return record, nil
}

// Write upserts the single record row wholesale.
func (p *PostgresRecord) Write(ctx context.Context, record map[string]Session) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO session_record (id, data, updated_at)
		 VALUES (1, $1::jsonb, NOW())
		 ON CONFLICT (id) DO UPDATE SET data = $1::jsonb, updated_at = NOW()`,
		string(data))
	if err != nil {
		return fmt.Errorf("write session_record: %w", err)
	}
	return nil
}
