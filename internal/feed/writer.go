// Package feed hands deduplicated postings to the downstream persistence
// layer. With no database configured the writer degrades to a log-only
// sink so crawl cycles still run end to end.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qws941/resume-sub005/internal/model"
)

// Writer inserts new postings into job_feed, skipping rows whose
// source_url already exists. The in-memory deduplicator is a best-effort
// per-instance cache; this insert guard is what holds across instances.
type Writer struct {
	pool *pgxpool.Pool
}

// NewWriter returns a Writer. A nil pool is valid and logs instead of
// persisting.
func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// Publish stores jobs discovered on platform, returning how many rows
// were actually inserted versus skipped as duplicates.
func (w *Writer) Publish(ctx context.Context, platform string, jobs []model.Job) (inserted, dupes int, err error) {
	if len(jobs) == 0 {
		return 0, 0, nil
	}
	if w.pool == nil {
		log.Printf("[feed] No database configured — dropping %d %s job(s) after logging", len(jobs), platform)
		return 0, 0, nil
	}

	for _, job := range jobs {
		rawJSON, err := feedRow(platform, &job)
		if err != nil {
			log.Printf("[feed] json.Marshal error: %v", err)
			continue
		}

		tag, err := w.pool.Exec(ctx,
			`INSERT INTO job_feed (platform, raw_data, source_url, status)
			 SELECT $1, $2::jsonb, $3, 'PENDING'
			 WHERE NOT EXISTS (
			   SELECT 1 FROM job_feed WHERE source_url = $3
			 )`,
			platform, string(rawJSON), job.SourceURL,
		)
		if err != nil {
			log.Printf("[feed] DB insert error: %v", err)
			continue
		}

		if tag.RowsAffected() == 0 {
			dupes++
		} else {
			inserted++
		}
	}

	return inserted, dupes, nil
}

// feedRow prepares one job for insertion. The source_url fallback is
// applied before serialisation so raw_data always carries the same
// sourceUrl the row is keyed by.
func feedRow(platform string, job *model.Job) ([]byte, error) {
	if job.SourceURL == "" {
		job.SourceURL = fmt.Sprintf("%s:%s", platform, job.ExternalID)
	}
	return json.Marshal(job)
}
