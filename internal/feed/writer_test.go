package feed

import (
	"encoding/json"
	"testing"

	"github.com/qws941/resume-sub005/internal/model"
)

func TestFeedRow_FallbackURLIsSerialised(t *testing.T) {
	job := model.Job{ExternalID: "12345", Title: "Backend Engineer", Company: "Acme"}

	rawJSON, err := feedRow("wanted", &job)
	if err != nil {
		t.Fatalf("feedRow: %v", err)
	}

	if job.SourceURL != "wanted:12345" {
		t.Fatalf("SourceURL = %q, want the synthesised wanted:12345", job.SourceURL)
	}

	var stored model.Job
	if err := json.Unmarshal(rawJSON, &stored); err != nil {
		t.Fatalf("unmarshal raw_data: %v", err)
	}
	if stored.SourceURL != job.SourceURL {
		t.Errorf("raw_data sourceUrl = %q, want the row key %q", stored.SourceURL, job.SourceURL)
	}
}

func TestFeedRow_ExistingURLUntouched(t *testing.T) {
	job := model.Job{ExternalID: "1", SourceURL: "https://example.com/j/1"}

	rawJSON, err := feedRow("wanted", &job)
	if err != nil {
		t.Fatalf("feedRow: %v", err)
	}

	var stored model.Job
	if err := json.Unmarshal(rawJSON, &stored); err != nil {
		t.Fatalf("unmarshal raw_data: %v", err)
	}
	if stored.SourceURL != "https://example.com/j/1" {
		t.Errorf("sourceUrl = %q, want the original URL", stored.SourceURL)
	}
}
