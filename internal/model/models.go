// Package model defines shared data structures for the automation service.
package model

// Job is a normalised job offer fetched from an external platform.
// It is converted to JSON and stored in job_feed.raw_data (JSONB).
type Job struct {
	ExternalID   string                 `json:"externalId"`
	Title        string                 `json:"title"`
	Company      string                 `json:"company"`
	Location     string                 `json:"location"`
	Description  string                 `json:"description"`
	SalaryMin    float64                `json:"salaryMin,omitempty"`
	SalaryMax    float64                `json:"salaryMax,omitempty"`
	SourceURL    string                 `json:"sourceUrl"`
	ContractType string                 `json:"contractType,omitempty"`
	PublishedAt  string                 `json:"publishedAt,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}
