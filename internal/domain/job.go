package domain

import (
	"fmt"
	"time"
)

// JobKind identifies the kind of content-ingestion job to run.
type JobKind string

const (
	JobScrape JobKind = "scrape"
	JobUpdate JobKind = "update"
)

// ParseJobKind validates a job kind received from the routing layer.
func ParseJobKind(s string) (JobKind, error) {
	switch JobKind(s) {
	case JobScrape, JobUpdate:
		return JobKind(s), nil
	}
	return "", fmt.Errorf("unknown job kind %q", s)
}

// JobConfig is the per-invocation configuration bag for a scrape or update
// job. Zero values mean "let the job binary use its default".
type JobConfig struct {
	SeedURL             string `json:"seed_url"`
	SitemapURL          string `json:"sitemap_url,omitempty"`
	RestrictDomain      string `json:"restrict_domain,omitempty"`
	MaxDepth            int    `json:"max_depth,omitempty"`
	MaxLinksPerPage     int    `json:"max_links_per_page,omitempty"`
	RespectRobots       bool   `json:"respect_robots,omitempty"`
	AggressiveDiscovery bool   `json:"aggressive_discovery,omitempty"`
	CollectionName      string `json:"collection_name,omitempty"`
	EmbeddingModel      string `json:"embedding_model,omitempty"`
	LogVerbosity        string `json:"log_verbosity,omitempty"`

	// DataStoreURI overrides the tenant's data-store URI for update jobs.
	DataStoreURI string `json:"database_uri,omitempty"`
}

// JobSummary is the structured summary reported by the job process, e.g.
// {"pagesCrawled": 40}.
type JobSummary map[string]any

// JobResult is the synchronous outcome of a dispatched job. Stdout and
// Stderr are capped for reporting; see the runner for the truncation rule.
type JobResult struct {
	JobID      string        `json:"job_id"`
	Kind       JobKind       `json:"kind"`
	ResourceID string        `json:"resource_id"`
	Success    bool          `json:"success"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	Summary    JobSummary    `json:"summary,omitempty"`
	Duration   time.Duration `json:"duration_ms"`
}

// SignalResult is the outcome of the best-effort stale-index notification.
// It is a plain value, never an error: signal failures must not fail jobs.
type SignalResult struct {
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	Message       string `json:"message,omitempty"`
	DocumentCount int    `json:"document_count,omitempty"`
}

// JobEventStatus is a lifecycle transition of a dispatched job.
type JobEventStatus string

const (
	JobStarted   JobEventStatus = "started"
	JobCompleted JobEventStatus = "completed"
	JobFailed    JobEventStatus = "failed"
)

// JobEvent is published best-effort to the job event stream for operator
// tooling. It carries no result payload; results go back to the caller.
type JobEvent struct {
	JobID      string         `json:"job_id"`
	ResourceID string         `json:"resource_id"`
	Kind       JobKind        `json:"kind"`
	Status     JobEventStatus `json:"status"`
	At         time.Time      `json:"at"`
}
