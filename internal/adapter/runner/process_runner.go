package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/user/rag-orchestrator/internal/domain"
)

// maxCapturedOutput caps stdout/stderr in the returned result. This is a
// reporting limit only; the process may produce arbitrarily more.
const maxCapturedOutput = 8 * 1024

// ProcessRunner implements domain.JobRunner by launching the external
// scraper/updater binary and waiting for it to exit. No timeout is imposed:
// ingestion jobs are long-running and the calling request disables its own.
type ProcessRunner struct {
	scraperBin string
	updaterBin string
	logger     *slog.Logger
}

// NewProcessRunner creates a ProcessRunner bound to the configured binaries.
func NewProcessRunner(scraperBin, updaterBin string, logger *slog.Logger) *ProcessRunner {
	return &ProcessRunner{
		scraperBin: scraperBin,
		updaterBin: updaterBin,
		logger:     logger.With("component", "process_runner"),
	}
}

// Run executes the job process to completion, capturing output and the
// structured summary the process reports as its last JSON stdout line.
func (r *ProcessRunner) Run(ctx context.Context, jobID string, kind domain.JobKind, tc domain.TenantContext, cfg domain.JobConfig) (*domain.JobResult, error) {
	bin := r.scraperBin
	if kind == domain.JobUpdate {
		bin = r.updaterBin
	}

	dataStoreURI := tc.DataStoreURI
	if kind == domain.JobUpdate && cfg.DataStoreURI != "" {
		dataStoreURI = cfg.DataStoreURI
	}

	args := buildArgs(tc, cfg, dataStoreURI)
	r.logger.Info("launching job process", "job_id", jobID, "bin", bin)

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	result := &domain.JobResult{
		JobID:      jobID,
		Kind:       kind,
		ResourceID: tc.ResourceID,
		Success:    runErr == nil,
		Stdout:     truncateOutput(stdout.String()),
		Stderr:     truncateOutput(stderr.String()),
		Summary:    extractSummary(stdout.Bytes()),
		Duration:   duration,
	}

	if runErr != nil {
		return nil, &domain.JobExecutionError{
			Result: result,
			Err:    fmt.Errorf("%s process: %w", kind, runErr),
		}
	}

	return result, nil
}

func buildArgs(tc domain.TenantContext, cfg domain.JobConfig, dataStoreURI string) []string {
	args := []string{
		"--resource-id", tc.ResourceID,
		"--db-uri", dataStoreURI,
		"--index-path", tc.IndexPath,
	}

	if cfg.SeedURL != "" {
		args = append(args, "--seed-url", cfg.SeedURL)
	}
	if cfg.SitemapURL != "" {
		args = append(args, "--sitemap-url", cfg.SitemapURL)
	}
	if cfg.RestrictDomain != "" {
		args = append(args, "--restrict-domain", cfg.RestrictDomain)
	}
	if cfg.MaxDepth > 0 {
		args = append(args, "--max-depth", strconv.Itoa(cfg.MaxDepth))
	}
	if cfg.MaxLinksPerPage > 0 {
		args = append(args, "--max-links", strconv.Itoa(cfg.MaxLinksPerPage))
	}
	if cfg.CollectionName != "" {
		args = append(args, "--collection", cfg.CollectionName)
	}
	if cfg.EmbeddingModel != "" {
		args = append(args, "--embedding-model", cfg.EmbeddingModel)
	}
	if cfg.LogVerbosity != "" {
		args = append(args, "--log-level", cfg.LogVerbosity)
	}
	if cfg.RespectRobots {
		args = append(args, "--respect-robots")
	}
	if cfg.AggressiveDiscovery {
		args = append(args, "--aggressive")
	}

	return args
}

// truncateOutput caps a captured stream and appends an explicit marker for
// what was dropped.
func truncateOutput(s string) string {
	if len(s) <= maxCapturedOutput {
		return s
	}
	dropped := len(s) - maxCapturedOutput
	return s[:maxCapturedOutput] + fmt.Sprintf("\n... (%d chars truncated)", dropped)
}

// extractSummary returns the last stdout line that parses as a JSON object.
// Extraction runs on the full output, before the reporting truncation, so a
// long crawl log cannot push the summary out of the result.
func extractSummary(out []byte) domain.JobSummary {
	var summary domain.JobSummary
	for _, line := range bytes.Split(out, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var candidate domain.JobSummary
		if err := json.Unmarshal(line, &candidate); err == nil {
			summary = candidate
		}
	}
	return summary
}
