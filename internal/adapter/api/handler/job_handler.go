package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/user/rag-orchestrator/internal/domain"
	"github.com/user/rag-orchestrator/internal/usecase"
)

// JobDispatcher is the slice of DispatchJobUseCase the handler needs.
type JobDispatcher interface {
	Dispatch(ctx context.Context, identity uuid.UUID, kind domain.JobKind, cfg domain.JobConfig) (*usecase.JobDispatchResult, error)
}

// JobHandler handles HTTP requests that dispatch scrape/update jobs.
type JobHandler struct {
	dispatcher JobDispatcher
	logger     *slog.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(dispatcher JobDispatcher, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		dispatcher: dispatcher,
		logger:     logger.With("component", "job_handler"),
	}
}

type dispatchRequest struct {
	SeedURL             string   `json:"seed_url"`
	SitemapURL          string   `json:"sitemap_url"`
	EmbeddingModel      string   `json:"embedding_model"`
	CollectionName      string   `json:"collection_name"`
	RestrictDomain      string   `json:"restrict_domain"`
	LogVerbosity        string   `json:"log_verbosity"`
	RespectRobots       flexBool `json:"respect_robots"`
	AggressiveDiscovery flexBool `json:"aggressive_discovery"`
	MaxDepth            flexInt  `json:"max_depth"`
	MaxLinksPerPage     flexInt  `json:"max_links_per_page"`
	DatabaseURI         string   `json:"database_uri"`
}

type dispatchResponse struct {
	Success        bool                `json:"success"`
	JobID          string              `json:"job_id"`
	ResourceID     string              `json:"resource_id"`
	Summary        domain.JobSummary   `json:"summary,omitempty"`
	Stdout         string              `json:"stdout"`
	Stderr         string              `json:"stderr"`
	CacheRefreshed bool                `json:"cache_refreshed"`
	Signal         domain.SignalResult `json:"signal"`
}

// Dispatch runs a job synchronously and returns the combined result.
func (h *JobHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	identity, err := uuid.Parse(r.PathValue("identity"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid tenant identity")
		return
	}

	kind, err := domain.ParseJobKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	if kind == domain.JobScrape && req.SeedURL == "" {
		writeError(w, h.logger, http.StatusBadRequest, "bad_request", "seed_url is required for scrape jobs")
		return
	}

	cfg := domain.JobConfig{
		SeedURL:             req.SeedURL,
		SitemapURL:          req.SitemapURL,
		EmbeddingModel:      req.EmbeddingModel,
		CollectionName:      req.CollectionName,
		RestrictDomain:      req.RestrictDomain,
		LogVerbosity:        req.LogVerbosity,
		RespectRobots:       bool(req.RespectRobots),
		AggressiveDiscovery: bool(req.AggressiveDiscovery),
		MaxDepth:            int(req.MaxDepth),
		MaxLinksPerPage:     int(req.MaxLinksPerPage),
		DataStoreURI:        req.DatabaseURI,
	}

	// Ingestion jobs are long-running and run to completion; lift the
	// server's write deadline for this request so it cannot cut the job off.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	// Once dispatched the job runs to process completion: a client disconnect
	// must not cancel the running process, the signal, or event publishes.
	ctx := context.WithoutCancel(r.Context())

	result, err := h.dispatcher.Dispatch(ctx, identity, kind, cfg)
	if err != nil {
		h.writeDispatchError(w, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, dispatchResponse{
		Success:        true,
		JobID:          result.Result.JobID,
		ResourceID:     result.Result.ResourceID,
		Summary:        result.Result.Summary,
		Stdout:         result.Result.Stdout,
		Stderr:         result.Result.Stderr,
		CacheRefreshed: result.CacheRefreshed,
		Signal:         result.Signal,
	})
}

func (h *JobHandler) writeDispatchError(w http.ResponseWriter, err error) {
	var jobErr *domain.JobExecutionError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrResourceIncomplete):
		writeError(w, h.logger, http.StatusPreconditionFailed, "resource_incomplete", err.Error())
	case errors.As(err, &jobErr):
		// Surface whatever partial diagnostics the process produced.
		writeJSON(w, h.logger, http.StatusBadGateway, errorResponse{
			Error:   jobErr.Error(),
			Code:    "job_failed",
			Summary: jobErr.Result.Summary,
		})
	default:
		h.logger.Error("job dispatch failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal", "internal server error")
	}
}
