package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/user/rag-orchestrator/internal/adapter/metrics"
	"github.com/user/rag-orchestrator/internal/domain"
)

// JobDispatchResult combines a job's own outcome with the independent
// outcome of the stale-index signal. CacheRefreshed mirrors Signal.Success:
// when false, the bot service was not told about the new data and an
// operator may want to refresh manually.
type JobDispatchResult struct {
	Result         *domain.JobResult   `json:"result"`
	Signal         domain.SignalResult `json:"signal"`
	CacheRefreshed bool                `json:"cache_refreshed"`
}

// DispatchJobUseCase drives a scrape or update job to completion against a
// tenant's resolved context: cache lookup, precondition check, process
// execution, then the best-effort stale-index notification.
type DispatchJobUseCase struct {
	contexts *TenantContextCache
	runner   domain.JobRunner
	signaler domain.IndexSignaler
	events   domain.JobEventPublisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewDispatchJobUseCase creates a new DispatchJobUseCase. The event
// publisher and metrics may be nil.
func NewDispatchJobUseCase(
	contexts *TenantContextCache,
	runner domain.JobRunner,
	signaler domain.IndexSignaler,
	events domain.JobEventPublisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *DispatchJobUseCase {
	return &DispatchJobUseCase{
		contexts: contexts,
		runner:   runner,
		signaler: signaler,
		events:   events,
		logger:   logger.With("component", "dispatch_job"),
		metrics:  m,
	}
}

// EnsureTenantResources fails fast with ErrResourceIncomplete when the
// resolved context is missing the fields a job depends on. It must run
// before any job is dispatched; the error is retryable after
// re-provisioning.
func (uc *DispatchJobUseCase) EnsureTenantResources(tc domain.TenantContext) error {
	if !tc.Complete() {
		return fmt.Errorf("tenant %s: %w", tc.Identity, domain.ErrResourceIncomplete)
	}
	return nil
}

// Dispatch runs a job for the tenant and returns the combined result. The
// job blocks until process completion with no imposed timeout; callers are
// expected to disable any surrounding request timeout. Job failures are
// returned as *domain.JobExecutionError; signal failures never propagate.
//
// Nothing here guards against two overlapping jobs for the same tenant.
// The job id is a correlation label only, never a concurrency key; if
// serialization is wanted it belongs to the caller or operator.
func (uc *DispatchJobUseCase) Dispatch(ctx context.Context, identity uuid.UUID, kind domain.JobKind, cfg domain.JobConfig) (*JobDispatchResult, error) {
	tc, err := uc.contexts.Get(ctx, identity, false)
	if err != nil {
		uc.countJob(kind, "rejected")
		return nil, err
	}

	if err := uc.EnsureTenantResources(tc); err != nil {
		uc.countJob(kind, "rejected")
		return nil, err
	}

	jobID := fmt.Sprintf("%s-%s-%s", kind, tc.ResourceID, randomSuffix(8))
	log := uc.logger.With("job_id", jobID, "resource_id", tc.ResourceID, "kind", kind)

	uc.publishEvent(ctx, log, jobID, tc.ResourceID, kind, domain.JobStarted)

	start := time.Now()
	result, err := uc.runner.Run(ctx, jobID, kind, tc, cfg)
	if err != nil {
		uc.countJob(kind, "failed")
		uc.publishEvent(ctx, log, jobID, tc.ResourceID, kind, domain.JobFailed)
		log.Error("job execution failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	uc.countJob(kind, "succeeded")
	if uc.metrics != nil {
		uc.metrics.JobDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}
	log.Info("job completed", "duration_ms", result.Duration.Milliseconds())

	sig := uc.signaler.Notify(ctx, tc)
	if !sig.Success {
		if uc.metrics != nil {
			uc.metrics.SignalFailures.Inc()
		}
		log.Warn("stale-index signal failed, bot cache not refreshed", "error", sig.Error)
	}

	uc.publishEvent(ctx, log, jobID, tc.ResourceID, kind, domain.JobCompleted)

	return &JobDispatchResult{
		Result:         result,
		Signal:         sig,
		CacheRefreshed: sig.Success,
	}, nil
}

func (uc *DispatchJobUseCase) publishEvent(ctx context.Context, log *slog.Logger, jobID, resourceID string, kind domain.JobKind, status domain.JobEventStatus) {
	if uc.events == nil {
		return
	}
	event := domain.JobEvent{
		JobID:      jobID,
		ResourceID: resourceID,
		Kind:       kind,
		Status:     status,
		At:         time.Now().UTC(),
	}
	if err := uc.events.Publish(ctx, event); err != nil {
		log.Warn("failed to publish job event", "status", status, "error", err)
	}
}

func (uc *DispatchJobUseCase) countJob(kind domain.JobKind, status string) {
	if uc.metrics != nil {
		uc.metrics.JobsTotal.WithLabelValues(string(kind), status).Inc()
	}
}
