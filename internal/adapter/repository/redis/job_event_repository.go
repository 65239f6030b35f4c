package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/user/rag-orchestrator/internal/domain"
)

const jobEventStreamKey = "job_events"

// JobEventRepository implements domain.JobEventPublisher using a Redis
// Stream. Publishing is best-effort observability for operator tooling;
// callers log failures and move on.
type JobEventRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewJobEventRepository creates a new Redis-backed job event publisher.
func NewJobEventRepository(client *redis.Client, logger *slog.Logger) *JobEventRepository {
	return &JobEventRepository{
		client: client,
		logger: logger.With("component", "job_event_repository"),
	}
}

// Publish appends a job lifecycle event to the stream.
func (r *JobEventRepository) Publish(ctx context.Context, event domain.JobEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: jobEventStreamKey,
		Values: map[string]interface{}{
			"payload":     payload,
			"resource_id": event.ResourceID,
			"status":      string(event.Status),
		},
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD job event: %w", err)
	}
	return nil
}
