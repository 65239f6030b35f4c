package domain

import (
	"context"

	"github.com/google/uuid"
)

// TenantRepository defines the interface for the tenant identity store.
// This abstracts away the specific backing store (e.g., PostgreSQL).
type TenantRepository interface {
	// FindByID returns the tenant record for an identity, or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// Store persists a new tenant record. Uniqueness violations surface as
	// ErrDuplicateIdentity.
	Store(ctx context.Context, t *Tenant) error

	// UpdateProfile writes the mutable profile fields (name, email, role,
	// admin reference) of an existing record.
	UpdateProfile(ctx context.Context, t *Tenant) error

	// UpdateResourceFields writes resource metadata onto an existing record.
	// Implementations must only fill fields that are currently absent.
	UpdateResourceFields(ctx context.Context, id uuid.UUID, fields ResourceFields) error

	// Delete removes the tenant record for an identity.
	Delete(ctx context.Context, id uuid.UUID) error

	// ResourceIDExists reports whether any record already holds the given
	// resource identifier.
	ResourceIDExists(ctx context.Context, resourceID string) (bool, error)
}

// JobRunner defines the interface for executing an ingestion job to
// completion against a tenant's resolved context.
type JobRunner interface {
	// Run blocks until the job process exits. Process-level failures are
	// returned as *JobExecutionError carrying partial output.
	Run(ctx context.Context, jobID string, kind JobKind, tc TenantContext, cfg JobConfig) (*JobResult, error)
}

// IndexSignaler defines the interface for the best-effort stale-index
// notification sent after a successful job.
type IndexSignaler interface {
	// Notify tells the tenant's bot service its index is stale. Failures are
	// absorbed into the returned SignalResult, never an error.
	Notify(ctx context.Context, tc TenantContext) SignalResult
}

// JobEventPublisher defines the interface for the job lifecycle event
// stream consumed by operator tooling.
type JobEventPublisher interface {
	// Publish emits a lifecycle event. Callers treat failures as non-fatal.
	Publish(ctx context.Context, event JobEvent) error
}
