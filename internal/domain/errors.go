package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no tenant record exists for an identity.
	ErrNotFound = errors.New("tenant not found")

	// ErrDuplicateIdentity is propagated from the identity store's
	// uniqueness constraints. This layer never re-checks uniqueness itself.
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrResourceIncomplete marks a tenant whose resourceId or indexPath is
	// missing. It is a retryable precondition failure: re-provision first.
	ErrResourceIncomplete = errors.New("tenant resources incomplete")
)

// ProvisioningError is a fatal failure to derive resource fields at tenant
// creation time. No partial record is persisted when it occurs.
type ProvisioningError struct {
	Reason string
}

func (e *ProvisioningError) Error() string {
	return "provisioning failed: " + e.Reason
}

// JobExecutionError is a process-level job failure. Result carries whatever
// partial output and summary was captured before the process died.
type JobExecutionError struct {
	Result *JobResult
	Err    error
}

func (e *JobExecutionError) Error() string {
	return fmt.Sprintf("job %s failed: %v", e.Result.JobID, e.Err)
}

func (e *JobExecutionError) Unwrap() error {
	return e.Err
}
