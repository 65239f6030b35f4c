package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/user/rag-orchestrator/internal/domain"
)

// CreateTenantParams carries the caller-supplied fields for a new tenant,
// either self-registered or admin-initiated.
type CreateTenantParams struct {
	Name    string
	Email   string
	Role    domain.Role
	AdminID *uuid.UUID
}

// TenantService wraps identity-store writes with the provisioning and
// cache-invalidation protocol: every mutation of a tenant record is
// immediately followed by an Invalidate for that identity, so the context
// cache can never serve metadata that contradicts the latest write.
type TenantService struct {
	repo        domain.TenantRepository
	provisioner *ProvisionService
	cache       *TenantContextCache
	logger      *slog.Logger
}

// NewTenantService creates a new TenantService.
func NewTenantService(repo domain.TenantRepository, provisioner *ProvisionService, cache *TenantContextCache, logger *slog.Logger) *TenantService {
	return &TenantService{
		repo:        repo,
		provisioner: provisioner,
		cache:       cache,
		logger:      logger.With("component", "tenant_service"),
	}
}

// Create provisions resources for a new tenant and persists the record.
// Provisioning failures abort before anything is written; store-level
// uniqueness violations propagate as ErrDuplicateIdentity.
func (s *TenantService) Create(ctx context.Context, params CreateTenantParams) (*domain.Tenant, error) {
	id := uuid.New()

	fields, err := s.provisioner.Provision(ctx, id, params.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tenant := &domain.Tenant{
		ID:             id,
		Name:           params.Name,
		Email:          params.Email,
		Role:           params.Role,
		AdminID:        params.AdminID,
		ResourceFields: fields,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Store(ctx, tenant); err != nil {
		return nil, err
	}

	s.logger.Info("created tenant", "identity", id, "role", params.Role, "resource_id", fields.ResourceID)
	return tenant, nil
}

// UpdateProfile writes the mutable profile fields and invalidates the
// tenant's cached context.
func (s *TenantService) UpdateProfile(ctx context.Context, tenant *domain.Tenant) error {
	if err := s.repo.UpdateProfile(ctx, tenant); err != nil {
		return err
	}
	s.cache.Invalidate(tenant.ID)
	return nil
}

// Delete removes the tenant record and invalidates its cached context.
func (s *TenantService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(id)
	s.logger.Info("deleted tenant", "identity", id)
	return nil
}

// InspectResources returns the authoritative resource metadata, bypassing
// any warm cache entry. Used by administrative inspection views.
func (s *TenantService) InspectResources(ctx context.Context, id uuid.UUID) (domain.TenantContext, error) {
	return s.cache.Get(ctx, id, true)
}

// EnsureResources backfills missing resource fields on an existing record.
// It is a consistency backstop for records created before provisioning
// existed, safe to call opportunistically: a complete record is returned
// unchanged and nothing is written.
func (s *TenantService) EnsureResources(ctx context.Context, id uuid.UUID) (domain.ResourceFields, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.ResourceFields{}, err
	}

	fields, changed, err := s.provisioner.EnsureResources(ctx, record)
	if err != nil {
		return domain.ResourceFields{}, err
	}

	if changed {
		if err := s.repo.UpdateResourceFields(ctx, id, fields); err != nil {
			return domain.ResourceFields{}, err
		}
		s.cache.Invalidate(id)
	}

	return fields, nil
}
