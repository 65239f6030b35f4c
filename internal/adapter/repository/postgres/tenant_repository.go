package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/user/rag-orchestrator/internal/domain"
)

// TenantRepository implements domain.TenantRepository on PostgreSQL.
// Uniqueness (usernames, role-scoped emails, resource ids) is enforced by
// the database's constraints, not re-checked here.
type TenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTenantRepository creates a new PostgreSQL-backed tenant repository.
func NewTenantRepository(db *sql.DB, logger *slog.Logger) *TenantRepository {
	return &TenantRepository{
		db:     db,
		logger: logger.With("component", "postgres_tenant_repository"),
	}
}

const tenantColumns = `id, name, email, role, admin_id, resource_id, datastore_uri, index_path, bot_endpoint, scheduler_endpoint, scraper_endpoint, created_at, updated_at`

// FindByID reads the current tenant record.
func (r *TenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanTenant(r.db.QueryRowContext(ctx, query, id))
}

// Store persists a newly created tenant record.
func (r *TenantRepository) Store(ctx context.Context, t *domain.Tenant) error {
	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, t.Email, t.Role, nullableUUID(t.AdminID),
		t.ResourceID, t.DataStoreURI, t.IndexPath,
		t.BotEndpoint, t.SchedulerEndpoint, t.ScraperEndpoint,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant %s: %w", t.ID, domain.ErrDuplicateIdentity)
		}
		return fmt.Errorf("failed to store tenant: %w", err)
	}
	return nil
}

// UpdateProfile writes the mutable profile fields of an existing record.
func (r *TenantRepository) UpdateProfile(ctx context.Context, t *domain.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $2, email = $3, role = $4, admin_id = $5, updated_at = $6
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, t.Email, t.Role, nullableUUID(t.AdminID), time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant %s: %w", t.ID, domain.ErrDuplicateIdentity)
		}
		return fmt.Errorf("failed to update tenant profile: %w", err)
	}
	return requireRow(res, t.ID)
}

// UpdateResourceFields backfills resource metadata. The COALESCE/NULLIF
// guard makes the write fill-absent-only at the database level, so an
// already-assigned resource id can never be overwritten even by a stale
// caller.
func (r *TenantRepository) UpdateResourceFields(ctx context.Context, id uuid.UUID, fields domain.ResourceFields) error {
	query := `
		UPDATE tenants
		SET resource_id        = COALESCE(NULLIF(resource_id, ''), $2),
		    datastore_uri      = COALESCE(NULLIF(datastore_uri, ''), $3),
		    index_path         = COALESCE(NULLIF(index_path, ''), $4),
		    bot_endpoint       = COALESCE(NULLIF(bot_endpoint, ''), $5),
		    scheduler_endpoint = COALESCE(NULLIF(scheduler_endpoint, ''), $6),
		    scraper_endpoint   = COALESCE(NULLIF(scraper_endpoint, ''), $7),
		    updated_at         = $8
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		id, fields.ResourceID, fields.DataStoreURI, fields.IndexPath,
		fields.BotEndpoint, fields.SchedulerEndpoint, fields.ScraperEndpoint,
		time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant %s: %w", id, domain.ErrDuplicateIdentity)
		}
		return fmt.Errorf("failed to update tenant resource fields: %w", err)
	}
	return requireRow(res, id)
}

// Delete removes the tenant record.
func (r *TenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	return requireRow(res, id)
}

// ResourceIDExists reports whether any tenant already holds the resource id.
func (r *TenantRepository) ResourceIDExists(ctx context.Context, resourceID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM tenants WHERE resource_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, resourceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check resource id: %w", err)
	}
	return exists, nil
}

func (r *TenantRepository) scanTenant(row *sql.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	var adminID uuid.NullUUID
	// Resource columns may be empty on records created before provisioning
	// existed.
	var resourceID, dataStoreURI, indexPath sql.NullString
	var botEndpoint, schedEndpoint, scraperEndpoint sql.NullString

	err := row.Scan(
		&t.ID, &t.Name, &t.Email, &t.Role, &adminID,
		&resourceID, &dataStoreURI, &indexPath,
		&botEndpoint, &schedEndpoint, &scraperEndpoint,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}

	if adminID.Valid {
		t.AdminID = &adminID.UUID
	}
	t.ResourceID = resourceID.String
	t.DataStoreURI = dataStoreURI.String
	t.IndexPath = indexPath.String
	t.BotEndpoint = botEndpoint.String
	t.SchedulerEndpoint = schedEndpoint.String
	t.ScraperEndpoint = scraperEndpoint.String

	return &t, nil
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func requireRow(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
