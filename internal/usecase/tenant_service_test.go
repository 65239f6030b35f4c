package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/user/rag-orchestrator/internal/domain"
	"github.com/user/rag-orchestrator/internal/domain/mocks"
)

type serviceFixture struct {
	repo  *mocks.MockTenantRepository
	cache *TenantContextCache
	svc   *TenantService
}

func newServiceFixture() *serviceFixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &mocks.MockTenantRepository{}
	cache := NewTenantContextCache(repo, logger, nil)
	provisioner := NewProvisionService(repo, testBases(), logger, nil)
	svc := NewTenantService(repo, provisioner, cache, logger)
	return &serviceFixture{repo: repo, cache: cache, svc: svc}
}

func TestTenantService_Create(t *testing.T) {
	t.Run("Provisions Before Storing", func(t *testing.T) {
		f := newServiceFixture()

		tenant, err := f.svc.Create(context.Background(), CreateTenantParams{
			Name:  "Acme Corp",
			Email: "ops@acme.example",
			Role:  domain.RoleAdmin,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !tenant.Complete() {
			t.Errorf("expected a fully provisioned record, got %+v", tenant.ResourceFields)
		}
		if len(f.repo.StoredIDs) != 1 {
			t.Errorf("expected 1 stored record, got %d", len(f.repo.StoredIDs))
		}
	})

	t.Run("Provisioning Failure Persists Nothing", func(t *testing.T) {
		f := newServiceFixture()

		_, err := f.svc.Create(context.Background(), CreateTenantParams{Name: "!!!"})

		var provErr *domain.ProvisioningError
		if !errors.As(err, &provErr) {
			t.Fatalf("expected ProvisioningError, got %v", err)
		}
		if len(f.repo.StoredIDs) != 0 {
			t.Errorf("expected no partial record, got %d stored", len(f.repo.StoredIDs))
		}
	})

	t.Run("Duplicate Identity Propagates Opaquely", func(t *testing.T) {
		f := newServiceFixture()
		f.repo.StoreErr = domain.ErrDuplicateIdentity

		_, err := f.svc.Create(context.Background(), CreateTenantParams{Name: "Acme"})
		if !errors.Is(err, domain.ErrDuplicateIdentity) {
			t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
		}
	})
}

func TestTenantService_MutatorsInvalidate(t *testing.T) {
	t.Run("Profile Update Invalidates Cached Context", func(t *testing.T) {
		f := newServiceFixture()
		id := seedTenant(f.repo)

		if _, err := f.cache.Get(context.Background(), id, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		readsBefore := f.repo.FetchCount

		// Admin edits a member's email: a profile write through the service.
		updated := *f.repo.Records[id]
		updated.Email = "edited@acme.example"
		if err := f.svc.UpdateProfile(context.Background(), &updated); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tc, err := f.cache.Get(context.Background(), id, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if f.repo.FetchCount != readsBefore+1 {
			t.Errorf("expected a fresh store read after the edit, got %d reads", f.repo.FetchCount)
		}
		if tc.ResourceID != "acme_7f3a" {
			t.Errorf("expected the refreshed context, got %q", tc.ResourceID)
		}
	})

	t.Run("Delete Invalidates Cached Context", func(t *testing.T) {
		f := newServiceFixture()
		id := seedTenant(f.repo)

		if _, err := f.cache.Get(context.Background(), id, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if err := f.svc.Delete(context.Background(), id); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if _, err := f.cache.Get(context.Background(), id, false); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after deletion, got %v", err)
		}
	})
}

func TestTenantService_EnsureResources(t *testing.T) {
	t.Run("Backfill Persists And Invalidates", func(t *testing.T) {
		f := newServiceFixture()
		id := seedTenant(f.repo)
		f.repo.Records[id].SchedulerEndpoint = ""
		f.repo.Records[id].ScraperEndpoint = ""

		if _, err := f.cache.Get(context.Background(), id, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		fields, err := f.svc.EnsureResources(context.Background(), id)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if fields.SchedulerEndpoint == "" || fields.ScraperEndpoint == "" {
			t.Errorf("expected endpoints to be backfilled, got %+v", fields)
		}
		if len(f.repo.FieldWrites) != 1 {
			t.Fatalf("expected exactly 1 resource field write, got %d", len(f.repo.FieldWrites))
		}

		tc, err := f.cache.Get(context.Background(), id, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tc.SchedulerEndpoint != fields.SchedulerEndpoint {
			t.Error("expected the cache to reflect the backfilled record")
		}
	})

	t.Run("Complete Record Triggers No Write", func(t *testing.T) {
		f := newServiceFixture()
		id := seedTenant(f.repo)
		f.repo.Records[id].SchedulerEndpoint = "http://scheduler.internal/tenants/acme_7f3a"
		f.repo.Records[id].ScraperEndpoint = "http://scraper.internal/tenants/acme_7f3a"

		before := f.repo.Records[id].ResourceID
		fields, err := f.svc.EnsureResources(context.Background(), id)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(f.repo.FieldWrites) != 0 {
			t.Errorf("expected no write for a complete record, got %d", len(f.repo.FieldWrites))
		}
		if fields.ResourceID != before {
			t.Errorf("resource id changed from %q to %q", before, fields.ResourceID)
		}
	})
}
