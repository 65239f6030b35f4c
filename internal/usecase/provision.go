package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/user/rag-orchestrator/internal/adapter/metrics"
	"github.com/user/rag-orchestrator/internal/domain"
)

const provisionMaxAttempts = 5

// DerivationBases holds the configured base URIs and paths that resource
// fields are derived from.
type DerivationBases struct {
	DataStoreURIBase      string
	IndexRootPath         string
	BotEndpointBase       string
	SchedulerEndpointBase string
	ScraperEndpointBase   string
}

// ProvisionService derives and backfills per-tenant resource metadata.
type ProvisionService struct {
	repo    domain.TenantRepository
	bases   DerivationBases
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProvisionService creates a new ProvisionService. Metrics may be nil.
func NewProvisionService(repo domain.TenantRepository, bases DerivationBases, logger *slog.Logger, m *metrics.Metrics) *ProvisionService {
	return &ProvisionService{
		repo:    repo,
		bases:   bases,
		logger:  logger.With("component", "provision_service"),
		metrics: m,
	}
}

// Provision generates a globally unique resource identifier for a new tenant
// and derives the dependent fields. Called exactly once, at tenant creation.
func (s *ProvisionService) Provision(ctx context.Context, identity uuid.UUID, displayName string) (domain.ResourceFields, error) {
	resourceID, err := s.newResourceID(ctx, displayName)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ProvisionTotal.WithLabelValues("error").Inc()
		}
		return domain.ResourceFields{}, err
	}

	fields := s.derive(resourceID)
	s.logger.Info("provisioned tenant resources", "identity", identity, "resource_id", resourceID)
	if s.metrics != nil {
		s.metrics.ProvisionTotal.WithLabelValues("created").Inc()
	}
	return fields, nil
}

// EnsureResources is the idempotent backfill for records missing resource
// fields. It only fills absent fields; an assigned resource id and existing
// derived paths are never overwritten. The second return value reports
// whether anything was filled in.
func (s *ProvisionService) EnsureResources(ctx context.Context, record *domain.Tenant) (domain.ResourceFields, bool, error) {
	fields := record.ResourceFields

	if fields.ResourceID == "" {
		resourceID, err := s.newResourceID(ctx, record.Name)
		if err != nil {
			return domain.ResourceFields{}, false, err
		}
		fields.ResourceID = resourceID
	}

	derived := s.derive(fields.ResourceID)
	changed := fields.ResourceID != record.ResourceID

	if fields.DataStoreURI == "" {
		fields.DataStoreURI = derived.DataStoreURI
		changed = true
	}
	if fields.IndexPath == "" {
		fields.IndexPath = derived.IndexPath
		changed = true
	}
	if fields.BotEndpoint == "" {
		fields.BotEndpoint = derived.BotEndpoint
		changed = true
	}
	if fields.SchedulerEndpoint == "" {
		fields.SchedulerEndpoint = derived.SchedulerEndpoint
		changed = true
	}
	if fields.ScraperEndpoint == "" {
		fields.ScraperEndpoint = derived.ScraperEndpoint
		changed = true
	}

	if changed {
		s.logger.Info("backfilled tenant resources", "identity", record.ID, "resource_id", fields.ResourceID)
		if s.metrics != nil {
			s.metrics.ProvisionTotal.WithLabelValues("backfilled").Inc()
		}
	}

	return fields, changed, nil
}

func (s *ProvisionService) newResourceID(ctx context.Context, displayName string) (string, error) {
	slug := sanitizeName(displayName)
	if slug == "" {
		return "", &domain.ProvisioningError{Reason: fmt.Sprintf("display name %q sanitizes to empty", displayName)}
	}

	for attempt := 0; attempt < provisionMaxAttempts; attempt++ {
		candidate := slug + "_" + randomSuffix(6)
		taken, err := s.repo.ResourceIDExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check resource id uniqueness: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		s.logger.Warn("resource id collision, retrying", "candidate", candidate, "attempt", attempt+1)
	}

	return "", &domain.ProvisioningError{Reason: fmt.Sprintf("could not find a free resource id for %q after %d attempts", slug, provisionMaxAttempts)}
}

func (s *ProvisionService) derive(resourceID string) domain.ResourceFields {
	return domain.ResourceFields{
		ResourceID:        resourceID,
		DataStoreURI:      strings.TrimRight(s.bases.DataStoreURIBase, "/") + "/" + resourceID + ".db",
		IndexPath:         path.Join(s.bases.IndexRootPath, resourceID),
		BotEndpoint:       joinEndpoint(s.bases.BotEndpointBase, resourceID),
		SchedulerEndpoint: joinEndpoint(s.bases.SchedulerEndpointBase, resourceID),
		ScraperEndpoint:   joinEndpoint(s.bases.ScraperEndpointBase, resourceID),
	}
}

func joinEndpoint(base, resourceID string) string {
	return strings.TrimRight(base, "/") + "/" + resourceID
}

const maxSlugLen = 32

// sanitizeName turns a display name into a lowercase identifier-safe slug.
// Runs of non-alphanumeric characters collapse to a single underscore.
func sanitizeName(name string) string {
	var b strings.Builder
	lastUnderscore := true // suppress a leading underscore
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	return strings.Trim(b.String(), "_")
}

// randomSuffix returns n hex characters of entropy.
func randomSuffix(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}
