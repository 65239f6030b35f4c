package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/user/rag-orchestrator/internal/domain"
)

// MockTenantRepository is an in-memory implementation of
// domain.TenantRepository for testing. FetchCount counts FindByID calls so
// cache behavior is observable.
type MockTenantRepository struct {
	mu         sync.Mutex
	Records    map[uuid.UUID]*domain.Tenant
	FetchCount int

	FindErr     error
	StoreErr    error
	UpdateErr   error
	DeleteErr   error
	ExistsErr   error
	TakenIDs    map[string]bool
	StoredIDs   []uuid.UUID
	DeletedIDs  []uuid.UUID
	FieldWrites []domain.ResourceFields
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCount++
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	t, ok := m.Records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	// Return a copy so tests can mutate Records to simulate external writes.
	cp := *t
	return &cp, nil
}

func (m *MockTenantRepository) Store(ctx context.Context, t *domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StoreErr != nil {
		return m.StoreErr
	}
	if m.Records == nil {
		m.Records = make(map[uuid.UUID]*domain.Tenant)
	}
	cp := *t
	m.Records[t.ID] = &cp
	m.StoredIDs = append(m.StoredIDs, t.ID)
	return nil
}

func (m *MockTenantRepository) UpdateProfile(ctx context.Context, t *domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	existing, ok := m.Records[t.ID]
	if !ok {
		return domain.ErrNotFound
	}
	existing.Name = t.Name
	existing.Email = t.Email
	existing.Role = t.Role
	existing.AdminID = t.AdminID
	return nil
}

func (m *MockTenantRepository) UpdateResourceFields(ctx context.Context, id uuid.UUID, fields domain.ResourceFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	existing, ok := m.Records[id]
	if !ok {
		return domain.ErrNotFound
	}
	existing.ResourceFields = fields
	m.FieldWrites = append(m.FieldWrites, fields)
	return nil
}

func (m *MockTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.Records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.Records, id)
	m.DeletedIDs = append(m.DeletedIDs, id)
	return nil
}

func (m *MockTenantRepository) ResourceIDExists(ctx context.Context, resourceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	if m.TakenIDs[resourceID] {
		return true, nil
	}
	for _, t := range m.Records {
		if t.ResourceID == resourceID {
			return true, nil
		}
	}
	return false, nil
}

// MockJobRunner is a mock implementation of domain.JobRunner.
type MockJobRunner struct {
	mu      sync.Mutex
	RunFunc func(ctx context.Context, jobID string, kind domain.JobKind, tc domain.TenantContext, cfg domain.JobConfig) (*domain.JobResult, error)
	Calls   []domain.JobConfig
}

func (m *MockJobRunner) Run(ctx context.Context, jobID string, kind domain.JobKind, tc domain.TenantContext, cfg domain.JobConfig) (*domain.JobResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, cfg)
	m.mu.Unlock()
	if m.RunFunc != nil {
		return m.RunFunc(ctx, jobID, kind, tc, cfg)
	}
	return &domain.JobResult{JobID: jobID, Kind: kind, ResourceID: tc.ResourceID, Success: true}, nil
}

// CallCount returns how many times Run was invoked.
func (m *MockJobRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockIndexSignaler is a mock implementation of domain.IndexSignaler.
type MockIndexSignaler struct {
	mu     sync.Mutex
	Result domain.SignalResult
	Calls  []domain.TenantContext
}

func (m *MockIndexSignaler) Notify(ctx context.Context, tc domain.TenantContext) domain.SignalResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, tc)
	return m.Result
}

// MockJobEventPublisher is a mock implementation of domain.JobEventPublisher.
type MockJobEventPublisher struct {
	mu         sync.Mutex
	Events     []domain.JobEvent
	PublishErr error
}

func (m *MockJobEventPublisher) Publish(ctx context.Context, event domain.JobEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.Events = append(m.Events, event)
	return nil
}

// EventStatuses returns the recorded lifecycle statuses in publish order.
func (m *MockJobEventPublisher) EventStatuses() []domain.JobEventStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	statuses := make([]domain.JobEventStatus, len(m.Events))
	for i, e := range m.Events {
		statuses[i] = e.Status
	}
	return statuses
}
