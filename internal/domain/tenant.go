package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role defines the account type of a tenant.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ResourceFields is the immutable per-tenant resource metadata derived at
// provisioning time. ResourceID, once assigned, never changes; every other
// field is a pure function of ResourceID plus configuration.
type ResourceFields struct {
	ResourceID        string `json:"resource_id"`
	DataStoreURI      string `json:"datastore_uri"`
	IndexPath         string `json:"index_path"`
	BotEndpoint       string `json:"bot_endpoint"`
	SchedulerEndpoint string `json:"scheduler_endpoint"`
	ScraperEndpoint   string `json:"scraper_endpoint"`
}

// Complete reports whether the fields a job dispatch depends on are present.
func (f ResourceFields) Complete() bool {
	return f.ResourceID != "" && f.IndexPath != ""
}

// Tenant represents an account record held in the identity store. Members
// carry a reference to their owning admin.
type Tenant struct {
	ID      uuid.UUID  `json:"id"`
	Name    string     `json:"name"`
	Email   string     `json:"email"`
	Role    Role       `json:"role"`
	AdminID *uuid.UUID `json:"admin_id,omitempty"`

	ResourceFields

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantContext is the resolved, cacheable bundle of a tenant's resource
// metadata used to route jobs and signals. It is derived from the tenant
// record on a cache miss and never persisted.
type TenantContext struct {
	Identity uuid.UUID `json:"identity"`

	ResourceFields

	FetchedAt time.Time `json:"fetched_at"`
}
